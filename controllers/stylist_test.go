package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"closetapi/apperrors"
	"closetapi/metrics"
	"closetapi/models"
	"closetapi/services"
	"closetapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e       *echo.Echo
	llm     *test.MockLLMProcessor
	images  *test.MockImageFetcher
	store   *test.MemoryStore
	metrics *metrics.Registry
}

func newTestServer(llm *test.MockLLMProcessor) *testServer {
	images := test.NewMockImageFetcher()
	stylist := services.NewStylistService(llm, images)
	store := test.NewMemoryStore()
	registry := metrics.NewRegistry()
	return &testServer{
		e: SetupServer(ServerDeps{
			Stylist:   stylist,
			Store:     store,
			Metrics:   registry,
			JWTSecret: test.JWTSecret,
		}),
		llm:     llm,
		images:  images,
		store:   store,
		metrics: registry,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestTagOk(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.TagResponse))

	rec := s.do(test.NewJSONRequest("POST", "/tag", models.TagRequestIn{ImageURL: "https://cdn.example.com/tee.jpg"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tag models.GarmentTag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tag))
	assert.Equal(t, models.CategoryTop, tag.MainCategory)
	assert.Equal(t, "Crisp White Tee", tag.Name)
	assert.Equal(t, models.SeasonSummer, tag.Season)
	assert.Equal(t, []string{"https://cdn.example.com/tee.jpg"}, s.images.URLs)
	require.NotNil(t, s.llm.LastPrompt().Image)
}

func TestTagMissingImageURL(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.TagResponse))

	rec := s.do(test.NewJSONRequest("POST", "/tag", models.TagRequestIn{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INPUT", body["code"])
	assert.Equal(t, "No image_url provided", body["error"])
	assert.NotContains(t, body, "raw")
	assert.Equal(t, 0, s.llm.Calls())
}

func TestTagFetchError(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.TagResponse))
	s.images.Err = apperrors.NewFetchError("https://cdn.example.com/gone.jpg", errors.New("status 404"))

	rec := s.do(test.NewJSONRequest("POST", "/tag", models.TagRequestIn{ImageURL: "https://cdn.example.com/gone.jpg"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "FETCH", body["code"])
	assert.NotContains(t, body, "raw")
	assert.Equal(t, map[string]any{"url": "https://cdn.example.com/gone.jpg"}, body["details"])
	assert.Equal(t, 0, s.llm.Calls())
}

func TestTagSchemaErrorCarriesRaw(t *testing.T) {
	raw := `{"main_category": "hat", "type": "beanie"}`
	s := newTestServer(test.NewMockLLM(raw))

	rec := s.do(test.NewJSONRequest("POST", "/tag", models.TagRequestIn{ImageURL: "https://cdn.example.com/hat.jpg"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "SCHEMA", body["code"])
	assert.Equal(t, raw, body["raw"])
	assert.Equal(t, map[string]any{"field": "main_category"}, body["details"])
}

func TestGenerateOutfitOk(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))

	rec := s.do(test.NewJSONRequest("POST", "/generate-outfit", models.OutfitRequestIn{
		Context:  "Brunch with friends",
		Wardrobe: test.Wardrobe(),
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.OutfitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, []string{"top1", "bottom1", "shoe1"}, response.Outfit.ItemIDs())
	assert.Equal(t, "A clean white base.", response.Outfit[0].Reason)
	assert.Contains(t, s.llm.LastPrompt().Text, "CONTEXT: Brunch with friends")
}

// A fenced onepiece outfit comes back as exactly the object inside the fence.
func TestGenerateOutfitFencedOnepiece(t *testing.T) {
	raw := "```json\n{\"outfit\":[{\"id\":\"shoe1\",\"reason\":\"Neutral sneakers ground the look.\"},{\"id\":\"dress1\",\"reason\":\"Statement piece.\"}]}\n```"
	s := newTestServer(test.NewMockLLM(raw))

	rec := s.do(test.NewJSONRequestRaw("POST", "/generate-outfit", `{
		"context": "Garden party",
		"wardrobe": [
			{"id": "shoe1", "main_category": "shoes"},
			{"id": "dress1", "main_category": "onepiece"}
		]
	}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"outfit":[{"id":"shoe1","reason":"Neutral sneakers ground the look."},{"id":"dress1","reason":"Statement piece."}]}`, rec.Body.String())
}

func TestGenerateOutfitLockedItems(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))

	rec := s.do(test.NewJSONRequest("POST", "/generate-outfit", models.OutfitRequestIn{
		Context:       "Rainy office day",
		Wardrobe:      test.Wardrobe(),
		RecentItemIDs: []string{"top2"},
		LockedItems:   []string{"coat1"},
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.OutfitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, []string{"coat1", "top1", "bottom1", "shoe1"}, response.Outfit.ItemIDs())
	assert.Equal(t, services.LockedReason, response.Outfit[0].Reason)
}

func TestGenerateOutfitUnknownLockedItem(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))

	rec := s.do(test.NewJSONRequest("POST", "/generate-outfit", models.OutfitRequestIn{
		Context:     "Rainy office day",
		Wardrobe:    test.Wardrobe(),
		LockedItems: []string{"coat9"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INPUT", body["code"])
	assert.Equal(t, map[string]any{"field": "locked_items"}, body["details"])
}

func TestGenerateOutfitInputErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing context", `{"wardrobe": [{"id": "top1", "main_category": "top"}]}`, "context"},
		{"missing wardrobe", `{"context": "Brunch"}`, "wardrobe"},
		{"empty wardrobe", `{"context": "Brunch", "wardrobe": []}`, "wardrobe"},
		{"unknown category", `{"context": "Brunch", "wardrobe": [{"id": "hat1", "main_category": "hat"}]}`, "wardrobe[0].main_category"},
		{"item without id", `{"context": "Brunch", "wardrobe": [{"main_category": "top"}]}`, "wardrobe[0].id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(test.NewMockLLM(test.OutfitResponse))

			rec := s.do(test.NewJSONRequestRaw("POST", "/generate-outfit", tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "INPUT", body["code"])
			assert.NotContains(t, body, "raw")
			assert.Equal(t, map[string]any{"field": tt.field}, body["details"])
			assert.Equal(t, 0, s.llm.Calls())
		})
	}
}

func TestGenerateOutfitMalformedBody(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))

	rec := s.do(test.NewJSONRequestRaw("POST", "/generate-outfit", `{"context": `))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INPUT", body["code"])
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestGenerateOutfitModelFailures(t *testing.T) {
	tests := []struct {
		name    string
		result  test.MockLLMResult
		code    string
		hasRaw  bool
		details map[string]any
	}{
		{
			name:   "not json",
			result: test.MockLLMResult{Text: "Sorry, I can't help with that."},
			code:   "DECODE",
			hasRaw: true,
		},
		{
			name:    "unknown id",
			result:  test.MockLLMResult{Text: `{"outfit": [{"id": "ghost", "reason": "?"}]}`},
			code:    "REFERENTIAL",
			hasRaw:  true,
			details: map[string]any{"item_id": "ghost"},
		},
		{
			name: "two tops",
			result: test.MockLLMResult{Text: `{"outfit": [
				{"id": "top1", "reason": "a"}, {"id": "top2", "reason": "b"},
				{"id": "bottom1", "reason": "c"}, {"id": "shoe1", "reason": "d"}]}`},
			code:    "COMPOSITION",
			hasRaw:  true,
			details: map[string]any{"rule": "cardinality", "category": "top", "count": float64(2)},
		},
		{
			name:    "missing outfit key",
			result:  test.MockLLMResult{Text: `{"items": []}`},
			code:    "SCHEMA",
			hasRaw:  true,
			details: map[string]any{"field": "outfit"},
		},
		{
			name:    "rate limited",
			result:  test.MockLLMResult{Err: apperrors.NewInvocationError(apperrors.ReasonRateLimit, errors.New("429 Too Many Requests"))},
			code:    "INVOCATION",
			details: map[string]any{"reason": "rate_limit"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&test.MockLLMProcessor{Results: []test.MockLLMResult{tt.result}})

			rec := s.do(test.NewJSONRequest("POST", "/generate-outfit", models.OutfitRequestIn{
				Context:  "Brunch",
				Wardrobe: test.Wardrobe(),
			}))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body["code"])
			if tt.hasRaw {
				assert.Equal(t, tt.result.Text, body["raw"])
			} else {
				assert.NotContains(t, body, "raw")
			}
			if tt.details != nil {
				assert.Equal(t, tt.details, body["details"])
			}
		})
	}
}

func TestStyleSingleItemOk(t *testing.T) {
	s := newTestServer(test.NewMockLLM(`{"outfit": [{"id": "shoe1", "reason": "White sneakers keep it light."}]}`))
	wardrobe := test.Wardrobe()
	locked := wardrobe[7]

	rec := s.do(test.NewJSONRequest("POST", "/style-single-item", models.StyleSingleItemIn{
		Vibe:        "relaxed",
		Season:      "summer",
		Temperature: Float64Pointer(81),
		Wardrobe:    wardrobe,
		LockedItem:  &locked,
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.OutfitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, []string{"dress1", "shoe1"}, response.Outfit.ItemIDs())
	assert.NotContains(t, s.llm.LastPrompt().Text, `"dress1"`)
}

func TestStyleSingleItemMissingLockedItem(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))

	rec := s.do(test.NewJSONRequest("POST", "/style-single-item", models.StyleSingleItemIn{
		Context:  "Date night",
		Wardrobe: test.Wardrobe(),
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INPUT", body["code"])
	assert.Equal(t, map[string]any{"field": "locked_item"}, body["details"])
}

func TestGenerateMultistepOutfitOk(t *testing.T) {
	s := newTestServer(test.NewMockLLM(
		`{"id": "top1", "reason": "A clean white base."}`,
		`{"id": "bottom1", "reason": "Indigo denim balances the white."}`,
		"```json\n{\"id\": \"shoe1\", \"reason\": \"Matching white sneakers.\"}\n```",
	))

	rec := s.do(test.NewJSONRequestRaw("POST", "/generate-multistep-outfit", `{
		"context": "Office",
		"vibe": "smart casual",
		"season": "fall",
		"temperature": 60,
		"wardrobe": [
			{"id": "top1", "main_category": "top", "type": "t-shirt"},
			{"id": "bottom1", "main_category": "bottom", "type": "jeans"},
			{"id": "shoe1", "main_category": "shoes", "type": "sneakers"}
		]
	}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"outfit": [
		{"id": "top1", "reason": "A clean white base."},
		{"id": "bottom1", "reason": "Indigo denim balances the white."},
		{"id": "shoe1", "reason": "Matching white sneakers."}
	]}`, rec.Body.String())
	assert.Equal(t, 3, s.llm.Calls())
	assert.Contains(t, s.llm.LastPrompt().Text, "Context: Office; Vibe: smart casual; Season: fall; Temperature: 60°F")
}

func TestGenerateMultistepOutfitMissingWardrobe(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))

	rec := s.do(test.NewJSONRequest("POST", "/generate-multistep-outfit", models.StepwiseOutfitIn{Context: "Office"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INPUT", body["code"])
	assert.Equal(t, map[string]any{"field": "wardrobe"}, body["details"])
	assert.NotContains(t, body, "raw")
	assert.Equal(t, 0, s.llm.Calls())
}

func TestGenerateMultistepOutfitPickOutsideCategory(t *testing.T) {
	raw := `{"id": "shoe1", "reason": "Sneakers on top?"}`
	s := newTestServer(test.NewMockLLM(raw))

	rec := s.do(test.NewJSONRequest("POST", "/generate-multistep-outfit", models.StepwiseOutfitIn{
		Context:  "Office",
		Wardrobe: test.Wardrobe(),
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "REFERENTIAL", body["code"])
	assert.Equal(t, raw, body["raw"])
	assert.Equal(t, map[string]any{"item_id": "shoe1", "category": "top"}, body["details"])
}

func TestGenerateOutfitNameOk(t *testing.T) {
	s := newTestServer(test.NewMockLLM(`"sunny   brunch layers."`))

	rec := s.do(test.NewJSONRequest("POST", "/generate-outfit-name", models.OutfitNameIn{
		Vibe:    "relaxed",
		Context: "Brunch",
		Items:   []string{"white t-shirt", "indigo jeans"},
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.OutfitNameOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Sunny Brunch Layers", response.Name)
}

func TestGenerateOutfitNameMissingFields(t *testing.T) {
	s := newTestServer(test.NewMockLLM("Anything"))

	rec := s.do(test.NewJSONRequest("POST", "/generate-outfit-name", models.OutfitNameIn{Vibe: "relaxed"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INPUT", body["code"])
	assert.Equal(t, "Missing fields", body["error"])
}

func TestGenerateOutfitNameBlank(t *testing.T) {
	s := newTestServer(test.NewMockLLM("  \n "))

	rec := s.do(test.NewJSONRequest("POST", "/generate-outfit-name", models.OutfitNameIn{
		Vibe:    "relaxed",
		Context: "Brunch",
		Items:   []string{"white t-shirt"},
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "SCHEMA", body["code"])
	assert.Equal(t, "  \n ", body["raw"])
	assert.Equal(t, map[string]any{"field": "name"}, body["details"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))

	rec := s.do(httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	s.do(test.NewJSONRequest("POST", "/tag", models.TagRequestIn{}))

	rec = s.do(httptest.NewRequest("GET", "/metrics.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var counters map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counters))
	assert.Equal(t, int64(1), counters["http_requests_total{method=GET,path=/health,status=2xx}"])
	assert.Equal(t, int64(1), counters["http_requests_total{method=POST,path=/tag,status=4xx}"])
	assert.Equal(t, int64(1), s.metrics.Value(metrics.HTTPRequestsTotal, map[string]string{"method": "POST", "path": "/tag", "status": "4xx"}))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(test.NewMockLLM(test.OutfitResponse))
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")

	rec := s.do(req)

	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
}

func TestNewErrorResponse(t *testing.T) {
	status, response := NewErrorResponse(apperrors.NewDecodeError("", errors.New("empty response")))
	assert.Equal(t, http.StatusInternalServerError, status)
	require.NotNil(t, response.Raw, "raw is kept even when the model text was empty")
	assert.Equal(t, "", *response.Raw)

	status, response = NewErrorResponse(echo.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", response.Code)

	status, response = NewErrorResponse(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL", response.Code)
	assert.Nil(t, response.Raw)
}
