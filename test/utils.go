package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"closetapi/apperrors"
	"closetapi/models"
	"closetapi/services"
)

const JWTSecret = "test-secret"

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func NewJSONRequestRaw(method string, target string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(profilePk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   profilePk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", profilePk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, profilePk string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(profilePk)))
	return req
}

func Float64Pointer(f float64) *float64 {
	return &f
}

func NewRefString(data string) *string {
	return &data
}

// Wardrobe is a small closet covering every category.
func Wardrobe() []models.WardrobeItem {
	return []models.WardrobeItem{
		{ID: "top1", MainCategory: models.CategoryTop, Type: "t-shirt", PrimaryColor: "white"},
		{ID: "top2", MainCategory: models.CategoryTop, Type: "blouse", PrimaryColor: "blue"},
		{ID: "bottom1", MainCategory: models.CategoryBottom, Type: "jeans", PrimaryColor: "indigo"},
		{ID: "shoe1", MainCategory: models.CategoryShoes, Type: "sneakers", PrimaryColor: "white"},
		{ID: "coat1", MainCategory: models.CategoryOuterwear, Type: "trench coat", PrimaryColor: "beige"},
		{ID: "acc1", MainCategory: models.CategoryAccessory, Type: "tote bag", PrimaryColor: "black"},
		{ID: "layer1", MainCategory: models.CategoryLayer, Type: "cardigan", PrimaryColor: "grey"},
		{ID: "dress1", MainCategory: models.CategoryOnepiece, Type: "sundress", PrimaryColor: "yellow"},
	}
}

const TagResponse = "```json\n" + `{
	"name": "Crisp White Tee",
	"main_category": "top",
	"type": "t-shirt",
	"primary_color": "white",
	"secondary_colors": [],
	"pattern_description": "solid",
	"vibe_tags": ["casual", "minimal"],
	"season": "summer"
}` + "\n```"

const OutfitResponse = `{"outfit": [
	{"id": "top1", "reason": "A clean white base."},
	{"id": "bottom1", "reason": "Indigo denim balances the white."},
	{"id": "shoe1", "reason": "Matching white sneakers."}
]}`

type MockLLMResult struct {
	Text string
	Err  error
}

// MockLLMProcessor answers with Results in order and repeats the last one.
type MockLLMProcessor struct {
	mu      sync.Mutex
	Results []MockLLMResult
	Prompts []services.Prompt
}

func NewMockLLM(texts ...string) *MockLLMProcessor {
	m := &MockLLMProcessor{}
	for _, text := range texts {
		m.Results = append(m.Results, MockLLMResult{Text: text})
	}
	return m
}

func (m *MockLLMProcessor) Generate(ctx context.Context, prompt services.Prompt) (*services.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if len(m.Results) == 0 {
		return nil, apperrors.NewInvocationError(apperrors.ReasonProvider, fmt.Errorf("no mock result"))
	}
	idx := len(m.Prompts) - 1
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	result := m.Results[idx]
	if result.Err != nil {
		return nil, result.Err
	}
	return &services.LLMResponse{
		Response:         result.Text,
		Model:            "mock",
		InputTokenCount:  10,
		OutputTokenCount: 13,
		TotalTokenCount:  23,
	}, nil
}

func (m *MockLLMProcessor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

func (m *MockLLMProcessor) LastPrompt() services.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return services.Prompt{}
	}
	return m.Prompts[len(m.Prompts)-1]
}

type MockImageFetcher struct {
	mu      sync.Mutex
	Payload *services.ImagePayload
	Err     error
	URLs    []string
}

func NewMockImageFetcher() *MockImageFetcher {
	return &MockImageFetcher{Payload: &services.ImagePayload{Data: []byte("\x89PNG fake"), MIMEType: "image/png"}}
}

func (m *MockImageFetcher) Fetch(ctx context.Context, url string) (*services.ImagePayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.URLs = append(m.URLs, url)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Payload, nil
}

type MockArchiver struct {
	mu      sync.Mutex
	Records []services.FailureRecord
	Err     error
}

func (m *MockArchiver) ArchiveFailure(ctx context.Context, record services.FailureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return m.Err
}

type SentPush struct {
	Token    string
	Platform models.Platform
	Title    string
	Body     string
	Data     map[string]string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentPush
	Err  error
}

func (m *MockNotifier) Notify(ctx context.Context, token string, platform models.Platform, title, body string, customData map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentPush{Token: token, Platform: platform, Title: title, Body: body, Data: customData})
	return nil
}

type MockWeather struct {
	Weather models.Weather
	Err     error
	Calls   int
}

func (m *MockWeather) Current(ctx context.Context, lat, lon float64) (models.Weather, error) {
	m.Calls++
	return m.Weather, m.Err
}
