package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"closetapi/apperrors"
)

func openAIError(status int) *openai.Error {
	return &openai.Error{
		StatusCode: status,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil),
		Response:   &http.Response{StatusCode: status},
	}
}

func TestClassifyInvocationError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"gemini unauthorized", genai.APIError{Code: 401, Message: "API key not valid", Status: "UNAUTHENTICATED"}, apperrors.ReasonAuth},
		{"gemini forbidden wrapped", fmt.Errorf("generate: %w", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}), apperrors.ReasonAuth},
		{"gemini quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, apperrors.ReasonRateLimit},
		{"gemini server", genai.APIError{Code: 503, Status: "UNAVAILABLE"}, apperrors.ReasonProvider},
		{"openai unauthorized", openAIError(401), apperrors.ReasonAuth},
		{"openai rate limit", openAIError(429), apperrors.ReasonRateLimit},
		{"openai bad request", openAIError(400), apperrors.ReasonProvider},
		{"deadline", context.DeadlineExceeded, apperrors.ReasonNetwork},
		{"transport", errors.New("dial tcp 10.0.0.1:443: connection refused"), apperrors.ReasonNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ClassifyInvocationError(tt.err)
			assert.Equal(t, apperrors.KindInvocation, appErr.Kind)
			assert.Equal(t, tt.reason, appErr.Detail("reason"))
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestClassifyInvocationError_KeepsAppErrors(t *testing.T) {
	original := apperrors.NewInvocationError(apperrors.ReasonProvider, errors.New("blocked"))
	assert.Same(t, original, ClassifyInvocationError(original))
	assert.Nil(t, ClassifyInvocationError(nil))
}

func TestFirstCandidateText(t *testing.T) {
	text, reason, err := firstCandidateText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking about colors", Thought: true},
				{Text: `{"outfit":`},
				{Text: ` []}`},
			}},
		}},
	})
	assert.NoError(t, err)
	assert.Equal(t, `{"outfit": []}`, text)
	assert.Equal(t, "STOP", reason)

	_, _, err = firstCandidateText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			SafetyRatings: []*genai.SafetyRating{{Blocked: true, Category: genai.HarmCategoryHarassment}},
		}},
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInvocation))

	text, _, err = firstCandidateText(&genai.GenerateContentResponse{})
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestOpenAIPromptParams(t *testing.T) {
	processor := NewOpenAILLMProcessor(NewOpenAIClient("sk-test", ""), "")
	params := processor.makePromptParams(Prompt{
		System:      "system",
		Text:        "tag this",
		Image:       &ImagePayload{Data: []byte("img"), MIMEType: "image/jpeg"},
		ForceJSON:   true,
		Temperature: floatPointer(0.2),
	})

	assert.Equal(t, DefaultOpenAIModel, string(params.Model))
	assert.Len(t, params.Messages, 2)
	assert.NotNil(t, params.Messages[0].OfSystem)
	parts := params.Messages[1].OfUser.Content.OfArrayOfContentParts
	assert.Len(t, parts, 2)
	assert.Equal(t, "data:image/jpeg;base64,aW1n", parts[1].OfImageURL.ImageURL.URL)
	assert.NotNil(t, params.ResponseFormat.OfJSONObject)

	plain := processor.makePromptParams(Prompt{Text: "name this"})
	assert.Len(t, plain.Messages, 1)
	assert.Nil(t, plain.ResponseFormat.OfJSONObject)
}

func TestLLMModelName(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", Flash25.String())
	assert.Equal(t, "gemini-2.5-pro", Pro25.String())
	assert.Equal(t, "gemini-2.5-flash", LLMModelName(99).String())
}
