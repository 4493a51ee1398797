package services

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"closetapi/apperrors"
)

// LLMModelName is a Gemini model known to work with the stylist prompts.
type LLMModelName int32

const (
	Flash25 LLMModelName = iota
	Pro25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.5-flash"
	}
}

const DefaultOpenAIModel = "gpt-4.1-mini"

func floatPointer(f float32) *float32 {
	return &f
}

// Prompt is one model request. Image is optional.
type Prompt struct {
	System      string
	Text        string
	Image       *ImagePayload
	ForceJSON   bool
	Temperature *float32
}

type LLMResponse struct {
	Response           string `json:"response"`
	Model              string `json:"model"`
	FinishReason       string `json:"finish_reason"`
	InputTokenCount    int32  `json:"input_token_count"`
	ThoughtsTokenCount int32  `json:"thoughts_token_count"`
	OutputTokenCount   int32  `json:"output_token_count"`
	TotalTokenCount    int32  `json:"total_token_count"`
}

// LLMProcessor sends one prompt to a model. Implementations do not retry and
// report every failure as an INVOCATION error.
type LLMProcessor interface {
	Generate(ctx context.Context, prompt Prompt) (*LLMResponse, error)
}

// ClassifyInvocationError maps a provider client error to an INVOCATION error.
func ClassifyInvocationError(err error) *apperrors.Error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.NewInvocationError(invocationReason(err), err)
}

func invocationReason(err error) string {
	if status, ok := providerStatus(err); ok {
		switch {
		case status == 401 || status == 403:
			return apperrors.ReasonAuth
		case status == 429:
			return apperrors.ReasonRateLimit
		default:
			return apperrors.ReasonProvider
		}
	}
	// transport failures, timeouts and cancellations
	return apperrors.ReasonNetwork
}

func providerStatus(err error) (int, bool) {
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code, true
	}
	var genaiPtr *genai.APIError
	if errors.As(err, &genaiPtr) && genaiPtr != nil {
		return genaiPtr.Code, true
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) && openaiErr != nil {
		return openaiErr.StatusCode, true
	}
	return 0, false
}
