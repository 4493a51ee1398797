package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"closetapi/apperrors"
)

type GoogleLLMProcessor struct {
	client *genai.Client
	model  string
}

// NewGoogleLLMProcessor wraps an already constructed client. An empty model
// falls back to Flash25.
func NewGoogleLLMProcessor(client *genai.Client, model string) *GoogleLLMProcessor {
	if model == "" {
		model = Flash25.String()
	}
	return &GoogleLLMProcessor{client: client, model: model}
}

func NewGoogleClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *GoogleLLMProcessor) Generate(ctx context.Context, prompt Prompt) (*LLMResponse, error) {
	parts := []*genai.Part{{Text: prompt.Text}}
	if prompt.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     prompt.Image.Data,
				MIMEType: prompt.Image.MIMEType,
			},
		})
	}

	config := &genai.GenerateContentConfig{
		Temperature: prompt.Temperature,
	}
	if prompt.ForceJSON {
		config.ResponseMIMEType = "application/json"
	}
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{{Role: "user", Parts: parts}}, config)
	if err != nil {
		return nil, ClassifyInvocationError(err)
	}

	text, finishReason, err := firstCandidateText(result)
	if err != nil {
		return nil, err
	}

	response := &LLMResponse{
		Response:     text,
		Model:        p.model,
		FinishReason: finishReason,
	}
	if result.UsageMetadata != nil {
		response.InputTokenCount = result.UsageMetadata.PromptTokenCount
		response.ThoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		response.OutputTokenCount = result.UsageMetadata.CandidatesTokenCount
		response.TotalTokenCount = result.UsageMetadata.TotalTokenCount
	}
	log.Ctx(ctx).Debug().
		Str("model", p.model).
		Str("finish_reason", finishReason).
		Int32("total_tokens", response.TotalTokenCount).
		Msg("gemini response")
	return response, nil
}

// firstCandidateText joins the non-thought text parts of the first candidate.
// A blocked candidate is a provider failure, an empty one is returned as empty
// text and left to the decoder.
func firstCandidateText(result *genai.GenerateContentResponse) (string, string, error) {
	if result == nil || len(result.Candidates) == 0 {
		if result != nil && result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return "", "", apperrors.NewInvocationError(apperrors.ReasonProvider,
				fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason))
		}
		return "", "", nil
	}
	candidate := result.Candidates[0]
	for _, rating := range candidate.SafetyRatings {
		if rating.Blocked {
			return "", string(candidate.FinishReason), apperrors.NewInvocationError(apperrors.ReasonProvider,
				fmt.Errorf("content blocked by safety setting: %s", rating.Category))
		}
	}
	if candidate.Content == nil {
		return "", string(candidate.FinishReason), nil
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), string(candidate.FinishReason), nil
}
