package services

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"
	"github.com/rs/zerolog/log"
)

type OpenAILLMProcessor struct {
	client openai.Client
	model  string
}

// NewOpenAIClient disables the SDK's own retries; retrying is the stylist's decision.
func NewOpenAIClient(key string, baseURL string) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

func NewOpenAILLMProcessor(client openai.Client, model string) *OpenAILLMProcessor {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAILLMProcessor{client: client, model: model}
}

func (p *OpenAILLMProcessor) makePromptParams(prompt Prompt) openai.ChatCompletionNewParams {
	parts := []openai.ChatCompletionContentPartUnionParam{
		{OfText: &openai.ChatCompletionContentPartTextParam{Text: prompt.Text}},
	}
	if prompt.Image != nil {
		parts = append(parts, openai.ChatCompletionContentPartUnionParam{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL:    prompt.Image.DataURL(),
					Detail: "low",
				},
			},
		})
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(prompt.System),
				},
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	})

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}
	if prompt.Temperature != nil {
		params.Temperature = openai.Float(float64(*prompt.Temperature))
	}
	if prompt.ForceJSON {
		var jsonFmt constant.JSONObject
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{
				Type: jsonFmt.Default(),
			},
		}
	}
	return params
}

func (p *OpenAILLMProcessor) Generate(ctx context.Context, prompt Prompt) (*LLMResponse, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.makePromptParams(prompt))
	if err != nil {
		return nil, ClassifyInvocationError(err)
	}

	response := &LLMResponse{
		Model:            completion.Model,
		InputTokenCount:  int32(completion.Usage.PromptTokens),
		OutputTokenCount: int32(completion.Usage.CompletionTokens),
		TotalTokenCount:  int32(completion.Usage.TotalTokens),
	}
	if len(completion.Choices) > 0 {
		response.Response = completion.Choices[0].Message.Content
		response.FinishReason = completion.Choices[0].FinishReason
	}
	log.Ctx(ctx).Debug().
		Str("model", response.Model).
		Str("finish_reason", response.FinishReason).
		Int32("total_tokens", response.TotalTokenCount).
		Msg("openai response")
	return response, nil
}
