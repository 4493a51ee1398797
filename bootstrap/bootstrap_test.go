package bootstrap

import (
	"context"
	"testing"

	"closetapi/apperrors"
	"closetapi/config"
	"closetapi/llmguard"
	"closetapi/metrics"
	"closetapi/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIConfig() config.Config {
	return config.Config{
		Env:                      "test",
		LLMProvider:              config.ProviderOpenAI,
		OpenAIAPIKey:             "sk-test",
		LLMMaxAttempts:           2,
		LLMRetryOn:               []string{"decode"},
		TagTemperature:           0.1,
		StyleTemperature:         0.9,
		NameTemperature:          0.8,
		RequireShoesWithOnepiece: false,
		AllowLayerOverOnepiece:   true,
		ImageMaxBytes:            1 << 20,
	}
}

func TestNewStylistAppliesConfig(t *testing.T) {
	registry := metrics.NewRegistry()

	stylist, err := NewStylist(context.Background(), openAIConfig(), registry)
	require.NoError(t, err)
	defer stylist.Close()

	assert.IsType(t, &services.OpenAILLMProcessor{}, stylist.LLM)
	assert.IsType(t, &services.ImageCacheService{}, stylist.Images)
	assert.Nil(t, stylist.Archive)
	assert.Equal(t, llmguard.RulePolicy{RequireShoesWithOnepiece: false, AllowLayerOverOnepiece: true}, stylist.Policy)
	assert.Equal(t, services.RetryPolicy{MaxAttempts: 2, RetryOn: []apperrors.Kind{apperrors.KindDecode}}, stylist.Retry)
	assert.Same(t, registry, stylist.Metrics)
	assert.InDelta(t, 0.1, *stylist.TagTemperature, 1e-6)
	assert.InDelta(t, 0.9, *stylist.StyleTemperature, 1e-6)
	assert.InDelta(t, 0.8, *stylist.NameTemperature, 1e-6)
}

func TestNewLLMProcessorUnknownProvider(t *testing.T) {
	cfg := openAIConfig()
	cfg.LLMProvider = "anthropic"

	_, err := NewLLMProcessor(context.Background(), cfg)

	assert.ErrorContains(t, err, "unknown LLM_PROVIDER")
}

func TestOpenStoreWithoutDatabase(t *testing.T) {
	store, err := OpenStore(openAIConfig())
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestInitSentryWithoutDSN(t *testing.T) {
	flush, err := InitSentry(openAIConfig())
	require.NoError(t, err)
	flush()
}
