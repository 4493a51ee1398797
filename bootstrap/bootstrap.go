// Package bootstrap builds the long-lived collaborators shared by the api and worker processes.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"closetapi/config"
	"closetapi/dbhelper"
	"closetapi/metrics"
	"closetapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

const Release = "closetapi@1.0.0"

// InitSentry is a no-op without SENTRY_DSN. The returned func flushes buffered events.
func InitSentry(cfg config.Config) (func(), error) {
	if cfg.SentryDSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          Release,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// NewLLMProcessor constructs the provider client once for the whole process.
func NewLLMProcessor(ctx context.Context, cfg config.Config) (services.LLMProcessor, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		client := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		return services.NewOpenAILLMProcessor(client, cfg.LLMModel), nil
	case config.ProviderGoogle:
		client, err := services.NewGoogleClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("genai client: %w", err)
		}
		return services.NewGoogleLLMProcessor(client, cfg.LLMModel), nil
	}
	return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
}

// Stylist is the configured stylist plus the resources to release on shutdown.
type Stylist struct {
	*services.StylistService
	cache *services.ImageCacheService
}

func (s *Stylist) Close() error {
	return s.cache.Close()
}

func NewStylist(ctx context.Context, cfg config.Config, registry *metrics.Registry) (*Stylist, error) {
	llm, err := NewLLMProcessor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cache, err := services.NewImageCacheService(
		services.NewHTTPImageFetcher(cfg.ImageFetchTimeout, cfg.ImageMaxBytes),
		cfg.ImageCacheTTL,
		registry,
	)
	if err != nil {
		return nil, fmt.Errorf("image cache: %w", err)
	}

	stylist := services.NewStylistService(llm, cache)
	stylist.Policy = cfg.RulePolicy()
	stylist.Retry = cfg.RetryPolicy()
	stylist.Metrics = registry
	stylist.Timeout = cfg.LLMTimeout
	stylist.TagTemperature = &cfg.TagTemperature
	stylist.StyleTemperature = &cfg.StyleTemperature
	stylist.NameTemperature = &cfg.NameTemperature

	if cfg.R2BucketName != "" {
		archive, err := services.NewAWSService(ctx, services.R2Credentials{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
		}, cfg.R2BucketName)
		if err != nil {
			return nil, fmt.Errorf("r2 archive: %w", err)
		}
		stylist.Archive = archive
	} else {
		log.Info().Msg("R2_BUCKET_NAME not set, failed model output is not archived")
	}

	return &Stylist{StylistService: stylist, cache: cache}, nil
}

// OpenStore returns nil when no database is configured.
func OpenStore(cfg config.Config) (*dbhelper.GormStore, error) {
	if !cfg.DB.Enabled() {
		return nil, nil
	}
	db, err := dbhelper.SetupDB(cfg.DB.DSN(), cfg.IsLocal())
	if err != nil {
		return nil, err
	}
	return dbhelper.NewGormStore(db), nil
}
