package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"closetapi/apperrors"
	"closetapi/llmguard"
	"closetapi/services"
)

const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

type Config struct {
	Env string `env:"ENV" envDefault:"local"`
	// HTTP listen address
	Address   string `env:"ADDRESS" envDefault:":8083"`
	JWTSecret string `env:"JWT_SECRET"`
	SentryDSN string `env:"SENTRY_DSN"`

	LLMProvider      string        `env:"LLM_PROVIDER" envDefault:"google"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	LLMModel         string        `env:"LLM_MODEL"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMMaxAttempts   int           `env:"LLM_MAX_ATTEMPTS" envDefault:"1"`
	LLMRetryOn       []string      `env:"LLM_RETRY_ON" envSeparator:","`
	TagTemperature   float32       `env:"TAG_TEMPERATURE" envDefault:"0.2"`
	StyleTemperature float32       `env:"STYLE_TEMPERATURE" envDefault:"0.5"`
	NameTemperature  float32       `env:"NAME_TEMPERATURE" envDefault:"0.7"`

	RequireShoesWithOnepiece bool `env:"REQUIRE_SHOES_WITH_ONEPIECE" envDefault:"true"`
	AllowLayerOverOnepiece   bool `env:"ALLOW_LAYER_OVER_ONEPIECE" envDefault:"false"`

	ImageFetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"15s"`
	ImageMaxBytes     int64         `env:"IMAGE_MAX_BYTES" envDefault:"10485760"`
	ImageCacheTTL     time.Duration `env:"IMAGE_CACHE_TTL" envDefault:"10m"`

	RateLimit float64 `env:"RATE_LIMIT" envDefault:"3"`

	DB DBConfig

	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	BrokerAddress     string `env:"ASYNC_BROKER_ADDRESS" envDefault:"localhost:6379"`
	DailyOutfitCron   string `env:"DAILY_OUTFIT_CRON" envDefault:"0 7 * * *"`
	WeatherURL        string `env:"WEATHER_URL" envDefault:"https://api.open-meteo.com/v1/forecast"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"10"`
	PushNotifications bool   `env:"PUSH_NOTIFICATIONS" envDefault:"false"`
}

type DBConfig struct {
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Name     string `env:"DB_NAME"`
}

// Enabled reports whether a database is configured at all.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.Username, c.Password, c.Host, c.Port, c.Name)
}

// Load loads .env (if present) and parses environment variables into Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGoogle:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the google provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMMaxAttempts < 1 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be at least 1, got %d", c.LLMMaxAttempts)
	}
	if _, err := c.retryKinds(); err != nil {
		return err
	}
	if c.ImageMaxBytes <= 0 {
		return errors.New("IMAGE_MAX_BYTES must be positive")
	}
	return nil
}

func (c Config) RulePolicy() llmguard.RulePolicy {
	return llmguard.RulePolicy{
		RequireShoesWithOnepiece: c.RequireShoesWithOnepiece,
		AllowLayerOverOnepiece:   c.AllowLayerOverOnepiece,
	}
}

// RetryPolicy assumes Validate passed; unknown kinds are skipped.
func (c Config) RetryPolicy() services.RetryPolicy {
	kinds, _ := c.retryKinds()
	return services.RetryPolicy{MaxAttempts: c.LLMMaxAttempts, RetryOn: kinds}
}

func (c Config) retryKinds() ([]apperrors.Kind, error) {
	kinds := make([]apperrors.Kind, 0, len(c.LLMRetryOn))
	for _, raw := range c.LLMRetryOn {
		name := strings.ToUpper(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		kind, ok := apperrors.ParseKind(name)
		if !ok || !kind.Retryable() {
			return nil, fmt.Errorf("LLM_RETRY_ON: %q is not a retryable error kind", raw)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func (c Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "test"
}
