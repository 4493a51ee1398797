package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"closetapi/bootstrap"
	"closetapi/config"
	"closetapi/logging"
	"closetapi/metrics"
	"closetapi/services"
	"closetapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// asynqLogger routes asynq's own logs through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

// withTaskLogger puts a task scoped logger into the handler context.
func withTaskLogger(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		retried, _ := asynq.GetRetryCount(ctx)
		logger := log.With().Str("task_id", taskID).Str("task_type", t.Type()).Int("retried", retried).Logger()
		return next.ProcessTask(logger.WithContext(ctx), t)
	})
}

func runScheduler(redis asynq.RedisClientOpt, cron string) {
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		Logger:   asynqLogger{logger: log.With().Str("component", "scheduler").Logger()},
		LogLevel: asynq.InfoLevel,
	})

	entryID, err := scheduler.Register(cron, tasks.NewDailyOutfitsTask(), asynq.Queue(tasks.QueueOutfits), asynq.MaxRetry(2))
	if err != nil {
		log.Fatal().Err(err).Str("cron", cron).Msg("failed to register daily outfits")
	}
	log.Info().Str("entry_id", entryID).Str("cron", cron).Msg("registered daily outfits")

	if err := scheduler.Run(); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.Env)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if !cfg.DB.Enabled() {
		log.Fatal().Msg("DB_HOST is required for the worker")
	}

	flush, err := bootstrap.InitSentry(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init sentry")
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	stylist, err := bootstrap.NewStylist(ctx, cfg, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build stylist")
	}
	defer stylist.Close()

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	redis := asynq.RedisClientOpt{Addr: cfg.BrokerAddress}
	client := asynq.NewClient(redis)
	defer client.Close()

	handler := &tasks.DailyOutfitHandler{
		Store:   store,
		Stylist: stylist,
		Weather: services.NewOpenMeteoService(cfg.WeatherURL),
		Queue:   client,
		Metrics: registry,
	}
	if cfg.PushNotifications {
		app, err := firebase.NewApp(ctx, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init firebase app")
		}
		handler.Notifier = services.NewFirebaseNotifier(app)
	}

	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			tasks.QueueOutfits: 7,
			"default":          3,
		},
		Logger: asynqLogger{logger: log.With().Str("component", "asynq").Logger()},
		// failures that skip retry were already recorded by the handler
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			if errors.Is(err, asynq.SkipRetry) {
				return
			}
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("task", task.Type())
				sentry.CaptureException(err)
			})
		}),
	})

	mux := asynq.NewServeMux()
	mux.Use(withTaskLogger)
	mux.HandleFunc(tasks.TypeDailyOutfits, handler.HandleDailyOutfits)
	mux.HandleFunc(tasks.TypeDailyProfileOutfit, handler.HandleDailyProfileOutfit)

	go runScheduler(redis, cfg.DailyOutfitCron)

	if err := srv.Start(mux); err != nil {
		log.Error().Err(err).Msg("worker failed to start")
		os.Exit(1)
	}
	<-ctx.Done()
	srv.Shutdown()
}
