package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/farewatch-api/config"
	"github.com/jwalitptl/farewatch-api/internal/amadeus"
	"github.com/jwalitptl/farewatch-api/internal/email"
	"github.com/jwalitptl/farewatch-api/internal/repository/postgres"
	pipelineService "github.com/jwalitptl/farewatch-api/internal/service/pipeline"
	internalWorker "github.com/jwalitptl/farewatch-api/internal/worker"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
	"github.com/jwalitptl/farewatch-api/pkg/messaging"
	"github.com/jwalitptl/farewatch-api/pkg/messaging/redis"
	"github.com/jwalitptl/farewatch-api/pkg/metrics"
	"github.com/jwalitptl/farewatch-api/pkg/worker"
)

const defaultRunTimeout = 10 * time.Minute

func setupHealthCheck(logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			logger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: log.Logger}
	appMetrics := metrics.New("farewatch_worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.ZL.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	destinationRepo := postgres.NewDestinationRepository(base)
	priceRepo := postgres.NewPriceRepository(base)
	subscriptionRepo := postgres.NewSubscriptionRepository(base)
	alertRepo := postgres.NewAlertRepository(base)
	queueRepo := postgres.NewQueueRepository(base)

	var broker messaging.Broker
	if cfg.Redis.Enabled {
		broker, err = redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Redis broker")
		}
		defer broker.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupHealthCheck(appLogger)

	// Email dispatcher drains the queue the API and scheduler fill.
	emailSvc := email.NewSMTPService(cfg.SMTP.ToEmailConfig())
	dispatcher := worker.NewDispatcher(queueRepo, emailSvc, cfg.Queue.ToWorkerConfig(), appLogger, appMetrics)
	go dispatcher.Start(ctx)

	cleanup := internalWorker.NewQueueCleanupWorker(queueRepo, cfg.Cleanup.RetentionDays, cfg.Cleanup.Interval, appLogger)
	go cleanup.Start(ctx)

	// Scheduled price checks. A run already in progress is not an error,
	// the tick is simply skipped.
	var scheduler *cron.Cron
	if cfg.Scheduler.Enabled {
		fareClient := amadeus.NewClient(cfg.Amadeus.ToClientConfig(), appLogger)
		pipelineSvc := pipelineService.NewService(
			destinationRepo,
			priceRepo,
			subscriptionRepo,
			alertRepo,
			fareClient,
			broker,
			cfg.Pipeline.ToServiceConfig(),
			appLogger,
			appMetrics,
		)

		runTimeout := cfg.Pipeline.RunTimeout
		if runTimeout <= 0 {
			runTimeout = defaultRunTimeout
		}

		scheduler = cron.New()
		_, err = scheduler.AddFunc(cfg.Scheduler.CronSpec, func() {
			runCtx, runCancel := context.WithTimeout(ctx, runTimeout)
			defer runCancel()

			result, err := pipelineSvc.Run(runCtx)
			if errors.Is(err, pipelineService.ErrRunInProgress) {
				appLogger.Warn("skipping scheduled price check, previous run still in progress")
				return
			}
			if err != nil {
				appLogger.ZL.Error().Err(err).Msg("scheduled price check failed")
				return
			}
			appLogger.ZL.Info().
				Int("destinations_checked", result.DestinationsChecked).
				Int("alerts_triggered", result.AlertsTriggered).
				Msg("scheduled price check completed")
		})
		if err != nil {
			log.Fatal().Err(err).Str("cron_spec", cfg.Scheduler.CronSpec).Msg("Failed to schedule price checks")
		}
		scheduler.Start()
	}

	appLogger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down worker...")

	if scheduler != nil {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(30 * time.Second):
			appLogger.Warn("timed out waiting for scheduled run to finish")
		}
	}
	cancel()

	appLogger.Info("worker exited properly")
}
