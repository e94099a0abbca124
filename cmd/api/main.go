package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/farewatch-api/config"
	"github.com/jwalitptl/farewatch-api/internal/amadeus"
	"github.com/jwalitptl/farewatch-api/internal/handler"
	pricecheckHandler "github.com/jwalitptl/farewatch-api/internal/handler/pricecheck"
	prometheusHandler "github.com/jwalitptl/farewatch-api/internal/handler/prometheus"
	thresholdHandler "github.com/jwalitptl/farewatch-api/internal/handler/threshold"
	trackingHandler "github.com/jwalitptl/farewatch-api/internal/handler/tracking"
	"github.com/jwalitptl/farewatch-api/internal/repository/postgres"
	"github.com/jwalitptl/farewatch-api/internal/router"
	pipelineService "github.com/jwalitptl/farewatch-api/internal/service/pipeline"
	thresholdService "github.com/jwalitptl/farewatch-api/internal/service/threshold"
	trackingService "github.com/jwalitptl/farewatch-api/internal/service/tracking"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
	"github.com/jwalitptl/farewatch-api/pkg/messaging"
	"github.com/jwalitptl/farewatch-api/pkg/messaging/redis"
	"github.com/jwalitptl/farewatch-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := newLogger(cfg)
	appMetrics := metrics.New("farewatch")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
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
		broker, err = redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &appLogger.ZL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

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
	trackingSvc := trackingService.NewService(queueRepo, alertRepo, appLogger)
	thresholdSvc := thresholdService.NewService(cfg.Threshold.ToServiceConfig(cfg.Pipeline.Origin), appLogger)

	h := handler.NewHandler()
	pricecheckH := pricecheckHandler.NewHandler(pipelineSvc)
	trackingH := trackingHandler.NewHandler(trackingSvc, appLogger)
	thresholdH := thresholdHandler.NewHandler(thresholdSvc)
	metricsH := prometheusHandler.New()

	r := router.NewRouter(h, pricecheckH, thresholdH, trackingH, metricsH, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:     cfg.RateLimit.Burst,
		MetricsPrefix: "farewatch_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	appLogger.Info(fmt.Sprintf("api listening on :%d", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func newLogger(cfg *config.Config) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Logging.Pretty,
	})
}
