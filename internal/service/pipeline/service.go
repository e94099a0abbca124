// Package pipeline implements the price monitoring run loop: fetch fares
// for every active destination, record observations, refresh statistics,
// classify, evaluate subscriptions, and enqueue notifications.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/farewatch-api/internal/amadeus"
	"github.com/jwalitptl/farewatch-api/internal/deal"
	"github.com/jwalitptl/farewatch-api/internal/eligibility"
	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
	"github.com/jwalitptl/farewatch-api/pkg/messaging"
	"github.com/jwalitptl/farewatch-api/pkg/metrics"
)

// ErrRunInProgress means a run was requested while the previous one was
// still active. Runs are never allowed to overlap.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// FareGateway is the slice of the fare-search client the pipeline uses.
type FareGateway interface {
	Authenticate(ctx context.Context) error
	FetchLowestPrice(ctx context.Context, origin, destination string, departureDate time.Time) (float64, error)
}

type Config struct {
	// Origin is the fixed departure airport for this deployment.
	Origin string
	// DepartureOffsetDays is how far ahead the searched outbound date lies.
	DepartureOffsetDays int
	// FetchInterval is the minimum gap between fare-search calls.
	FetchInterval time.Duration
}

// DestinationResult is one entry of a run's per-destination breakdown.
type DestinationResult struct {
	Destination string            `json:"destination"`
	Price       float64           `json:"price,omitempty"`
	Quality     model.DealQuality `json:"quality,omitempty"`
	Savings     float64           `json:"savings,omitempty"`
	Skipped     bool              `json:"skipped,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// RunResult is the run's only outward contract.
type RunResult struct {
	Success             bool                `json:"success"`
	DestinationsChecked int                 `json:"destinationsChecked"`
	AlertsTriggered     int                 `json:"alertsTriggered"`
	Results             []DestinationResult `json:"results"`
}

type Service struct {
	destinations  repository.DestinationRepository
	prices        repository.PriceRepository
	subscriptions repository.SubscriptionRepository
	alerts        repository.AlertRepository
	gateway       FareGateway
	broker        messaging.Broker
	limiter       *rate.Limiter
	logger        *logger.Logger
	metrics       *metrics.Metrics
	cfg           Config

	running atomic.Bool
	now     func() time.Time
}

func NewService(
	destinations repository.DestinationRepository,
	prices repository.PriceRepository,
	subscriptions repository.SubscriptionRepository,
	alerts repository.AlertRepository,
	gateway FareGateway,
	broker messaging.Broker,
	cfg Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	if cfg.Origin == "" {
		cfg.Origin = "ATL"
	}
	if cfg.DepartureOffsetDays <= 0 {
		cfg.DepartureOffsetDays = 30
	}
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = time.Second
	}
	return &Service{
		destinations:  destinations,
		prices:        prices,
		subscriptions: subscriptions,
		alerts:        alerts,
		gateway:       gateway,
		broker:        broker,
		limiter:       rate.NewLimiter(rate.Every(cfg.FetchInterval), 1),
		logger:        logger,
		metrics:       metrics,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Run executes one full pipeline pass. A credential failure aborts with
// zero destinations checked; every other failure is isolated to its
// destination. Cancellation returns the partial results collected so far.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	timer := prometheus.NewTimer(s.metrics.RunDuration)
	defer timer.ObserveDuration()

	result := &RunResult{Results: []DestinationResult{}}

	if err := s.gateway.Authenticate(ctx); err != nil {
		s.logger.Error(err, "fare search authentication failed, aborting run")
		return result, err
	}

	destinations, err := s.destinations.ListActive(ctx)
	if err != nil {
		s.logger.Error(err, "failed to load active destinations, aborting run")
		return result, err
	}

	s.logger.ZL.Info().Int("destinations", len(destinations)).Msg("starting price check run")

	departureDate := s.now().AddDate(0, 0, s.cfg.DepartureOffsetDays)
	aborted := false

	for _, dest := range destinations {
		if err := s.limiter.Wait(ctx); err != nil {
			aborted = true
			break
		}

		entry, fatal := s.checkDestination(ctx, dest, departureDate, result)
		result.Results = append(result.Results, entry)
		if entry.Error != "" {
			s.metrics.DestinationsFailed.Inc()
		}
		s.metrics.DestinationsChecked.Inc()

		if fatal {
			aborted = true
			break
		}
		if ctx.Err() != nil {
			aborted = true
			break
		}
	}

	result.DestinationsChecked = len(result.Results)
	result.Success = !aborted

	s.logger.ZL.Info().
		Int("destinations_checked", result.DestinationsChecked).
		Int("alerts_triggered", result.AlertsTriggered).
		Bool("success", result.Success).
		Msg("price check run complete")

	s.publish(messaging.ChannelRunCompleted, result)

	if aborted && ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// checkDestination runs the FETCH → RECORD → REFRESH_STATS → CLASSIFY →
// EVALUATE chain for one destination. The chain is causally ordered and a
// store failure before classification skips the rest, since classifying
// against stale statistics would misprice the deal. The fatal return is
// true only for a mid-run credential failure.
func (s *Service) checkDestination(ctx context.Context, dest *model.Destination, departureDate time.Time, run *RunResult) (DestinationResult, bool) {
	log := s.logger.ZL.With().
		Str("destination", dest.CityName).
		Str("airport_code", dest.AirportCode).
		Logger()

	price, err := s.gateway.FetchLowestPrice(ctx, s.cfg.Origin, dest.AirportCode, departureDate)
	if err != nil {
		var authErr *amadeus.AuthError
		if errors.As(err, &authErr) {
			log.Error().Err(err).Msg("credential refresh failed mid-run")
			s.metrics.FetchErrors.WithLabelValues("auth").Inc()
			return DestinationResult{Destination: dest.CityName, Error: err.Error()}, true
		}
		if errors.Is(err, amadeus.ErrNoFares) {
			log.Info().Msg("no fares found, skipping destination")
			s.metrics.FetchErrors.WithLabelValues("not_found").Inc()
			return DestinationResult{Destination: dest.CityName, Skipped: true}, false
		}
		log.Warn().Err(err).Msg("fare fetch failed")
		s.metrics.FetchErrors.WithLabelValues("transient").Inc()
		return DestinationResult{Destination: dest.CityName, Error: err.Error()}, false
	}

	log.Info().Float64("price", price).Msg("fetched lowest fare")

	if _, err := s.prices.RecordObservation(ctx, dest.ID, price, departureDate); err != nil {
		log.Error().Err(err).Msg("failed to record observation")
		return DestinationResult{Destination: dest.CityName, Error: err.Error()}, false
	}

	stats, err := s.prices.RefreshStatistics(ctx, dest.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh statistics")
		return DestinationResult{Destination: dest.CityName, Error: err.Error()}, false
	}

	cls := deal.Classify(price, stats)

	if err := s.evaluateSubscriptions(ctx, dest, price, departureDate, stats, cls, run); err != nil {
		log.Error().Err(err).Msg("failed to evaluate subscriptions")
		return DestinationResult{Destination: dest.CityName, Error: err.Error()}, false
	}

	return DestinationResult{
		Destination: dest.CityName,
		Price:       price,
		Quality:     cls.Quality,
		Savings:     cls.SavingsPercent,
	}, false
}

func (s *Service) evaluateSubscriptions(ctx context.Context, dest *model.Destination, price float64, departureDate time.Time, stats *model.PriceStatistics, cls deal.Classification, run *RunResult) error {
	subs, err := s.subscriptions.ListActiveForDestination(ctx, dest.ID)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	now := s.now()
	weekAgo := now.AddDate(0, 0, -7)

	for _, sub := range subs {
		log := s.logger.ZL.With().
			Str("subscription_id", sub.ID.String()).
			Str("user_id", sub.UserID.String()).
			Str("destination", dest.CityName).
			Logger()

		weeklyCount, err := s.alerts.CountForUserSince(ctx, sub.UserID, weekAgo)
		if err != nil {
			// Without the count the cap cannot be enforced; skip rather
			// than risk over-notifying.
			log.Error().Err(err).Msg("failed to count weekly alerts, skipping subscription")
			continue
		}

		eligible, reason := eligibility.Evaluate(eligibility.Input{
			Subscription:     sub.Subscription,
			Preference:       sub.Preference,
			Price:            price,
			Classification:   cls,
			WeeklyAlertCount: weeklyCount,
			Now:              now,
		})
		if !eligible {
			log.Debug().Str("reason", string(reason)).Msg("subscription not eligible")
			continue
		}

		if err := s.fireAlert(ctx, dest, sub, price, departureDate, stats, cls); err != nil {
			log.Error().Err(err).Msg("failed to record alert")
			continue
		}

		run.AlertsTriggered++
		s.metrics.AlertsTriggered.Inc()
		log.Info().Float64("price", price).Str("quality", string(cls.Quality)).Msg("alert triggered")
	}

	return nil
}

func (s *Service) fireAlert(ctx context.Context, dest *model.Destination, sub *model.SubscriptionWithPreference, price float64, departureDate time.Time, stats *model.PriceStatistics, cls deal.Classification) error {
	event := &model.AlertEvent{
		UserID:            sub.UserID,
		DestinationID:     dest.ID,
		Price:             price,
		TrackingThreshold: sub.PriceThreshold,
		DealQuality:       cls.Quality,
		SavingsPercent:    cls.SavingsPercent,
		Avg90DayPrice:     stats.Avg90Day,
		AllTimeLow:        stats.AllTimeLow,
		OutboundDate:      departureDate,
	}

	payload, err := json.Marshal(model.AlertEmailPayload{
		Destination:    dest.CityName,
		Country:        dest.Country,
		CurrentPrice:   price,
		UserThreshold:  sub.PriceThreshold,
		DealQuality:    cls.Quality,
		SavingsPercent: cls.SavingsPercent,
		Recommendation: cls.Recommendation,
		Avg90Day:       stats.Avg90Day,
		AllTimeLow:     stats.AllTimeLow,
		OutboundDate:   departureDate.Format("2006-01-02"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	msg := &model.QueuedMessage{
		UserID:    sub.UserID,
		EmailType: model.EmailTypePriceAlert,
		Recipient: sub.Preference.Email,
		Payload:   payload,
	}

	if err := s.alerts.CreateWithMessage(ctx, event, msg); err != nil {
		return err
	}

	// The alert is committed; a failure here only risks one early
	// re-notification after the cooldown, which at-least-once allows.
	if err := s.subscriptions.UpdateLastAlertSentAt(ctx, sub.ID, s.now()); err != nil {
		s.logger.Error(err, "failed to update last alert timestamp",
			"subscription_id", sub.ID.String())
	}

	s.publish(messaging.ChannelAlertTriggered, event)
	return nil
}

// publish is best-effort: analytics consumers tolerate gaps, the pipeline
// never blocks on the broker.
func (s *Service) publish(channel string, message interface{}) {
	if s.broker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.broker.Publish(ctx, channel, message); err != nil {
		s.logger.Warn("failed to publish event", "channel", channel, "error", err.Error())
	}
}
