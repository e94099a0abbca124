package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/farewatch-api/internal/email"
	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
	"github.com/jwalitptl/farewatch-api/pkg/metrics"
)

type DispatcherConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// Dispatcher drains the email queue: it claims pending messages, sends
// them, and records the outcome. Delivery is at-least-once; the sent
// status transition is idempotent.
type Dispatcher struct {
	queue    repository.QueueRepository
	emailSvc email.Service
	config   DispatcherConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(
	queue repository.QueueRepository,
	emailSvc email.Service,
	config DispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		panic("MaxRetries must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &Dispatcher{
		queue:    queue,
		emailSvc: emailSvc,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("Starting email dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Shutting down email dispatcher")
			return
		case <-ticker.C:
			if err := d.processBatch(ctx); err != nil {
				d.logger.Error(err, "Failed to process email batch")
			}
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	if depth, err := d.queue.PendingCount(ctx); err == nil {
		d.metrics.QueueDepth.Set(float64(depth))
	}

	messages, err := d.queue.ClaimPending(ctx, d.config.BatchSize)
	if err != nil {
		d.metrics.DatabaseOperations.WithLabelValues("claim_pending", "error").Inc()
		return fmt.Errorf("failed to claim pending messages: %w", err)
	}
	d.metrics.DatabaseOperations.WithLabelValues("claim_pending", "success").Inc()

	for _, msg := range messages {
		if err := d.dispatch(ctx, msg); err != nil {
			d.logger.Error(err, "Failed to dispatch message",
				"message_id", msg.ID.String(),
				"email_type", msg.EmailType)
			continue
		}
	}

	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *model.QueuedMessage) error {
	var sendErr error
	switch msg.EmailType {
	case model.EmailTypePriceAlert:
		sendErr = d.emailSvc.SendPriceAlert(ctx, msg)
	default:
		sendErr = fmt.Errorf("unsupported email type: %s", msg.EmailType)
	}

	if sendErr != nil {
		d.metrics.EmailsFailed.Inc()

		var retryAt *time.Time
		if msg.RetryCount+1 < d.config.MaxRetries {
			// Linear backoff keyed on how often this message failed before.
			at := time.Now().Add(d.config.RetryDelay * time.Duration(msg.RetryCount+1))
			retryAt = &at
		}
		if err := d.queue.MarkFailed(ctx, msg.ID, sendErr.Error(), retryAt); err != nil {
			d.logger.Error(err, "Failed to update message status", "message_id", msg.ID.String())
		}
		return sendErr
	}

	if err := d.queue.MarkSent(ctx, msg.ID); err != nil {
		d.logger.Error(err, "Failed to mark message sent", "message_id", msg.ID.String())
		return err
	}

	d.metrics.EmailsDispatched.Inc()
	return nil
}
