package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/farewatch-api/internal/repository"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
)

// QueueCleanupWorker prunes delivered messages past the retention window.
// Alert events are never pruned; they are the analytics record.
type QueueCleanupWorker struct {
	queue           repository.QueueRepository
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
}

func NewQueueCleanupWorker(queue repository.QueueRepository, retentionDays int, cleanupInterval time.Duration, logger *logger.Logger) *QueueCleanupWorker {
	// Config validation instead of defaults
	if retentionDays <= 0 {
		panic("retentionDays must be greater than 0")
	}
	if cleanupInterval <= 0 {
		panic("cleanupInterval must be greater than 0")
	}
	return &QueueCleanupWorker{
		queue:           queue,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          logger,
	}
}

func (w *QueueCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cleanup(ctx); err != nil {
				w.logger.Error(err, "Failed to clean up email queue")
			}
		}
	}
}

func (w *QueueCleanupWorker) cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.queue.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if rows > 0 {
		w.logger.Info("Pruned sent messages from email queue",
			"rows", rows, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
