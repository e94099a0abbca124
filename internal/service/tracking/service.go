// Package tracking records email engagement (opens and clicks) against
// both the queued message and the alert event it links back to. Both
// operations are idempotent: re-marking a flag is a no-op.
package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/farewatch-api/internal/model"
	"github.com/jwalitptl/farewatch-api/internal/repository"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
)

type Service struct {
	queue  repository.QueueRepository
	alerts repository.AlertRepository
	logger *logger.Logger
}

func NewService(queue repository.QueueRepository, alerts repository.AlertRepository, logger *logger.Logger) *Service {
	return &Service{
		queue:  queue,
		alerts: alerts,
		logger: logger,
	}
}

// MarkOpened flags the queued message as opened and propagates the flag
// to the linked alert event.
func (s *Service) MarkOpened(ctx context.Context, queueID uuid.UUID) error {
	msg, err := s.queue.Get(ctx, queueID)
	if err != nil {
		return fmt.Errorf("failed to resolve queued message: %w", err)
	}

	if err := s.queue.MarkOpened(ctx, queueID); err != nil {
		return err
	}

	if msg.EmailType == model.EmailTypePriceAlert {
		if err := s.alerts.SetEmailOpened(ctx, msg.AlertEventID); err != nil {
			// The queue flag is already set; engagement analytics can
			// reconcile from it.
			s.logger.Error(err, "failed to propagate open flag to alert",
				"alert_event_id", msg.AlertEventID.String())
		}
	}

	return nil
}

// MarkClicked flags the queued message as clicked and propagates the flag
// to the linked alert event.
func (s *Service) MarkClicked(ctx context.Context, queueID uuid.UUID) error {
	msg, err := s.queue.Get(ctx, queueID)
	if err != nil {
		return fmt.Errorf("failed to resolve queued message: %w", err)
	}

	if err := s.queue.MarkClicked(ctx, queueID); err != nil {
		return err
	}

	if msg.EmailType == model.EmailTypePriceAlert {
		if err := s.alerts.SetLinkClicked(ctx, msg.AlertEventID); err != nil {
			s.logger.Error(err, "failed to propagate click flag to alert",
				"alert_event_id", msg.AlertEventID.String())
		}
	}

	return nil
}
