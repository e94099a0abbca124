package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/farewatch-api/internal/model"
)

// All repository interfaces in one file
type (
	// DestinationRepository reads the configured destination set. The
	// pipeline never writes destinations.
	DestinationRepository interface {
		ListActive(ctx context.Context) ([]*model.Destination, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Destination, error)
	}

	// PriceRepository owns the append-only observation log and the derived
	// statistics cache.
	PriceRepository interface {
		RecordObservation(ctx context.Context, destinationID uuid.UUID, price float64, outboundDate time.Time) (uuid.UUID, error)
		RefreshStatistics(ctx context.Context, destinationID uuid.UUID) (*model.PriceStatistics, error)
	}

	SubscriptionRepository interface {
		ListActiveForDestination(ctx context.Context, destinationID uuid.UUID) ([]*model.SubscriptionWithPreference, error)
		UpdateLastAlertSentAt(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	}

	// AlertRepository owns AlertEvent creation. CreateWithMessage writes the
	// alert and its queued message in one transaction so neither can exist
	// without the other.
	AlertRepository interface {
		CreateWithMessage(ctx context.Context, event *model.AlertEvent, msg *model.QueuedMessage) error
		CountForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
		SetEmailOpened(ctx context.Context, id uuid.UUID) error
		SetLinkClicked(ctx context.Context, id uuid.UUID) error
	}

	QueueRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error)
		ClaimPending(ctx context.Context, limit int) ([]*model.QueuedMessage, error)
		MarkSent(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, sendErr string, retryAt *time.Time) error
		MarkOpened(ctx context.Context, id uuid.UUID) error
		MarkClicked(ctx context.Context, id uuid.UUID) error
		PendingCount(ctx context.Context) (int, error)
		DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
