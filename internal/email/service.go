package email

import (
	"context"

	"github.com/jwalitptl/farewatch-api/internal/model"
)

type Service interface {
	SendPriceAlert(ctx context.Context, msg *model.QueuedMessage) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}
