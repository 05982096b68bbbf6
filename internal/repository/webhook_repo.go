package repository

import (
	"context"

	"github.com/user/scrapex-service/internal/entity"
)

type WebhookRepository interface {
	Create(ctx context.Context, w *entity.Webhook) error
	ListActive(ctx context.Context, userID string) ([]*entity.Webhook, error)
	SaveDelivery(ctx context.Context, d *entity.WebhookDelivery) error
}
