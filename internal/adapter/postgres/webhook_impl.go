package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/scrapex-service/internal/entity"
)

// WebhookRepoImpl implements repository.WebhookRepository on PostgreSQL.
type WebhookRepoImpl struct {
	db *pgxpool.Pool
}

func NewWebhookRepo(db *pgxpool.Pool) *WebhookRepoImpl {
	return &WebhookRepoImpl{db: db}
}

func (r *WebhookRepoImpl) Create(ctx context.Context, w *entity.Webhook) error {
	events := w.Events
	if events == nil {
		events = []string{}
	}
	query := `
		INSERT INTO webhooks (id, user_id, url, secret, events, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db.Exec(ctx, query, w.ID, w.UserID, w.URL, w.Secret, events, w.Active, w.CreatedAt)
	return err
}

func (r *WebhookRepoImpl) ListActive(ctx context.Context, userID string) ([]*entity.Webhook, error) {
	query := `
		SELECT id, user_id, url, secret, events, active, created_at
		FROM webhooks
		WHERE user_id = $1 AND active
		ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hooks := []*entity.Webhook{}
	for rows.Next() {
		var w entity.Webhook
		if err := rows.Scan(&w.ID, &w.UserID, &w.URL, &w.Secret, &w.Events, &w.Active, &w.CreatedAt); err != nil {
			return nil, err
		}
		hooks = append(hooks, &w)
	}
	return hooks, rows.Err()
}

func (r *WebhookRepoImpl) SaveDelivery(ctx context.Context, d *entity.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (id, webhook_id, event, url, status_code, success, error, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db.Exec(ctx, query, d.ID, d.WebhookID, d.Event, d.URL, d.StatusCode, d.Success, d.Error, d.DeliveredAt)
	return err
}
