package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const paymentColumns = `id, user_id, provider, payment_link_id, provider_ref, checkout_url, plan_name, amount, currency, status, created_at, updated_at`

// PaymentRepoImpl implements repository.PaymentRepository on PostgreSQL.
type PaymentRepoImpl struct {
	db *pgxpool.Pool
}

func NewPaymentRepo(db *pgxpool.Pool) *PaymentRepoImpl {
	return &PaymentRepoImpl{db: db}
}

func (r *PaymentRepoImpl) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.UserID, p.Provider, p.PaymentLinkID, p.ProviderRef, p.CheckoutURL,
		p.PlanName, p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *PaymentRepoImpl) GetForUser(ctx context.Context, userID, id string) (*entity.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND user_id = $2;`, id, userID)
	return scanPayment(row)
}

func (r *PaymentRepoImpl) UpdateStatus(ctx context.Context, id string, from, to entity.PaymentStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE payments SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2;`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1);`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleStatus
}

func (r *PaymentRepoImpl) List(ctx context.Context, userID string) ([]*entity.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*entity.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.Provider, &p.PaymentLinkID, &p.ProviderRef, &p.CheckoutURL,
		&p.PlanName, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

const apiKeyColumns = `id, user_id, name, key_prefix, key_hash, active, last_used_at, created_at`

// APIKeyRepoImpl implements repository.APIKeyRepository on PostgreSQL.
type APIKeyRepoImpl struct {
	db *pgxpool.Pool
}

func NewAPIKeyRepo(db *pgxpool.Pool) *APIKeyRepoImpl {
	return &APIKeyRepoImpl{db: db}
}

func (r *APIKeyRepoImpl) Create(ctx context.Context, k *entity.APIKey) error {
	query := `
		INSERT INTO api_keys (` + apiKeyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db.Exec(ctx, query, k.ID, k.UserID, k.Name, k.KeyPrefix, k.KeyHash, k.Active, k.LastUsedAt, k.CreatedAt)
	return err
}

func (r *APIKeyRepoImpl) FindActiveByHash(ctx context.Context, hash string) (*entity.APIKey, error) {
	row := r.db.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1 AND active;`, hash)
	return scanAPIKey(row)
}

func (r *APIKeyRepoImpl) List(ctx context.Context, userID string) ([]*entity.APIKey, error) {
	rows, err := r.db.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []*entity.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke deactivates a key owned by userID.
func (r *APIKeyRepoImpl) Revoke(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE api_keys SET active = FALSE WHERE id = $1 AND user_id = $2 AND active;`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepoImpl) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1;`, id, at)
	return err
}

func scanAPIKey(row rowScanner) (*entity.APIKey, error) {
	var k entity.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyPrefix, &k.KeyHash, &k.Active, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &k, nil
}
