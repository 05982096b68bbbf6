package repository

import (
	"context"
	"time"

	"github.com/user/scrapex-service/internal/entity"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	GetForUser(ctx context.Context, userID, id string) (*entity.Payment, error)
	// UpdateStatus is a compare-and-set: it returns ErrStaleStatus when the
	// payment is no longer in status from.
	UpdateStatus(ctx context.Context, id string, from, to entity.PaymentStatus) error
	List(ctx context.Context, userID string) ([]*entity.Payment, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *entity.APIKey) error
	// FindActiveByHash returns ErrNotFound for unknown or revoked keys.
	FindActiveByHash(ctx context.Context, hash string) (*entity.APIKey, error)
	List(ctx context.Context, userID string) ([]*entity.APIKey, error)
	Revoke(ctx context.Context, userID, id string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
