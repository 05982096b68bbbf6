package repository

import (
	"context"

	"github.com/user/scrapex-service/internal/entity"
)

// CallRepository stores outbound call records.
type CallRepository interface {
	Create(ctx context.Context, call *entity.CallRecord) error
	Update(ctx context.Context, call *entity.CallRecord) error
	GetByCallID(ctx context.Context, callID string) (*entity.CallRecord, error)
	// List filters by facility name when it is non-empty.
	List(ctx context.Context, userID, facilityName string) ([]*entity.CallRecord, error)
}
