package repository

import (
	"context"

	"github.com/user/scrapex-service/internal/entity"
)

// EventPublisher pushes job status changes onto the realtime change feed.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event entity.JobEvent) error
}
