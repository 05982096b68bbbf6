package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/scrapex-service/internal/entity"
)

// JobEventsChannel carries every job status change as JSON.
const JobEventsChannel = "scrapex:jobs"

// EventPublisherImpl implements repository.EventPublisher with PUBLISH.
type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (p *EventPublisherImpl) PublishJobEvent(ctx context.Context, event entity.JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	return p.client.Publish(ctx, JobEventsChannel, payload).Err()
}
