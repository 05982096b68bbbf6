package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/scrapex-service/internal/repository"
)

const jobQueueKey = "scrapex:queue"

// QueueRepoImpl implements repository.QueueRepository on a Redis list:
// LPUSH on submit, BRPOP in the workers.
type QueueRepoImpl struct {
	client *redis.Client
}

func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

func (r *QueueRepoImpl) Push(ctx context.Context, jobID string) error {
	return r.client.LPush(ctx, jobQueueKey, jobID).Err()
}

// Pop blocks for up to timeout. redis.Nil (nothing arrived) becomes
// repository.ErrQueueEmpty.
func (r *QueueRepoImpl) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := r.client.BRPop(ctx, timeout, jobQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	// BRPOP replies with [key, value].
	return res[1], nil
}

func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, jobQueueKey).Result()
}
