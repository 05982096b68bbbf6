package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/scrapex-service/pkg/utils"
)

const scrapedURLPrefix = "scrapex:scraped:"

// DedupRepoImpl implements repository.DedupRepository with expiring keys.
type DedupRepoImpl struct {
	client *redis.Client
}

func NewDedupRepo(client *redis.Client) *DedupRepoImpl {
	return &DedupRepoImpl{client: client}
}

// generateKey hashes the URL so arbitrary input makes a safe key.
func (r *DedupRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", scrapedURLPrefix, utils.HashURL(url))
}

func (r *DedupRepoImpl) MarkScraped(ctx context.Context, url string, window time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(url), "1", window).Err()
}

// Claim sets the key only if it is absent, so concurrent submits of one URL
// see exactly one winner.
func (r *DedupRepoImpl) Claim(ctx context.Context, url string, window time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.generateKey(url), "1", window).Result()
}

func (r *DedupRepoImpl) Forget(ctx context.Context, url string) error {
	return r.client.Del(ctx, r.generateKey(url)).Err()
}
