package repository

import (
	"context"
	"time"
)

// DedupRepository remembers which URLs were scraped recently.
type DedupRepository interface {
	// Claim records the URL for the given window and reports false when it
	// was already recorded. The check and the write are one operation.
	Claim(ctx context.Context, url string, window time.Duration) (bool, error)
	// MarkScraped records the URL unconditionally, used by forced scrapes.
	MarkScraped(ctx context.Context, url string, window time.Duration) error
	// Forget drops the URL, used by forced re-scrapes.
	Forget(ctx context.Context, url string) error
}
