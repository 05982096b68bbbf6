package repository

import (
	"context"
	"errors"

	"github.com/user/scrapex-service/internal/entity"
)

var (
	ErrFetchTimeout      = errors.New("page fetch timed out")
	ErrNavigationFailed  = errors.New("navigation failed")
	ErrContentRestricted = errors.New("content is restricted or requires authentication")
	ErrUnexpectedStatus  = errors.New("unexpected HTTP status")
)

// PageFetcher retrieves the HTML of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*entity.Page, error)
}
