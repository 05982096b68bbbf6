// Package httpfetch downloads pages over plain HTTP.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const maxRedirects = 10

// Fetcher implements repository.PageFetcher with resty. One client is kept
// per proxy because resty binds the proxy to the client transport.
type Fetcher struct {
	direct  *resty.Client
	proxied []*resty.Client
	rotator *Rotator
	logger  *zap.Logger
}

func NewFetcher(timeout time.Duration, proxies []string, logger *zap.Logger) *Fetcher {
	f := &Fetcher{
		direct:  newClient(timeout),
		rotator: NewRotator(proxies),
		logger:  logger,
	}
	for _, p := range proxies {
		f.proxied = append(f.proxied, newClient(timeout).SetProxy(p))
	}
	return f
}

func newClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
}

func (f *Fetcher) client() *resty.Client {
	if i := f.rotator.NextProxy(); i >= 0 {
		return f.proxied[i]
	}
	return f.direct
}

// Fetch downloads url and classifies failures into the repository errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*entity.Page, error) {
	start := time.Now()
	resp, err := f.client().R().
		SetContext(ctx).
		SetHeader("User-Agent", f.rotator.UserAgent()).
		Get(url)
	elapsed := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s: %v", repository.ErrFetchTimeout, url, err)
		}
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusUnavailableForLegalReasons:
		return nil, fmt.Errorf("%w: %s returned %d", repository.ErrContentRestricted, url, code)
	case code < 200 || code > 299:
		return nil, fmt.Errorf("%w: %s returned %d", repository.ErrUnexpectedStatus, url, code)
	}

	finalURL := url
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}
	f.logger.Debug("fetched page",
		zap.String("url", url),
		zap.String("final_url", finalURL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", elapsed),
	)

	return &entity.Page{
		URL:            url,
		FinalURL:       finalURL,
		StatusCode:     resp.StatusCode(),
		HTML:           string(resp.Body()),
		ResponseTimeMS: elapsed.Milliseconds(),
		FetchedAt:      time.Now().UTC(),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
