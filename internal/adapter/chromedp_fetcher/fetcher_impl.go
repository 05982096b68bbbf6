package chromedp_fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36`

// ChromedpFetcher renders pages in headless Chrome. A fixed set of exec
// allocators is shared by the workers; each fetch borrows one.
type ChromedpFetcher struct {
	allocators chan context.Context
	cancels    []context.CancelFunc
	timeout    time.Duration
	logger     *zap.Logger
	closeOnce  sync.Once
}

// NewChromedpFetcher starts maxConcurrency allocators.
func NewChromedpFetcher(maxConcurrency int, pageLoadTimeout time.Duration, logger *zap.Logger) *ChromedpFetcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	f := &ChromedpFetcher{
		allocators: make(chan context.Context, maxConcurrency),
		timeout:    pageLoadTimeout,
		logger:     logger,
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	for i := 0; i < maxConcurrency; i++ {
		allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
		f.allocators <- allocCtx
		f.cancels = append(f.cancels, cancel)
	}
	return f
}

// Fetch navigates to url, waits for the body and returns the rendered HTML.
func (f *ChromedpFetcher) Fetch(ctx context.Context, url string) (*entity.Page, error) {
	var allocCtx context.Context
	select {
	case allocCtx = <-f.allocators:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrFetchTimeout, url, ctx.Err())
	}
	defer func() { f.allocators <- allocCtx }()

	taskCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(f.logger.Sugar().Debugf))
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.timeout)
	defer cancelTimeout()
	// Stop the browser tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var mu sync.Mutex
	statusCode := 0
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			mu.Lock()
			if statusCode == 0 {
				statusCode = int(resp.Response.Status)
			}
			mu.Unlock()
		}
	})

	var html, finalURL string
	start := time.Now()
	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	elapsed := time.Since(start)
	if err != nil {
		if taskCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", repository.ErrFetchTimeout, url, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}

	mu.Lock()
	code := statusCode
	mu.Unlock()
	if code == 0 {
		code = 200
	}
	switch {
	case code == 401 || code == 403 || code == 451:
		return nil, fmt.Errorf("%w: %s returned %d", repository.ErrContentRestricted, url, code)
	case code < 200 || code > 299:
		return nil, fmt.Errorf("%w: %s returned %d", repository.ErrUnexpectedStatus, url, code)
	}

	f.logger.Info("rendered page", zap.String("url", url), zap.Int("status", code), zap.Duration("elapsed", elapsed))
	return &entity.Page{
		URL:            url,
		FinalURL:       finalURL,
		StatusCode:     code,
		HTML:           html,
		ResponseTimeMS: elapsed.Milliseconds(),
		FetchedAt:      time.Now().UTC(),
	}, nil
}

// Close shuts down every browser process.
func (f *ChromedpFetcher) Close() {
	f.closeOnce.Do(func() {
		for _, cancel := range f.cancels {
			cancel()
		}
	})
}
