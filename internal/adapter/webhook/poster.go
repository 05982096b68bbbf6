// Package webhook POSTs JSON documents to outside endpoints: user webhooks,
// the CRM intake hook and the spreadsheet export hook.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Poster struct {
	client *resty.Client
}

func NewPoster(timeout time.Duration) *Poster {
	return &Poster{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "ScrapeX-Webhooks/1.0").
			SetRedirectPolicy(resty.NoRedirectPolicy()),
	}
}

// PostJSON sends body as-is so that signatures computed over it stay valid.
// A non-2xx status is not an error; callers decide what it means.
func (p *Poster) PostJSON(ctx context.Context, url string, body []byte, headers map[string]string) (int, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		Post(url)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", url, err)
	}
	return resp.StatusCode(), nil
}
