package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/pkg/metrics"
)

const (
	crmSyncFanOut = 8
	maxSyncLeads  = 500
	maxExportRows = 5000
)

type SyncSummary struct {
	Total   int                     `json:"total"`
	Synced  int                     `json:"synced"`
	Failed  int                     `json:"failed"`
	Results []entity.LeadSyncResult `json:"results"`
}

type ExportResult struct {
	Exported   int `json:"exported"`
	StatusCode int `json:"status_code"`
}

// CRMSyncer pushes leads to GoHighLevel and rows to the spreadsheet hook.
type CRMSyncer interface {
	SyncLeads(ctx context.Context, leads []entity.Lead) (*SyncSummary, error)
	ExportRows(ctx context.Context, rows []map[string]any) (*ExportResult, error)
}

type ghlContact struct {
	CompanyName string   `json:"companyName"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Address1    string   `json:"address1,omitempty"`
	Website     string   `json:"website,omitempty"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
	LeadScore   int      `json:"lead_score"`
	Urgency     string   `json:"urgency,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type crmUseCase struct {
	poster         repository.WebhookPoster
	ghlURL         string
	sheetsURL      string
	maxAttempts    int
	initialBackoff time.Duration
	logger         *zap.Logger
}

// NewCRMSyncer creates a CRMSyncer. Each lead gets up to maxAttempts POSTs,
// waiting initialBackoff before the second and doubling after that.
func NewCRMSyncer(
	poster repository.WebhookPoster,
	ghlURL, sheetsURL string,
	maxAttempts int,
	initialBackoff time.Duration,
	logger *zap.Logger,
) CRMSyncer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &crmUseCase{
		poster:         poster,
		ghlURL:         ghlURL,
		sheetsURL:      sheetsURL,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		logger:         logger,
	}
}

func (uc *crmUseCase) SyncLeads(ctx context.Context, leads []entity.Lead) (*SyncSummary, error) {
	if uc.ghlURL == "" {
		return nil, fmt.Errorf("GoHighLevel sync: %w", repository.ErrProviderNotConfigured)
	}
	if len(leads) == 0 {
		return nil, fmt.Errorf("%w: leads must not be empty", ErrInvalidInput)
	}
	if len(leads) > maxSyncLeads {
		return nil, fmt.Errorf("%w: at most %d leads per request", ErrInvalidInput, maxSyncLeads)
	}

	results := make([]entity.LeadSyncResult, len(leads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(crmSyncFanOut)
	for i, lead := range leads {
		g.Go(func() error {
			results[i] = uc.syncLead(gctx, lead)
			return nil
		})
	}
	_ = g.Wait()

	summary := &SyncSummary{Total: len(leads), Results: results}
	for _, r := range results {
		if r.Success {
			summary.Synced++
		} else {
			summary.Failed++
		}
	}
	uc.logger.Info("CRM sync finished",
		zap.Int("total", summary.Total),
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (uc *crmUseCase) syncLead(ctx context.Context, lead entity.Lead) entity.LeadSyncResult {
	result := entity.LeadSyncResult{FacilityName: lead.FacilityName}
	if strings.TrimSpace(lead.FacilityName) == "" {
		result.Error = "facility_name is required"
		return result
	}
	body, err := json.Marshal(toGHLContact(lead))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(uc.newBackOff(), uint64(uc.maxAttempts-1)),
		ctx,
	)
	attempt := func() error {
		result.Attempts++

		status, err := uc.poster.PostJSON(ctx, uc.ghlURL, body, nil)
		if err != nil {
			metrics.CRMSyncAttemptsTotal.WithLabelValues("error").Inc()
			return err
		}
		if status >= 200 && status < 300 {
			metrics.CRMSyncAttemptsTotal.WithLabelValues("success").Inc()
			return nil
		}
		statusErr := fmt.Errorf("%w: GoHighLevel responded with status %d", ErrUpstream, status)
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			metrics.CRMSyncAttemptsTotal.WithLabelValues("rejected").Inc()
			return backoff.Permanent(statusErr)
		}
		metrics.CRMSyncAttemptsTotal.WithLabelValues("retryable").Inc()
		return statusErr
	}
	notify := func(err error, wait time.Duration) {
		uc.logger.Warn("CRM sync attempt failed, retrying",
			zap.String("facility_name", lead.FacilityName),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		result.Error = err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Error = "sync cancelled: " + err.Error()
		}
		return result
	}
	result.Success = true
	return result
}

// newBackOff doubles from the initial delay with no jitter and no overall
// deadline; the attempt cap bounds the total.
func (uc *crmUseCase) newBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(uc.initialBackoff),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(time.Hour),
		backoff.WithMaxElapsedTime(0),
	)
}

func toGHLContact(l entity.Lead) ghlContact {
	tags := []string{"scrapex"}
	if l.Urgency != "" {
		tags = append(tags, "urgency-"+strings.ToLower(l.Urgency))
	}
	return ghlContact{
		CompanyName: l.FacilityName,
		Name:        l.FacilityName,
		Phone:       l.Phone,
		Email:       l.Email,
		Address1:    l.Address,
		Website:     l.URL,
		Source:      "ScrapeX",
		Tags:        tags,
		LeadScore:   l.LeadScore,
		Urgency:     l.Urgency,
		Notes:       l.Notes,
	}
}

func (uc *crmUseCase) ExportRows(ctx context.Context, rows []map[string]any) (*ExportResult, error) {
	if uc.sheetsURL == "" {
		return nil, fmt.Errorf("sheets export: %w", repository.ErrProviderNotConfigured)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: rows must not be empty", ErrInvalidInput)
	}
	if len(rows) > maxExportRows {
		return nil, fmt.Errorf("%w: at most %d rows per export", ErrInvalidInput, maxExportRows)
	}

	body, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		return nil, fmt.Errorf("%w: rows are not serialisable: %v", ErrInvalidInput, err)
	}
	status, err := uc.poster.PostJSON(ctx, uc.sheetsURL, body, nil)
	if err != nil {
		return nil, fmt.Errorf("sheets export: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: sheets webhook responded with status %d", ErrUpstream, status)
	}
	uc.logger.Info("Rows exported to sheets", zap.Int("rows", len(rows)))
	return &ExportResult{Exported: len(rows), StatusCode: status}, nil
}
