package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/pkg/metrics"
	"github.com/user/scrapex-service/pkg/utils"
)

const (
	SignatureHeader = "X-ScrapeX-Signature"
	EventHeader     = "X-ScrapeX-Event"
	DeliveryHeader  = "X-ScrapeX-Delivery"

	webhookFanOut = 8
)

var knownEvents = map[string]bool{
	"*":                          true,
	entity.EventJobCompleted:     true,
	entity.EventJobFailed:        true,
	entity.EventCallInitiated:    true,
	entity.EventCallUpdated:      true,
	entity.EventPaymentCompleted: true,
}

// EventDispatcher fans an event out to the user's webhooks.
type EventDispatcher interface {
	Dispatch(ctx context.Context, userID, event string, data any) (*DispatchSummary, error)
}

// RegisteredWebhook carries the signing secret, which is only shown once.
type RegisteredWebhook struct {
	*entity.Webhook
	Secret string `json:"secret"`
}

type DispatchSummary struct {
	Event      string                   `json:"event"`
	Delivered  int                      `json:"delivered"`
	Failed     int                      `json:"failed"`
	Deliveries []entity.WebhookDelivery `json:"deliveries"`
}

type WebhookManager interface {
	EventDispatcher
	Register(ctx context.Context, userID, endpoint string, events []string) (*RegisteredWebhook, error)
	List(ctx context.Context, userID string) ([]*entity.Webhook, error)
}

type webhookUseCase struct {
	repo   repository.WebhookRepository
	poster repository.WebhookPoster
	logger *zap.Logger
}

func NewWebhookManager(repo repository.WebhookRepository, poster repository.WebhookPoster, logger *zap.Logger) WebhookManager {
	return &webhookUseCase{repo: repo, poster: poster, logger: logger}
}

func (uc *webhookUseCase) Register(ctx context.Context, userID, endpoint string, events []string) (*RegisteredWebhook, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: webhook url must be an absolute http(s) URL", ErrInvalidInput)
	}
	for _, e := range events {
		if !knownEvents[e] {
			return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidInput, e)
		}
	}

	secret, err := utils.RandomHex(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook secret: %w", err)
	}
	if events == nil {
		events = []string{}
	}
	w := &entity.Webhook{
		ID:        uuid.NewString(),
		UserID:    userID,
		URL:       endpoint,
		Secret:    "whsec_" + secret,
		Events:    events,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save webhook: %w", err)
	}
	return &RegisteredWebhook{Webhook: w, Secret: w.Secret}, nil
}

func (uc *webhookUseCase) List(ctx context.Context, userID string) ([]*entity.Webhook, error) {
	hooks, err := uc.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return hooks, nil
}

// Dispatch signs one payload per event and POSTs it to every subscribed
// webhook concurrently. Deliveries are attempted once; failures are recorded,
// not returned.
func (uc *webhookUseCase) Dispatch(ctx context.Context, userID, event string, data any) (*DispatchSummary, error) {
	if event == "" {
		return nil, fmt.Errorf("%w: event is required", ErrInvalidInput)
	}
	hooks, err := uc.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load webhooks: %w", err)
	}

	rawData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: event data is not serialisable: %v", ErrInvalidInput, err)
	}
	body, err := json.Marshal(entity.WebhookPayload{
		ID:        uuid.NewString(),
		Event:     event,
		Timestamp: time.Now().Unix(),
		Data:      rawData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	summary := &DispatchSummary{Event: event, Deliveries: []entity.WebhookDelivery{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(webhookFanOut)
	for _, hook := range hooks {
		if !hook.Subscribes(event) {
			continue
		}
		g.Go(func() error {
			d := uc.deliver(gctx, hook, event, body)
			mu.Lock()
			summary.Deliveries = append(summary.Deliveries, d)
			if d.Success {
				summary.Delivered++
			} else {
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	uc.logger.Info("Webhook event dispatched",
		zap.String("event", event),
		zap.String("user_id", userID),
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (uc *webhookUseCase) deliver(ctx context.Context, hook *entity.Webhook, event string, body []byte) entity.WebhookDelivery {
	d := entity.WebhookDelivery{
		ID:        uuid.NewString(),
		WebhookID: hook.ID,
		Event:     event,
		URL:       hook.URL,
	}
	headers := map[string]string{
		SignatureHeader: "sha256=" + utils.SignHMAC(hook.Secret, body),
		EventHeader:     event,
		DeliveryHeader:  d.ID,
	}

	status, err := uc.poster.PostJSON(ctx, hook.URL, body, headers)
	d.StatusCode = status
	d.DeliveredAt = time.Now().UTC()
	switch {
	case err != nil:
		d.Error = err.Error()
	case status < 200 || status >= 300:
		d.Error = fmt.Sprintf("endpoint responded with status %d", status)
	default:
		d.Success = true
	}

	result := "success"
	if !d.Success {
		result = "failure"
		uc.logger.Warn("Webhook delivery failed",
			zap.String("webhook_id", hook.ID),
			zap.String("url", hook.URL),
			zap.String("event", event),
			zap.String("error", d.Error),
		)
	}
	metrics.WebhookDeliveries.WithLabelValues(result).Inc()

	// Recording is best-effort; the caller's context may already be gone.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uc.repo.SaveDelivery(saveCtx, &d); err != nil {
		uc.logger.Warn("Failed to record webhook delivery", zap.String("webhook_id", hook.ID), zap.Error(err))
	}
	return d
}
