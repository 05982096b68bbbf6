package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const squareVersion = "2024-06-04"

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type squareQuickPay struct {
	Name       string      `json:"name"`
	PriceMoney squareMoney `json:"price_money"`
	LocationID string      `json:"location_id"`
}

type squareCreateLink struct {
	IdempotencyKey  string         `json:"idempotency_key"`
	QuickPay        squareQuickPay `json:"quick_pay"`
	CheckoutOptions struct {
		RedirectURL string `json:"redirect_url,omitempty"`
	} `json:"checkout_options"`
	PaymentNote string `json:"payment_note,omitempty"`
}

type squareLinkResponse struct {
	PaymentLink struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		OrderID string `json:"order_id"`
	} `json:"payment_link"`
}

type squareOrderResponse struct {
	Order struct {
		ID    string `json:"id"`
		State string `json:"state"` // OPEN, COMPLETED, CANCELED, DRAFT
	} `json:"order"`
}

type squareErrors struct {
	Errors []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

func (e squareErrors) String() string {
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		parts = append(parts, err.Code+": "+err.Detail)
	}
	return strings.Join(parts, "; ")
}

// Square uses Online Checkout payment links and reads the linked order.
type Square struct {
	http        *resty.Client
	accessToken string
	locationID  string
	redirectURL string
}

func NewSquare(baseURL, accessToken, locationID, redirectURL string, timeout time.Duration) *Square {
	return &Square{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Square-Version", squareVersion).
			SetHeader("Content-Type", "application/json"),
		accessToken: accessToken,
		locationID:  locationID,
		redirectURL: redirectURL,
	}
}

func (s *Square) Name() string { return "square" }

func (s *Square) CreateCheckout(ctx context.Context, req repository.CheckoutRequest) (*repository.Checkout, error) {
	if s.accessToken == "" || s.locationID == "" {
		return nil, repository.ErrProviderNotConfigured
	}

	body := squareCreateLink{
		IdempotencyKey: uuid.NewString(),
		QuickPay: squareQuickPay{
			Name:       "ScrapeX " + titlePlan(req.Plan.Name) + " plan",
			PriceMoney: squareMoney{Amount: req.Plan.Amount, Currency: req.Plan.Currency},
			LocationID: s.locationID,
		},
		PaymentNote: "payment_id=" + req.PaymentID,
	}
	if s.redirectURL != "" {
		body.CheckoutOptions.RedirectURL = s.redirectURL + "?payment_id=" + req.PaymentID
	}

	var out squareLinkResponse
	var apiErr squareErrors
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(s.accessToken).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v2/online-checkout/payment-links")
	if err != nil {
		return nil, fmt.Errorf("square request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("square returned %d: %s", resp.StatusCode(), apiErr)
	}
	return &repository.Checkout{
		PaymentLinkID: out.PaymentLink.ID,
		ProviderRef:   out.PaymentLink.OrderID,
		URL:           out.PaymentLink.URL,
	}, nil
}

func (s *Square) CheckStatus(ctx context.Context, p *entity.Payment) (entity.PaymentStatus, error) {
	if s.accessToken == "" {
		return "", repository.ErrProviderNotConfigured
	}
	if p.ProviderRef == "" {
		return "", fmt.Errorf("square payment %s has no order id", p.ID)
	}

	var out squareOrderResponse
	var apiErr squareErrors
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(s.accessToken).
		SetPathParam("order_id", p.ProviderRef).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v2/orders/{order_id}")
	if err != nil {
		return "", fmt.Errorf("square request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("square returned %d: %s", resp.StatusCode(), apiErr)
	}

	switch out.Order.State {
	case "COMPLETED":
		return entity.PaymentStatusCompleted, nil
	case "CANCELED":
		return entity.PaymentStatusFailed, nil
	default:
		return entity.PaymentStatusPending, nil
	}
}
