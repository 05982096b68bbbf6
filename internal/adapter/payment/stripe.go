// Package payment creates and verifies hosted checkouts.
package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const DefaultStripeBaseURL = "https://api.stripe.com"

type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`         // open, complete, expired
	PaymentStatus string `json:"payment_status"` // paid, unpaid, no_payment_required
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stripe uses Checkout Sessions.
type Stripe struct {
	http       *resty.Client
	secretKey  string
	successURL string
	cancelURL  string
}

func NewStripe(baseURL, secretKey, successURL, cancelURL string, timeout time.Duration) *Stripe {
	return &Stripe{
		http:       resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) CreateCheckout(ctx context.Context, req repository.CheckoutRequest) (*repository.Checkout, error) {
	if s.secretKey == "" {
		return nil, repository.ErrProviderNotConfigured
	}

	form := map[string]string{
		"mode":                                          "payment",
		"success_url":                                   s.successURL + "?payment_id=" + req.PaymentID,
		"cancel_url":                                    s.cancelURL + "?payment_id=" + req.PaymentID,
		"client_reference_id":                           req.PaymentID,
		"metadata[payment_id]":                          req.PaymentID,
		"metadata[plan]":                                req.Plan.Name,
		"line_items[0][quantity]":                       "1",
		"line_items[0][price_data][currency]":           strings.ToLower(req.Plan.Currency),
		"line_items[0][price_data][unit_amount]":        strconv.FormatInt(req.Plan.Amount, 10),
		"line_items[0][price_data][product_data][name]": "ScrapeX " + titlePlan(req.Plan.Name) + " plan",
	}

	var session stripeSession
	var apiErr stripeError
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(s.secretKey).
		SetHeader("Idempotency-Key", req.PaymentID).
		SetFormData(form).
		SetResult(&session).
		SetError(&apiErr).
		Post("/v1/checkout/sessions")
	if err != nil {
		return nil, fmt.Errorf("stripe request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("stripe returned %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return &repository.Checkout{PaymentLinkID: session.ID, URL: session.URL}, nil
}

func (s *Stripe) CheckStatus(ctx context.Context, p *entity.Payment) (entity.PaymentStatus, error) {
	if s.secretKey == "" {
		return "", repository.ErrProviderNotConfigured
	}

	var session stripeSession
	var apiErr stripeError
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(s.secretKey).
		SetPathParam("id", p.PaymentLinkID).
		SetResult(&session).
		SetError(&apiErr).
		Get("/v1/checkout/sessions/{id}")
	if err != nil {
		return "", fmt.Errorf("stripe request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("stripe returned %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}

	switch {
	case session.PaymentStatus == "paid":
		return entity.PaymentStatusCompleted, nil
	case session.Status == "expired":
		return entity.PaymentStatusFailed, nil
	default:
		return entity.PaymentStatusPending, nil
	}
}

func titlePlan(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
