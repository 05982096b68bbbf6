package repository

import (
	"context"
	"errors"

	"github.com/user/scrapex-service/internal/entity"
)

// ErrProviderNotConfigured is returned by clients built without credentials.
var ErrProviderNotConfigured = errors.New("provider is not configured")

// TextGenerator is a generative-AI completion API.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// CallRequest is what a voice provider needs to place a call.
type CallRequest struct {
	RecordID     string
	FacilityName string
	PhoneNumber  string
	Script       string
	Metadata     map[string]string
}

// ProviderCall is the provider's view of a call right after it was placed.
// Simulated providers may report a terminal status immediately.
type ProviderCall struct {
	CallID          string
	Status          entity.CallStatus
	Outcome         string
	DurationSeconds int
	Transcript      string
}

// VoiceProvider places outbound AI phone calls.
type VoiceProvider interface {
	Name() string
	StartCall(ctx context.Context, req CallRequest) (*ProviderCall, error)
}

// CheckoutRequest describes a payment link to create.
type CheckoutRequest struct {
	PaymentID string
	Plan      entity.Plan
}

// Checkout is a created payment link.
type Checkout struct {
	PaymentLinkID string
	ProviderRef   string
	URL           string
}

// PaymentProcessor creates checkouts and reports their status.
type PaymentProcessor interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	CheckStatus(ctx context.Context, p *entity.Payment) (entity.PaymentStatus, error)
}

// MXRecord is one mail exchanger for a domain.
type MXRecord struct {
	Preference int    `json:"preference"`
	Host       string `json:"host"`
}

// MXResolver looks up mail exchangers for a domain.
type MXResolver interface {
	LookupMX(ctx context.Context, domain string) ([]MXRecord, error)
}

// WebhookPoster POSTs a JSON body to an outside URL and returns the status code.
type WebhookPoster interface {
	PostJSON(ctx context.Context, url string, body []byte, headers map[string]string) (int, error)
}

// TokenVerifier resolves a platform-issued JWT to a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}
