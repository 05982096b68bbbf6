package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment mirrors the `payments` PostgreSQL table schema.
type Payment struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Provider      string        `json:"provider"`
	PaymentLinkID string        `json:"payment_link_id"`
	ProviderRef   string        `json:"provider_ref,omitempty"` // Square order id
	CheckoutURL   string        `json:"checkout_url"`
	PlanName      string        `json:"plan_name"`
	Amount        int64         `json:"amount"` // minor units
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Plan is a purchasable subscription tier.
type Plan struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Plans lists the tiers sold through checkout.
var Plans = map[string]Plan{
	"starter":      {Name: "starter", Amount: 4900, Currency: "USD"},
	"professional": {Name: "professional", Amount: 14900, Currency: "USD"},
	"enterprise":   {Name: "enterprise", Amount: 49900, Currency: "USD"},
}

// APIKey mirrors the `api_keys` PostgreSQL table schema. Only the SHA-256
// hash of the key is stored.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	KeyHash    string     `json:"-"`
	Active     bool       `json:"active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
