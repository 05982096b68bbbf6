// Package supabase verifies platform-issued access tokens.
package supabase

import (
	"context"
	"errors"
	"fmt"

	supa "github.com/nedpals/supabase-go"

	"github.com/user/scrapex-service/internal/repository"
)

var ErrInvalidToken = errors.New("invalid access token")

// Verifier resolves Supabase JWTs to user ids by asking the auth server.
type Verifier struct {
	client *supa.Client
}

// NewVerifier returns a verifier, or nil when the project is not configured.
func NewVerifier(url, anonKey string) *Verifier {
	if url == "" || anonKey == "" {
		return nil
	}
	return &Verifier{client: supa.CreateClient(url, anonKey)}
}

func (v *Verifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if v == nil || v.client == nil {
		return "", repository.ErrProviderNotConfigured
	}
	user, err := v.client.Auth.User(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if user == nil || user.ID == "" {
		return "", ErrInvalidToken
	}
	return user.ID, nil
}
