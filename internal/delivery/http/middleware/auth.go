package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/delivery/http/response"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/usecase"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated principal, or "" outside the auth group.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID stores the principal on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Authenticator accepts ScrapeX API keys and platform JWTs as bearer tokens.
type Authenticator struct {
	keys   usecase.APIKeyManager
	tokens repository.TokenVerifier
	logger *zap.Logger
}

// NewAuthenticator builds the middleware. tokens may be nil, in which case
// only API keys are accepted.
func NewAuthenticator(keys usecase.APIKeyManager, tokens repository.TokenVerifier, logger *zap.Logger) *Authenticator {
	return &Authenticator{keys: keys, tokens: tokens, logger: logger}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
			return
		}

		userID, err := a.resolve(r.Context(), token)
		if err != nil {
			if !errors.Is(err, usecase.ErrInvalidAPIKey) {
				a.logger.Warn("Authentication failed", zap.Error(err))
			}
			response.Error(w, http.StatusUnauthorized, "Invalid or expired credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (a *Authenticator) resolve(ctx context.Context, token string) (string, error) {
	if strings.HasPrefix(token, usecase.APIKeyPrefix) {
		key, err := a.keys.Authenticate(ctx, token)
		if err != nil {
			return "", err
		}
		return key.UserID, nil
	}
	if a.tokens == nil {
		return "", repository.ErrProviderNotConfigured
	}
	return a.tokens.VerifyToken(ctx, token)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
