package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/pkg/utils"
)

const (
	APIKeyPrefix    = "sx_"
	apiKeyRandBytes = 16
	keyPrefixLen    = len(APIKeyPrefix) + 8
)

// CreatedAPIKey is returned once at creation; Key is never stored.
type CreatedAPIKey struct {
	*entity.APIKey
	Key string `json:"key"`
}

type APIKeyManager interface {
	Create(ctx context.Context, userID, name string) (*CreatedAPIKey, error)
	List(ctx context.Context, userID string) ([]*entity.APIKey, error)
	Revoke(ctx context.Context, userID, id string) error
	// Authenticate resolves a raw key to its owner.
	Authenticate(ctx context.Context, rawKey string) (*entity.APIKey, error)
}

type apiKeyUseCase struct {
	keys   repository.APIKeyRepository
	logger *zap.Logger
}

func NewAPIKeyManager(keys repository.APIKeyRepository, logger *zap.Logger) APIKeyManager {
	return &apiKeyUseCase{keys: keys, logger: logger}
}

// HashAPIKey returns the hex SHA-256 stored for a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (uc *apiKeyUseCase) Create(ctx context.Context, userID, name string) (*CreatedAPIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	secret, err := utils.RandomHex(apiKeyRandBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	raw := APIKeyPrefix + secret

	key := &entity.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyPrefix: raw[:keyPrefixLen],
		KeyHash:   HashAPIKey(raw),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to save API key: %w", err)
	}
	uc.logger.Info("API key created", zap.String("key_id", key.ID), zap.String("user_id", userID))
	return &CreatedAPIKey{APIKey: key, Key: raw}, nil
}

func (uc *apiKeyUseCase) List(ctx context.Context, userID string) ([]*entity.APIKey, error) {
	keys, err := uc.keys.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return keys, nil
}

func (uc *apiKeyUseCase) Revoke(ctx context.Context, userID, id string) error {
	err := uc.keys.Revoke(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAPIKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to revoke API key %s: %w", id, err)
	}
	uc.logger.Info("API key revoked", zap.String("key_id", id), zap.String("user_id", userID))
	return nil
}

func (uc *apiKeyUseCase) Authenticate(ctx context.Context, rawKey string) (*entity.APIKey, error) {
	if !strings.HasPrefix(rawKey, APIKeyPrefix) {
		return nil, ErrInvalidAPIKey
	}
	key, err := uc.keys.FindActiveByHash(ctx, HashAPIKey(rawKey))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	now := time.Now().UTC()
	if err := uc.keys.TouchLastUsed(ctx, key.ID, now); err != nil {
		uc.logger.Warn("Failed to update API key last_used_at", zap.String("key_id", key.ID), zap.Error(err))
	} else {
		key.LastUsedAt = &now
	}
	return key, nil
}
