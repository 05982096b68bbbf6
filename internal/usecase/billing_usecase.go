package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

type CheckoutResult struct {
	PaymentID   string `json:"payment_id"`
	CheckoutURL string `json:"checkout_url"`
	Provider    string `json:"provider"`
	PlanName    string `json:"plan_name"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// BillingManager sells plans through the configured payment processors.
type BillingManager interface {
	Checkout(ctx context.Context, userID, plan, provider string) (*CheckoutResult, error)
	Verify(ctx context.Context, userID, paymentID string) (*entity.Payment, error)
	List(ctx context.Context, userID string) ([]*entity.Payment, error)
}

type billingUseCase struct {
	payments        repository.PaymentRepository
	processors      map[string]repository.PaymentProcessor
	defaultProvider string
	dispatcher      EventDispatcher
	logger          *zap.Logger
}

// NewBillingManager registers processors by name. The first one is used when
// a checkout does not name a provider.
func NewBillingManager(
	payments repository.PaymentRepository,
	dispatcher EventDispatcher,
	logger *zap.Logger,
	processors ...repository.PaymentProcessor,
) BillingManager {
	uc := &billingUseCase{
		payments:   payments,
		processors: make(map[string]repository.PaymentProcessor, len(processors)),
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, p := range processors {
		if uc.defaultProvider == "" {
			uc.defaultProvider = p.Name()
		}
		uc.processors[p.Name()] = p
	}
	return uc
}

func (uc *billingUseCase) Checkout(ctx context.Context, userID, planName, provider string) (*CheckoutResult, error) {
	plan, ok := entity.Plans[strings.ToLower(strings.TrimSpace(planName))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planName)
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = uc.defaultProvider
	}
	processor, ok := uc.processors[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	paymentID := uuid.NewString()
	checkout, err := processor.CreateCheckout(ctx, repository.CheckoutRequest{PaymentID: paymentID, Plan: plan})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s checkout: %w", provider, err)
	}

	now := time.Now().UTC()
	p := &entity.Payment{
		ID:            paymentID,
		UserID:        userID,
		Provider:      provider,
		PaymentLinkID: checkout.PaymentLinkID,
		ProviderRef:   checkout.ProviderRef,
		CheckoutURL:   checkout.URL,
		PlanName:      plan.Name,
		Amount:        plan.Amount,
		Currency:      plan.Currency,
		Status:        entity.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	uc.logger.Info("Checkout created",
		zap.String("payment_id", p.ID),
		zap.String("provider", provider),
		zap.String("plan", plan.Name),
	)
	return &CheckoutResult{
		PaymentID:   p.ID,
		CheckoutURL: p.CheckoutURL,
		Provider:    provider,
		PlanName:    p.PlanName,
		Amount:      p.Amount,
		Currency:    p.Currency,
	}, nil
}

// Verify refreshes a pending payment from its processor. payment.completed is
// emitted only on the pending to completed change, so repeated calls are safe.
func (uc *billingUseCase) Verify(ctx context.Context, userID, paymentID string) (*entity.Payment, error) {
	p, err := uc.payments.GetForUser(ctx, userID, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment %s: %w", paymentID, err)
	}
	if p.Status != entity.PaymentStatusPending {
		return p, nil
	}

	processor, ok := uc.processors[p.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p.Provider)
	}
	status, err := processor.CheckStatus(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s payment %s: %w", p.Provider, p.ID, err)
	}
	if status == p.Status {
		return p, nil
	}

	err = uc.payments.UpdateStatus(ctx, p.ID, entity.PaymentStatusPending, status)
	if errors.Is(err, repository.ErrStaleStatus) {
		// A concurrent Verify already recorded the change and sent the webhook.
		return uc.reload(ctx, userID, p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update payment %s: %w", p.ID, err)
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	uc.logger.Info("Payment status changed", zap.String("payment_id", p.ID), zap.String("status", string(status)))

	if status == entity.PaymentStatusCompleted && uc.dispatcher != nil {
		if _, err := uc.dispatcher.Dispatch(ctx, userID, entity.EventPaymentCompleted, p); err != nil {
			uc.logger.Warn("Failed to dispatch payment webhook", zap.String("payment_id", p.ID), zap.Error(err))
		}
	}
	return p, nil
}

func (uc *billingUseCase) reload(ctx context.Context, userID, id string) (*entity.Payment, error) {
	p, err := uc.payments.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload payment %s: %w", id, err)
	}
	return p, nil
}

func (uc *billingUseCase) List(ctx context.Context, userID string) ([]*entity.Payment, error) {
	payments, err := uc.payments.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
