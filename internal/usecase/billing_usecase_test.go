package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*entity.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]*entity.Payment{}}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetForUser(_ context.Context, userID, id string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) UpdateStatus(_ context.Context, id string, from, to entity.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != from {
		return repository.ErrStaleStatus
	}
	p.Status = to
	return nil
}

func (r *fakePaymentRepo) List(_ context.Context, userID string) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeProcessor struct {
	name     string
	status   entity.PaymentStatus
	err      error
	requests []repository.CheckoutRequest
}

func (p *fakeProcessor) Name() string { return p.name }

func (p *fakeProcessor) CreateCheckout(_ context.Context, req repository.CheckoutRequest) (*repository.Checkout, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &repository.Checkout{
		PaymentLinkID: "link_" + req.PaymentID[:8],
		ProviderRef:   "order_1",
		URL:           "https://pay.example.com/" + req.Plan.Name,
	}, nil
}

func (p *fakeProcessor) CheckStatus(_ context.Context, _ *entity.Payment) (entity.PaymentStatus, error) {
	return p.status, p.err
}

func TestCheckout(t *testing.T) {
	repo := newFakePaymentRepo()
	square := &fakeProcessor{name: "square"}
	stripe := &fakeProcessor{name: "stripe"}
	uc := NewBillingManager(repo, nil, testLogger, square, stripe)

	res, err := uc.Checkout(context.Background(), "user-1", "Professional", "")
	require.NoError(t, err)
	assert.Equal(t, "square", res.Provider, "first processor is the default")
	assert.Equal(t, int64(14900), res.Amount)
	assert.Equal(t, "https://pay.example.com/professional", res.CheckoutURL)
	require.Len(t, square.requests, 1)
	assert.Equal(t, res.PaymentID, square.requests[0].PaymentID)

	stored, err := repo.GetForUser(context.Background(), "user-1", res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, stored.Status)
	assert.Equal(t, "order_1", stored.ProviderRef)

	res, err = uc.Checkout(context.Background(), "user-1", "starter", "stripe")
	require.NoError(t, err)
	assert.Equal(t, "stripe", res.Provider)
	assert.Equal(t, int64(4900), res.Amount)
}

func TestCheckout_Errors(t *testing.T) {
	repo := newFakePaymentRepo()
	failing := &fakeProcessor{name: "stripe", err: errors.New("card network down")}
	uc := NewBillingManager(repo, nil, testLogger, failing)

	_, err := uc.Checkout(context.Background(), "user-1", "platinum", "")
	assert.ErrorIs(t, err, ErrUnknownPlan)
	_, err = uc.Checkout(context.Background(), "user-1", "starter", "paypal")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = uc.Checkout(context.Background(), "user-1", "starter", "stripe")
	assert.Error(t, err)
	assert.Empty(t, repo.payments, "no payment row without a checkout")
}

func TestVerify_EmitsCompletionOnce(t *testing.T) {
	repo := newFakePaymentRepo()
	proc := &fakeProcessor{name: "stripe", status: entity.PaymentStatusPending}
	dispatcher := &fakeDispatcher{}
	uc := NewBillingManager(repo, dispatcher, testLogger, proc)
	ctx := context.Background()

	res, err := uc.Checkout(ctx, "user-1", "starter", "")
	require.NoError(t, err)

	p, err := uc.Verify(ctx, "user-1", res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, p.Status)
	assert.Empty(t, dispatcher.events())

	proc.status = entity.PaymentStatusCompleted
	p, err = uc.Verify(ctx, "user-1", res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, p.Status)

	_, err = uc.Verify(ctx, "user-1", res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, []string{entity.EventPaymentCompleted}, dispatcher.events())

	_, err = uc.Verify(ctx, "user-2", res.PaymentID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

// gatedProcessor holds every CheckStatus call until all callers have read
// the payment, so each of them sees it pending.
type gatedProcessor struct {
	*fakeProcessor
	gate *sync.WaitGroup
}

func (p *gatedProcessor) CheckStatus(ctx context.Context, pay *entity.Payment) (entity.PaymentStatus, error) {
	p.gate.Done()
	p.gate.Wait()
	return p.fakeProcessor.CheckStatus(ctx, pay)
}

func TestVerify_ConcurrentCallsEmitCompletionOnce(t *testing.T) {
	const n = 8
	repo := newFakePaymentRepo()
	dispatcher := &fakeDispatcher{}
	gate := &sync.WaitGroup{}
	gate.Add(n)
	proc := &gatedProcessor{fakeProcessor: &fakeProcessor{name: "square", status: entity.PaymentStatusCompleted}, gate: gate}
	uc := NewBillingManager(repo, dispatcher, testLogger, proc)
	ctx := context.Background()

	res, err := uc.Checkout(ctx, "user-1", "starter", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := uc.Verify(ctx, "user-1", res.PaymentID)
			if assert.NoError(t, err) {
				assert.Equal(t, entity.PaymentStatusCompleted, p.Status)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{entity.EventPaymentCompleted}, dispatcher.events())
}

func TestListPayments(t *testing.T) {
	repo := newFakePaymentRepo()
	uc := NewBillingManager(repo, nil, testLogger, &fakeProcessor{name: "square"})
	_, err := uc.Checkout(context.Background(), "user-1", "starter", "")
	require.NoError(t, err)

	payments, err := uc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}
