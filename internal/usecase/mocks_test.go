//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/adapter"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// MockTxManager runs the function directly; the in-memory repos have no
// transaction semantics to honor.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// MockPaymentRepo is a small in-memory implementation used by unit tests.
// Individual methods can be overridden through the XxxFunc fields.
type MockPaymentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Payment

	SaveFunc              func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	CompleteIfPendingFunc func(ctx context.Context, tx repository.Tx, id, receipt, txnDate string, verified bool, at time.Time) (bool, error)
}

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindByCheckoutRequestID(ctx context.Context, tx repository.Tx, checkoutRequestID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.CheckoutRequestID == checkoutRequestID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) ListByMember(ctx context.Context, tx repository.Tx, memberID string, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.MemberID != nil && *p.MemberID == memberID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) SetCheckoutRequestID(ctx context.Context, tx repository.Tx, id, checkoutRequestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CheckoutRequestID = checkoutRequestID
	return nil
}

func (m *MockPaymentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, id, receipt, txnDate string, verified bool, at time.Time) (bool, error) {
	if m.CompleteIfPendingFunc != nil {
		return m.CompleteIfPendingFunc(ctx, tx, id, receipt, txnDate, verified, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusCompleted
	p.ReceiptNumber = receipt
	p.TransactionDate = txnDate
	p.AmountVerified = verified
	p.VerifiedAt = &at
	return true, nil
}

func (m *MockPaymentRepo) FailIfPending(ctx context.Context, tx repository.Tx, id, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusFailed
	p.FailureReason = reason
	return true, nil
}

func (m *MockPaymentRepo) CancelIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusCancelled
	return true, nil
}

// Get returns the stored payment for assertions.
func (m *MockPaymentRepo) Get(id string) *model.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// All returns every stored payment.
func (m *MockPaymentRepo) All() []*model.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// MockMembershipRepo keeps memberships in memory.
type MockMembershipRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Membership

	ListDueForActivationFunc func(ctx context.Context, tx repository.Tx, today time.Time) ([]*model.Membership, error)
	ExpireLapsedFunc         func(ctx context.Context, tx repository.Tx, today time.Time) (int, error)
	SaveFunc                 func(ctx context.Context, tx repository.Tx, m *model.Membership) error
}

func NewMockMembershipRepo() *MockMembershipRepo {
	return &MockMembershipRepo{store: make(map[string]*model.Membership)}
}

func (m *MockMembershipRepo) Save(ctx context.Context, tx repository.Tx, ms *model.Membership) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, ms); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ms
	m.store[ms.ID] = &cp
	return nil
}

func (m *MockMembershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ms
	return &cp, nil
}

func (m *MockMembershipRepo) FindActiveByMember(ctx context.Context, tx repository.Tx, memberID string) (*model.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ms := range m.store {
		if ms.MemberID == memberID && ms.Status == model.MembershipStatusActive {
			cp := *ms
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockMembershipRepo) FindByQueuedPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ms := range m.store {
		if ms.NextPlanPaymentID != nil && *ms.NextPlanPaymentID == paymentID {
			cp := *ms
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockMembershipRepo) SetQueuedPlan(ctx context.Context, tx repository.Tx, membershipID string, planType model.PlanType, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.store[membershipID]
	if !ok {
		return domain.ErrNotFound
	}
	pt := planType
	pid := paymentID
	ms.NextPlanType = &pt
	ms.NextPlanPaid = false
	ms.NextPlanPaymentID = &pid
	return nil
}

func (m *MockMembershipRepo) ClearQueuedPlan(ctx context.Context, tx repository.Tx, membershipID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.store[membershipID]
	if !ok {
		return domain.ErrNotFound
	}
	ms.NextPlanType = nil
	ms.NextPlanPaid = false
	ms.NextPlanPaymentID = nil
	return nil
}

func (m *MockMembershipRepo) MarkQueuedPlanPaid(ctx context.Context, tx repository.Tx, membershipID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.store[membershipID]
	if !ok {
		return domain.ErrNotFound
	}
	ms.NextPlanPaid = true
	return nil
}

func (m *MockMembershipRepo) ListDueForActivation(ctx context.Context, tx repository.Tx, today time.Time) ([]*model.Membership, error) {
	if m.ListDueForActivationFunc != nil {
		return m.ListDueForActivationFunc(ctx, tx, today)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Membership
	for _, ms := range m.store {
		if ms.ExpiryDate.Before(today) && ms.NextPlanType != nil && ms.NextPlanPaid {
			cp := *ms
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockMembershipRepo) ExpireLapsed(ctx context.Context, tx repository.Tx, today time.Time) (int, error) {
	if m.ExpireLapsedFunc != nil {
		return m.ExpireLapsedFunc(ctx, tx, today)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ms := range m.store {
		if ms.ExpiryDate.Before(today) && ms.Status == model.MembershipStatusActive && ms.NextPlanType == nil {
			ms.Status = model.MembershipStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MockMembershipRepo) Get(id string) *model.Membership {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *ms
	return &cp
}

func (m *MockMembershipRepo) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// MockSecurityLogRepo records audit events for assertions.
type MockSecurityLogRepo struct {
	mu     sync.Mutex
	Events []*model.SecurityEvent

	AppendFunc     func(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error
	ListRecentFunc func(ctx context.Context, tx repository.Tx, limit int) ([]*model.SecurityEvent, error)
}

func NewMockSecurityLogRepo() *MockSecurityLogRepo { return &MockSecurityLogRepo{} }

func (m *MockSecurityLogRepo) Append(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

func (m *MockSecurityLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.SecurityEvent, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, tx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Events, nil
}

func (m *MockSecurityLogRepo) ByType(eventType string) []*model.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SecurityEvent
	for _, e := range m.Events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockGateway simulates the provider without network calls.
type MockGateway struct {
	mu       sync.Mutex
	Pushes   []string // phone numbers pushed, in order
	Response *adapter.STKPushResponse
	Err      error

	QueryResponse *adapter.STKQueryResponse
}

func (g *MockGateway) InitiateSTKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*adapter.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Pushes = append(g.Pushes, phone)
	if g.Err != nil {
		return nil, g.Err
	}
	if g.Response != nil {
		return g.Response, nil
	}
	return &adapter.STKPushResponse{ResponseCode: "0", CheckoutRequestID: "ws_CO_TEST"}, nil
}

func (g *MockGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*adapter.STKQueryResponse, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	if g.QueryResponse != nil {
		return g.QueryResponse, nil
	}
	return &adapter.STKQueryResponse{ResponseCode: "0", ResultCode: "0"}, nil
}

func (g *MockGateway) PushCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Pushes)
}
