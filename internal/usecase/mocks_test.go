package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/infra/database"
	"github.com/xavierca1/salespilot/internal/usecase"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) usecase.Clock {
	return func() time.Time { return t }
}

// RecordingNotifier keeps every notification it is handed.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
	err  error
}

func (n *RecordingNotifier) Notify(_ context.Context, msg entity.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *RecordingNotifier) Sent() []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.Notification(nil), n.sent...)
}

func (n *RecordingNotifier) Kinds() []entity.NotificationKind {
	var kinds []entity.NotificationKind
	for _, s := range n.Sent() {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) Save(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindActiveByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindLatestByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindAll(ctx context.Context) ([]*entity.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindLeads(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) Render(lead *entity.Lead, _ time.Time) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.3 " + lead.Name), nil
}

// plainHasher stores passwords behind a prefix.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type stubTokens struct{}

func (stubTokens) Issue(u *entity.User) (string, error) {
	return "token-for-" + u.ID, nil
}

var errBoom = errors.New("boom")

func newStore() (*database.MemoryStore, *RecordingNotifier) {
	return database.NewMemoryStore(), &RecordingNotifier{}
}

func submitInput(email string, budget int64) usecase.SubmitLeadInput {
	return usecase.SubmitLeadInput{
		Name:        "Ada Lovelace",
		Email:       email,
		Phone:       "+1 555 010 2030",
		Budget:      budget,
		ServiceType: "Web App",
	}
}

func newStoreOnly() *database.MemoryStore {
	return database.NewMemoryStore()
}
