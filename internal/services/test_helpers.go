package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/karjoohq/karjoo/internal/models"
	pkglogger "github.com/karjoohq/karjoo/pkg/logger"
)

// Test doubles shared by the service tests. Each mock exposes func
// fields so individual tests override only what they need.

type MockUserRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.User, error)
	GetBySessionTokenFunc func(ctx context.Context, token string) (*models.User, error)
	ListFunc              func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	CreateInTxFunc        func(ctx context.Context, tx pgx.Tx, user *models.User) (*models.User, error)
	UpdateFunc            func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc    func(ctx context.Context, id, passwordHash string) error
	MarkVerifiedFunc      func(ctx context.Context, id string) error
	UpdateLastLoginFunc   func(ctx context.Context, id string) error
	IssueSessionTokenFunc func(ctx context.Context, id string, byteSize int) (string, error)
	ClearSessionTokenFunc func(ctx context.Context, id string) error
	DeleteFunc            func(ctx context.Context, id string) error
	CountFunc             func(ctx context.Context) (int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *MockUserRepository) GetBySessionToken(ctx context.Context, token string) (*models.User, error) {
	return m.GetBySessionTokenFunc(ctx, token)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return m.CreateFunc(ctx, user)
}

func (m *MockUserRepository) CreateInTx(ctx context.Context, tx pgx.Tx, user *models.User) (*models.User, error) {
	return m.CreateInTxFunc(ctx, tx, user)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	return m.UpdateFunc(ctx, id, user)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.UpdatePasswordFunc(ctx, id, passwordHash)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, id string) error {
	return m.MarkVerifiedFunc(ctx, id)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	if m.UpdateLastLoginFunc == nil {
		return nil
	}
	return m.UpdateLastLoginFunc(ctx, id)
}

func (m *MockUserRepository) IssueSessionToken(ctx context.Context, id string, byteSize int) (string, error) {
	return m.IssueSessionTokenFunc(ctx, id, byteSize)
}

func (m *MockUserRepository) ClearSessionToken(ctx context.Context, id string) error {
	return m.ClearSessionTokenFunc(ctx, id)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	return m.CountFunc(ctx)
}

type MockUserBlockRepository struct {
	IsBlockedFunc func(ctx context.Context, userID string) (bool, error)
	BlockFunc     func(ctx context.Context, userID, adminID, note string) (*models.UserBlock, error)
	UnblockFunc   func(ctx context.Context, userID string) error
	ListFunc      func(ctx context.Context) ([]*models.UserBlock, error)
}

func (m *MockUserBlockRepository) IsBlocked(ctx context.Context, userID string) (bool, error) {
	if m.IsBlockedFunc == nil {
		return false, nil
	}
	return m.IsBlockedFunc(ctx, userID)
}

func (m *MockUserBlockRepository) Block(ctx context.Context, userID, adminID, note string) (*models.UserBlock, error) {
	return m.BlockFunc(ctx, userID, adminID, note)
}

func (m *MockUserBlockRepository) Unblock(ctx context.Context, userID string) error {
	return m.UnblockFunc(ctx, userID)
}

func (m *MockUserBlockRepository) List(ctx context.Context) ([]*models.UserBlock, error) {
	return m.ListFunc(ctx)
}

// MockRevocationRepository keeps revoked jtis in memory, matching the
// idempotent insert of the real repository.
type MockRevocationRepository struct {
	mu      sync.Mutex
	revoked map[string]bool
	fail    error
}

func NewMockRevocationRepository() *MockRevocationRepository {
	return &MockRevocationRepository{revoked: make(map[string]bool)}
}

func (m *MockRevocationRepository) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.revoked[jti] = true
	return nil
}

func (m *MockRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	return m.revoked[jti], nil
}

// MockNotifier records deliveries for assertions.
type MockNotifier struct {
	mu    sync.Mutex
	Sent  []MockDelivery
	Error error
}

type MockDelivery struct {
	Recipient string
	Subject   string
	Body      string
}

func (m *MockNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	m.Sent = append(m.Sent, MockDelivery{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (m *MockNotifier) Deliveries() []MockDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockDelivery, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// MockTxRunner runs the function without a real transaction.
type MockTxRunner struct {
	Err error
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	if m.Err != nil {
		return m.Err
	}
	return fn(nil)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}
