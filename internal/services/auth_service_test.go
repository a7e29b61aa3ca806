package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/models"
	pkgauth "github.com/karjoohq/karjoo/pkg/auth"
)

// One bcrypt hash shared across the tests; hashing at cost 14 is slow.
var (
	testPassword     = "Sup3r$trongPass"
	testPasswordHash string
)

func passwordHash(t *testing.T) string {
	t.Helper()
	if testPasswordHash == "" {
		hash, err := pkgauth.HashPassword(testPassword)
		require.NoError(t, err)
		testPasswordHash = hash
	}
	return testPasswordHash
}

type authFixture struct {
	svc    *AuthService
	repo   *MockUserRepository
	blocks *MockUserBlockRepository
	revoke *MockRevocationRepository
	tm     *auth.TokenManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	repo := &MockUserRepository{}
	blocks := &MockUserBlockRepository{}
	revoke := NewMockRevocationRepository()
	tm := auth.NewTokenManager("auth-test-secret-32-characters!!", 15*time.Minute, 7*24*time.Hour)
	timing := auth.NewTimingDelay(auth.TimingConfig{})

	svc := NewAuthService(repo, blocks, revoke, tm, timing, newTestLogger(), newTestAuditLogger())

	return &authFixture{svc: svc, repo: repo, blocks: blocks, revoke: revoke, tm: tm}
}

func (f *authFixture) withUser(t *testing.T, user *models.User) {
	t.Helper()
	f.repo.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		if email == user.Email {
			return user, nil
		}
		return nil, models.ErrNotFound
	}
	f.repo.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		if id == user.ID {
			return user, nil
		}
		return nil, models.ErrNotFound
	}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleEmployer)
	user.PasswordHash = passwordHash(t)
	f.withUser(t, user)

	pair, err := f.svc.Login(context.Background(), "A@Example.com ", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Equal(t, models.RoleEmployer, pair.UserRole)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	user.PasswordHash = passwordHash(t)
	f.withUser(t, user)

	_, err := f.svc.Login(context.Background(), "a@example.com", "not-the-password")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		return nil, models.ErrNotFound
	}

	_, err := f.svc.Login(context.Background(), "ghost@example.com", testPassword)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogin_EmptyEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "  ", testPassword)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	user.PasswordHash = passwordHash(t)
	user.IsActive = false
	f.withUser(t, user)

	_, err := f.svc.Login(context.Background(), "a@example.com", testPassword)
	assert.ErrorIs(t, err, models.ErrAccountDisabled)
}

func TestLogin_BlockedUser(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	user.PasswordHash = passwordHash(t)
	f.withUser(t, user)
	f.blocks.IsBlockedFunc = func(ctx context.Context, userID string) (bool, error) {
		return true, nil
	}

	// The right password does not help a blocked user
	_, err := f.svc.Login(context.Background(), "a@example.com", testPassword)
	assert.ErrorIs(t, err, models.ErrUserBlocked)
}

func TestLogin_NoPasswordSet(t *testing.T) {
	f := newAuthFixture(t)
	// OTP-registered account with no password yet
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	f.withUser(t, user)

	_, err := f.svc.Login(context.Background(), "a@example.com", "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRefresh_HappyPath(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	f.withUser(t, user)

	refresh, err := f.tm.GenerateRefreshToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	access, err := f.svc.Refresh(context.Background(), refresh)
	require.NoError(t, err)

	claims, err := f.tm.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRefresh_CarriesCurrentRole(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	f.withUser(t, user)

	refresh, err := f.tm.GenerateRefreshToken(user.ID, user.Email, models.RoleJobSeeker)
	require.NoError(t, err)

	// Role changed since the refresh token was issued
	user.Role = models.RoleEmployer

	access, err := f.svc.Refresh(context.Background(), refresh)
	require.NoError(t, err)

	claims, err := f.tm.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployer, claims.Role)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	f.withUser(t, user)

	access, err := f.tm.GenerateAccessToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRefresh_RejectsRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	f.withUser(t, user)

	refresh, err := f.tm.GenerateRefreshToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	f.svc.Logout(context.Background(), refresh)

	_, err = f.svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRefresh_RejectsGarbage(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRefresh_DisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	f.withUser(t, user)

	refresh, err := f.tm.GenerateRefreshToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	user.IsActive = false

	_, err = f.svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newAuthFixture(t)
	user := activeUser("user-1", "a@example.com", models.RoleJobSeeker)
	f.withUser(t, user)

	refresh, err := f.tm.GenerateRefreshToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	ctx := context.Background()
	f.svc.Logout(ctx, refresh)
	f.svc.Logout(ctx, refresh)

	claims, err := f.tm.ValidateToken(refresh)
	require.NoError(t, err)
	revoked, err := f.revoke.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogout_GarbageTokenIsNoOp(t *testing.T) {
	f := newAuthFixture(t)

	// Must not panic or revoke anything
	f.svc.Logout(context.Background(), "not-a-token")
	f.svc.Logout(context.Background(), "")
}
