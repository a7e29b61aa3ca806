package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karjoohq/karjoo/internal/models"
)

const testSecret = "unit-test-secret-32-characters!!"

// MockBlockChecker for testing the per-request block check
type MockBlockChecker struct {
	IsBlockedFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *MockBlockChecker) IsBlocked(ctx context.Context, userID string) (bool, error) {
	return m.IsBlockedFunc(ctx, userID)
}

// MockUserRepo for role checks
type MockUserRepo struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.User, error)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func newTestTokenManager() *TokenManager {
	return NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
}

func notBlocked() *MockBlockChecker {
	return &MockBlockChecker{
		IsBlockedFunc: func(ctx context.Context, userID string) (bool, error) {
			return false, nil
		},
	}
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateAccessToken("user-1", "a@example.com", models.RoleJobSeeker)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	var called bool
	var gotClaims *models.TokenClaims
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotClaims = GetUserFromContext(r)
	})

	AuthMiddleware(tm, notBlocked())(handler).ServeHTTP(w, req)

	require.True(t, called)
	assert.Equal(t, "user-1", gotClaims.UserID)
	assert.Equal(t, models.RoleJobSeeker, gotClaims.Role)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := newTestTokenManager()

	req := httptest.NewRequest("GET", "/users/me", nil)
	w := httptest.NewRecorder()

	var called bool
	AuthMiddleware(tm, notBlocked())(okHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateRefreshToken("user-1", "a@example.com", models.RoleJobSeeker)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	var called bool
	AuthMiddleware(tm, notBlocked())(okHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	tm := NewTokenManager(testSecret, -time.Minute, 7*24*time.Hour)
	token, err := tm.GenerateAccessToken("user-1", "a@example.com", models.RoleJobSeeker)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	var called bool
	AuthMiddleware(newTestTokenManager(), notBlocked())(okHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_BlockedUserGets403(t *testing.T) {
	tm := newTestTokenManager()
	// Token was issued before the block, yet must stop working
	token, err := tm.GenerateAccessToken("user-1", "a@example.com", models.RoleEmployer)
	require.NoError(t, err)

	blocks := &MockBlockChecker{
		IsBlockedFunc: func(ctx context.Context, userID string) (bool, error) {
			return true, nil
		},
	}

	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	var called bool
	AuthMiddleware(tm, blocks)(okHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "user in block list")
}

func TestAuthMiddleware_BlockCheckErrorFailsClosed(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateAccessToken("user-1", "a@example.com", models.RoleJobSeeker)
	require.NoError(t, err)

	blocks := &MockBlockChecker{
		IsBlockedFunc: func(ctx context.Context, userID string) (bool, error) {
			return false, context.DeadlineExceeded
		},
	}

	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	var called bool
	AuthMiddleware(tm, blocks)(okHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func withClaims(req *http.Request, claims *models.TokenClaims) *http.Request {
	ctx := context.WithValue(req.Context(), UserContextKey, claims)
	return req.WithContext(ctx)
}

func TestRequireRole_MatchingRole(t *testing.T) {
	repo := &MockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Role: models.RoleEmployer}, nil
		},
	}

	req := withClaims(httptest.NewRequest("POST", "/jobs", nil), &models.TokenClaims{UserID: "user-1"})
	w := httptest.NewRecorder()

	var called bool
	RequireRole(repo, models.RoleEmployer)(okHandler(&called)).ServeHTTP(w, req)

	assert.True(t, called)
}

func TestRequireRole_WrongRole(t *testing.T) {
	repo := &MockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Role: models.RoleJobSeeker}, nil
		},
	}

	req := withClaims(httptest.NewRequest("POST", "/jobs", nil), &models.TokenClaims{UserID: "user-1"})
	w := httptest.NewRecorder()

	var called bool
	RequireRole(repo, models.RoleEmployer)(okHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_AdminFlagOverridesRole(t *testing.T) {
	repo := &MockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			// Admin-flagged user whose role is not in the allowed set
			return &models.User{ID: id, Role: models.RoleAdmin, IsAdmin: true}, nil
		},
	}

	req := withClaims(httptest.NewRequest("POST", "/jobs", nil), &models.TokenClaims{UserID: "admin-1"})
	w := httptest.NewRecorder()

	var called bool
	RequireRole(repo, models.RoleEmployer)(okHandler(&called)).ServeHTTP(w, req)

	assert.True(t, called)
}

func TestRequireRole_StaleTokenRoleIgnored(t *testing.T) {
	// Role changed after the token was issued; the store wins
	repo := &MockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Role: models.RoleJobSeeker}, nil
		},
	}

	claims := &models.TokenClaims{UserID: "user-1", Role: models.RoleEmployer}
	req := withClaims(httptest.NewRequest("POST", "/jobs", nil), claims)
	w := httptest.NewRecorder()

	var called bool
	RequireRole(repo, models.RoleEmployer)(okHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
