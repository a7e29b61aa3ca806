package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karjoohq/karjoo/internal/models"
)

func TestIssuePair_CarriesRoleAtIssuance(t *testing.T) {
	tm := newTestTokenManager()
	user := &models.User{ID: "user-1", Email: "e@example.com", Role: models.RoleEmployer}

	pair, err := tm.IssuePair(user)
	require.NoError(t, err)

	assert.Equal(t, models.RoleEmployer, pair.UserRole)

	access, err := tm.ValidateToken(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, access.Type)
	assert.Equal(t, "user-1", access.UserID)
	assert.Equal(t, models.RoleEmployer, access.Role)
	assert.NotEmpty(t, access.ID)

	refresh, err := tm.ValidateToken(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, refresh.Type)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateAccessToken("user-1", "e@example.com", models.RoleJobSeeker)
	require.NoError(t, err)

	other := NewTokenManager("another-secret-32-characters!!!!", 15*time.Minute, time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	tm := newTestTokenManager()

	_, err := tm.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	expired := NewTokenManager(testSecret, -time.Minute, time.Hour)
	token, err := expired.GenerateAccessToken("user-1", "e@example.com", models.RoleJobSeeker)
	require.NoError(t, err)

	_, err = newTestTokenManager().ValidateToken(token)
	assert.Error(t, err)
}
