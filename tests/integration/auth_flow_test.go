package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFlowTest(t *testing.T) (*TestDB, *TestServer) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.Teardown(ctx) })

	ts := NewTestServer(testDB.DB)
	t.Cleanup(ts.Close)

	return testDB, ts
}

func TestRegistrationFlow(t *testing.T) {
	_, ts := setupFlowTest(t)
	email, password := TestUser("register")

	// Request a registration code
	resp, err := ts.Request(http.MethodPost, "/auth/register/code", map[string]string{"email": email}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Read the code out of redis, standing in for the email
	code, err := ts.StoredCode("otp:register:%s", email)
	require.NoError(t, err)

	// Complete registration
	resp, err = ts.Request(http.MethodPost, "/auth/register", map[string]string{
		"email":      email,
		"first_name": "Test",
		"last_name":  "User",
		"role":       "job_seeker",
		"code":       code,
		"password":   password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	access, refresh, role, err := ExtractPairFromResponse(resp)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.Equal(t, "job_seeker", role)

	// The pair works immediately
	resp, err = ts.RequestWithAuth(http.MethodGet, "/users/me", access, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &me))
	assert.Equal(t, email, me["email"])
	assert.Equal(t, true, me["is_verified"])

	// The consumed code cannot register a second account
	resp, err = ts.Request(http.MethodPost, "/auth/register", map[string]string{
		"email":      email,
		"first_name": "Test",
		"last_name":  "User",
		"role":       "job_seeker",
		"code":       code,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOTPLoginFlow(t *testing.T) {
	testDB, ts := setupFlowTest(t)
	ctx := context.Background()

	email, password := TestUser("otp-login")
	_, err := SeedUser(ctx, testDB.Pool, email, password, "employer")
	require.NoError(t, err)

	resp, err := ts.Request(http.MethodGet, "/auth/otp?email="+email, nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := ts.StoredCode("otp:login:%s", email)
	require.NoError(t, err)

	resp, err = ts.Request(http.MethodPost, "/auth/otp", map[string]string{
		"email": email,
		"code":  code,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	access, _, role, err := ExtractPairFromResponse(resp)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.Equal(t, "employer", role)

	// Replaying the consumed code fails
	resp, err = ts.Request(http.MethodPost, "/auth/otp", map[string]string{
		"email": email,
		"code":  code,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBlockedUserRejectedPerRequest(t *testing.T) {
	testDB, ts := setupFlowTest(t)
	ctx := context.Background()

	email, password := TestUser("blocked")
	user, err := SeedUser(ctx, testDB.Pool, email, password, "job_seeker")
	require.NoError(t, err)

	// Log in before the block
	resp, err := ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	access, _, _, err := ExtractPairFromResponse(resp)
	require.NoError(t, err)

	resp, err = ts.RequestWithAuth(http.MethodGet, "/users/me", access, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Block takes effect on the very next request with the same token
	require.NoError(t, SeedBlock(ctx, testDB.Pool, user.ID))

	resp, err = ts.RequestWithAuth(http.MethodGet, "/users/me", access, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRefreshAndLogout(t *testing.T) {
	testDB, ts := setupFlowTest(t)
	ctx := context.Background()

	email, password := TestUser("refresh")
	_, err := SeedUser(ctx, testDB.Pool, email, password, "job_seeker")
	require.NoError(t, err)

	resp, err := ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, refresh, _, err := ExtractPairFromResponse(resp)
	require.NoError(t, err)

	// Refresh yields a working access token
	resp, err = ts.Request(http.MethodPost, "/auth/refresh", map[string]string{"refresh": refresh}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed map[string]string
	require.NoError(t, ParseJSONResponse(resp, &refreshed))
	require.NotEmpty(t, refreshed["access"])

	// Logout revokes the refresh token; repeating it yields the same
	// success response
	for i := 0; i < 2; i++ {
		resp, err = ts.Request(http.MethodPost, "/auth/logout", map[string]string{"refresh": refresh}, nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err = ts.Request(http.MethodPost, "/auth/refresh", map[string]string{"refresh": refresh}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
