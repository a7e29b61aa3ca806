package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/cache"
	"github.com/karjoohq/karjoo/internal/config"
	"github.com/karjoohq/karjoo/internal/database"
	"github.com/karjoohq/karjoo/internal/handlers"
	middlewareCustom "github.com/karjoohq/karjoo/internal/middleware"
	"github.com/karjoohq/karjoo/internal/routes"
	"github.com/karjoohq/karjoo/internal/services"
	pkglogger "github.com/karjoohq/karjoo/pkg/logger"
)

// TestServer wraps httptest.Server with the database, an in-process
// redis and all service dependencies
type TestServer struct {
	Server   *httptest.Server
	Pool     *database.DB
	Redis    *miniredis.Miniredis
	Notifier *services.MockNotifier
	Config   *config.Config

	TokenManager *auth.TokenManager
	logger       *slog.Logger
}

// NewTestServer initializes a complete HTTP server with a real
// database, miniredis and captured email delivery
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mr, err := miniredis.Run()
	if err != nil {
		panic(fmt.Sprintf("failed to start miniredis: %v", err))
	}

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			CleanupInterval:    1 * time.Hour,
		},
		Codes: config.CodesConfig{
			Login:        config.CodeConfig{Length: 5, KeyTemplate: "otp:login:%s", TTL: 2 * time.Minute},
			Registration: config.CodeConfig{Length: 6, KeyTemplate: "otp:register:%s", TTL: 5 * time.Minute},
			Reset:        config.CodeConfig{Length: 6, KeyTemplate: "otp:reset:%s", TTL: 5 * time.Minute},
			Confirmation: config.CodeConfig{Length: 6, KeyTemplate: "otp:confirm:%s", TTL: 10 * time.Minute},
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
		},
	}

	userRepo, blockRepo, revokeRepo, jobRepo, appRepo, contactRepo := InitializeRepositories(db)

	codeCache := cache.NewClientFromRedis(
		redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger,
	)

	notifier := &services.MockNotifier{}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{})

	userService := services.NewUserService(userRepo, logger)
	authService := services.NewAuthService(userRepo, blockRepo, revokeRepo, tokenManager, timingDelay, logger, auditLogger)
	otpService := services.NewOTPService(userRepo, blockRepo, codeCache, tokenManager, db, notifier, cfg.Codes, logger, auditLogger)
	adminService := services.NewAdminService(userRepo, blockRepo, logger, auditLogger)
	jobService := services.NewJobService(jobRepo, logger)
	appService := services.NewApplicationService(appRepo, jobRepo, logger)
	contactService := services.NewContactService(contactRepo, notifier, logger)
	dashboardService := services.NewDashboardService(userRepo, jobRepo, appRepo, logger)

	authHandler := handlers.NewAuthHandler(authService, otpService)
	userHandler := handlers.NewUserHandler(userService, adminService)
	jobHandler := handlers.NewJobHandler(jobService)
	appHandler := handlers.NewApplicationHandler(appService, userRepo)
	contactHandler := handlers.NewContactHandler(contactService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	healthHandler := handlers.NewHealthHandler(db, codeCache)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(
		r,
		authHandler,
		userHandler,
		jobHandler,
		appHandler,
		contactHandler,
		dashboardHandler,
		healthHandler,
		tokenManager,
		userRepo,
		blockRepo,
	)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		Pool:         db,
		Redis:        mr,
		Notifier:     notifier,
		Config:       cfg,
		TokenManager: tokenManager,
		logger:       logger,
	}
}

// Close shuts down the test server and the in-process redis
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	if ts.Redis != nil {
		ts.Redis.Close()
	}
}

// StoredCode reads the outstanding code for a subject straight out of
// redis, standing in for the email the user would have received
func (ts *TestServer) StoredCode(keyTemplate, subject string) (string, error) {
	return ts.Redis.Get(fmt.Sprintf(keyTemplate, subject))
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with an access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractPairFromResponse extracts the credential pair from a login or
// registration response
func ExtractPairFromResponse(resp *http.Response) (access, refresh, role string, err error) {
	defer resp.Body.Close()

	var pair map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return "", "", "", fmt.Errorf("failed to parse response: %w", err)
	}

	if a, ok := pair["access"].(string); ok {
		access = a
	}
	if r, ok := pair["refresh"].(string); ok {
		refresh = r
	}
	if r, ok := pair["user_role"].(string); ok {
		role = r
	}

	return
}

// GetErrorMessage extracts the error message from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
