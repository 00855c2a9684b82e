package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peoplehub/people-api/internal/models"
	"github.com/peoplehub/people-api/internal/ratelimit"
	"github.com/peoplehub/people-api/internal/service"
	"github.com/peoplehub/people-api/pkg/config"
)

func routerSetup(t *testing.T) (*gin.Engine, *fakeUserRepo, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"}
	cfg.JWT = config.JWTConfig{Secret: "test-secret", Issuer: "people-api", Expiration: time.Hour, RefreshExpiration: 24 * time.Hour}
	cfg.Throttle = config.ThrottleConfig{
		Short:  config.ThrottleTier{Window: time.Second, Limit: 10},
		Medium: config.ThrottleTier{Window: 10 * time.Second, Limit: 50},
		Long:   config.ThrottleTier{Window: time.Minute, Limit: 200},
		Auth:   config.ThrottleTier{Window: time.Minute, Limit: 5},
	}

	repo := newFakeUserRepo()
	employeeRepo := newFakeEmployeeRepo()
	validate := validator.New()
	logr := zap.NewNop()

	tokens := service.NewTokenService(cfg.JWT)
	authSvc := service.NewAuthService(repo, &fakeBlacklist{}, tokens, validate, logr, service.AuthConfig{
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(&listingUserRepo{fakeUserRepo: *repo}, validate, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, nopAuditor{}, validate, logr)
	metricsSvc := service.NewMetricsService()

	router := NewRouter(RouterDeps{
		Config:      cfg,
		Logger:      logr,
		Limiter:     ratelimit.New(client, cfg.Throttle),
		AuthService: authSvc,
		Metrics:     metricsSvc,
	}, Handlers{
		Auth:     NewAuthHandler(authSvc, cfg),
		User:     NewUserHandler(userSvc),
		Employee: NewEmployeeHandler(employeeSvc),
		Metrics:  NewMetricsHandler(metricsSvc, nil, client),
	})

	return router, repo, func() {
		client.Close()
		mr.Close()
	}
}

func TestRouterHealthAndMetricsUnthrottled(t *testing.T) {
	router, _, done := routerSetup(t)
	defer done()

	for i := 0; i < 30; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouterReady(t *testing.T) {
	router, _, done := routerSetup(t)
	defer done()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterProtectedRequiresToken(t *testing.T) {
	router, _, done := routerSetup(t)
	defer done()

	for _, path := range []string{"/api/v1/users", "/api/v1/employees", "/api/v1/auth/me"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouterLoginThrottledAtAuthTier(t *testing.T) {
	router, repo, done := routerSetup(t)
	defer done()
	seedUser(t, repo, "user@example.com", "password")

	payload := models.LoginRequest{Email: "user@example.com", Password: "password"}

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := jsonRequest(http.MethodPost, "/api/v1/auth/login", payload)
		req.RemoteAddr = "1.2.3.4:5678"
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", payload)
	req.RemoteAddr = "1.2.3.4:5678"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRouterRegisterThrottledBelowAuthTier(t *testing.T) {
	router, _, done := routerSetup(t)
	defer done()

	// Registration holds 60% of the auth tier's 5-request budget: 3.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := jsonRequest(http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
			Email:    "throttle@example.com",
			Password: "password",
			FullName: "Throttle",
		})
		req.RemoteAddr = "1.2.3.4:5678"
		router.ServeHTTP(w, req)
		require.NotEqual(t, http.StatusTooManyRequests, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
		Email:    "throttle@example.com",
		Password: "password",
		FullName: "Throttle",
	})
	req.RemoteAddr = "1.2.3.4:5678"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRouterFullAuthFlow(t *testing.T) {
	router, repo, done := routerSetup(t)
	defer done()
	seedUser(t, repo, "user@example.com", "password")

	// Login issues an access token and the refresh cookie.
	w := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", models.LoginRequest{Email: "user@example.com", Password: "password"})
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	token := envelope.Data.AccessToken
	require.NotEmpty(t, token)

	// The access token opens protected routes.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Logout revokes it.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The same token is now rejected.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
