package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/migrations"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/storage/pgtest"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	server *httptest.Server
}

func (c *client) do(method, path, token string, body any) (int, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func testConfig() *config.Config {
	return &config.Config{
		Env:      config.EnvLocal,
		JWTToken: config.JWTToken{JWTSecretKey: "test-secret", TokenTTL: 30 * time.Minute},
		Payments: config.Payments{
			CheckoutBaseURL: "http://localhost:8080/checkout.html",
			RenewalDays:     30,
			PricePerDay:     10,
		},
		CORS:      config.CORS{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimit{RPS: 1000, Burst: 1000},
	}
}

func TestBillingScenario(t *testing.T) {
	db := pgtest.Open(t)
	require.NoError(t, migrations.Run(db, pgtest.MigrationsPath(t)))
	storage := &repository.Storage{DB: db}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(testConfig(), logger, Deps{Storage: storage, Registry: prometheus.NewRegistry()})
	server := httptest.NewServer(handler)
	defer server.Close()
	c := &client{t: t, server: server}

	// регистрация и вход
	code, env := c.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = c.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice2", "email": "alice@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already registered", env.Error)

	code, env = c.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var token struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &token))

	code, _ = c.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// подписка создаётся в статусе pending
	code, env = c.do(http.MethodPost, "/api/subscriptions", token.AccessToken, map[string]any{
		"plan_name": "Basic", "duration_days": 30,
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var sub models.Subscription
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.Equal(t, models.SubscriptionPending, sub.Status)

	// платёж и подтверждение
	code, env = c.do(http.MethodPost, "/api/payments/create-checkout-session", "", map[string]any{
		"user_id": token.UserID, "plan_name": "Basic", "amount": 0,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodPost, "/api/payments/create-checkout-session", "", map[string]any{
		"user_id": token.UserID, "plan_name": "Basic", "amount": 300,
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var checkout models.Checkout
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.GreaterOrEqual(t, checkout.PaymentID, int64(100000))
	assert.Contains(t, checkout.URL, fmt.Sprintf("payment_id=%d", checkout.PaymentID))

	for range 2 {
		code, env = c.do(http.MethodPost, "/api/payments/confirm-payment", "", map[string]any{
			"payment_id": checkout.PaymentID,
		})
		require.Equal(t, http.StatusOK, code, env.Error)
	}

	code, env = c.do(http.MethodGet, "/api/subscriptions/active", token.AccessToken, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Contains(t, string(env.Data), `"list_count":1`)

	// активная подписка на тот же тариф уже есть
	code, env = c.do(http.MethodPost, "/api/subscriptions", token.AccessToken, map[string]any{
		"plan_name": "Basic", "duration_days": 30,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	// отмена доступна только администратору
	code, _ = c.do(http.MethodPost, "/api/subscriptions/cancel_subscription", token.AccessToken, map[string]any{
		"subscription_id": sub.ID,
	})
	assert.Equal(t, http.StatusForbidden, code)

	require.NoError(t, storage.SetUserRole(context.Background(), "alice", models.RoleAdmin))

	code, env = c.do(http.MethodPost, "/api/subscriptions/cancel_subscription", token.AccessToken, map[string]any{
		"subscription_id": sub.ID,
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = c.do(http.MethodPost, "/api/subscriptions/cancel_subscription", token.AccessToken, map[string]any{
		"subscription_id": sub.ID,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodPost, fmt.Sprintf("/api/subscriptions/check-status/%d", sub.ID), "", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Contains(t, string(env.Data), `"status":"cancelled"`)

	// подписка на платформу
	code, env = c.do(http.MethodPost, "/api/platforms/1/subscribe", token.AccessToken, map[string]any{
		"plan_name": "Monthly", "duration_days": 30,
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Contains(t, string(env.Data), `"status":"pending"`)

	code, _ = c.do(http.MethodPost, "/api/platforms/999/subscribe", token.AccessToken, map[string]any{
		"plan_name": "Monthly", "duration_days": 30,
	})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = c.do(http.MethodGet, "/api/payments", token.AccessToken, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Contains(t, string(env.Data), `"list_count":2`)
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(testConfig(), logger, Deps{Storage: &repository.Storage{}, Registry: prometheus.NewRegistry()})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "health", path: "/health", wantCode: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "plans", path: "/api/subscriptions/plans", wantCode: http.StatusOK, wantBody: `"name":"Premium"`},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK, wantBody: "billing_http_requests_total"},
		{name: "protected without token", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantBody: "missing or invalid authorization header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}
