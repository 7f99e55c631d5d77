package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthHandler_Health(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler("1.2.3", testLogger())
	app.Get("/health", handler.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var result HealthResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "1.2.3", result.Version)
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []ReadinessCheck
		wantStatus int
		wantBody   HealthResponse
	}{
		{
			name:       "no checks",
			wantStatus: 200,
			wantBody:   HealthResponse{Status: "ready", Checks: map[string]string{}},
		},
		{
			name:       "all checks pass",
			checks:     []ReadinessCheck{{Name: "provider", Check: ok}, {Name: "database", Check: ok}},
			wantStatus: 200,
			wantBody:   HealthResponse{Status: "ready", Checks: map[string]string{"provider": "ok", "database": "ok"}},
		},
		{
			name:       "provider down",
			checks:     []ReadinessCheck{{Name: "provider", Check: down}, {Name: "database", Check: ok}},
			wantStatus: 503,
			wantBody:   HealthResponse{Status: "not_ready", Checks: map[string]string{"provider": "unavailable", "database": "ok"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			handler := NewHealthHandler("dev", testLogger(), tt.checks...)
			app.Get("/ready", handler.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var result HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
			if len(tt.wantBody.Checks) == 0 {
				assert.Equal(t, tt.wantBody.Status, result.Status)
				assert.Empty(t, result.Checks)
				return
			}
			assert.Equal(t, tt.wantBody, result)
		})
	}
}
