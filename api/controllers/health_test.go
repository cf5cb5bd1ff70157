package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/craftkart/storefront-backend/pkg/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func healthConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test", Port: "0"}}
}

func TestHealthLiveReportsEnv(t *testing.T) {
	handler := HealthLive(healthConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-CraftKart-Env"); got != "test" {
		t.Fatalf("expected env header set to test got %q", got)
	}
}

func TestHealthReadyAllChecksPass(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	handler := HealthReady(healthConfig(), nil, ok, ok)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"status":"ready"`) {
		t.Fatalf("expected ready status got %s", resp.Body.String())
	}
}

func TestHealthReadyFailsWhenDatabaseDown(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })
	handler := HealthReady(healthConfig(), nil, down, ok)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "service not ready") {
		t.Fatalf("expected readiness message got %s", resp.Body.String())
	}
}

func TestHealthReadyFailsWhenRedisMissing(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	handler := HealthReady(healthConfig(), nil, ok, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
