package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/soundlease/soundlease-backend/internal/licenses"
	"github.com/soundlease/soundlease-backend/internal/uploads"
	"github.com/soundlease/soundlease-backend/pkg/config"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type stubUploadService struct{}

func (stubUploadService) Pin(ctx context.Context, input uploads.Input) (*uploads.Result, error) {
	return &uploads.Result{Status: "success"}, nil
}

type stubLicenseService struct{}

func (stubLicenseService) ListForAccount(ctx context.Context, account string, filter licenses.Filter) ([]licenses.License, error) {
	return nil, nil
}

func (stubLicenseService) Issue(ctx context.Context, input licenses.IssueInput) (*licenses.IssueResult, error) {
	return &licenses.IssueResult{}, nil
}

func (stubLicenseService) Deactivate(ctx context.Context, licenseID string) (string, error) {
	return "0xdead", nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App:   config.AppConfig{Env: "test", Port: "8080"},
		Media: config.MediaConfig{MaxUploadMB: 1},
	}
	return NewRouter(cfg, nil, stubPinger{}, stubPinger{}, nil, stubUploadService{}, stubLicenseService{}, prometheus.NewRegistry())
}

func TestRouter_HealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-SoundLease-Env") != "test" {
		t.Fatal("expected environment header")
	}
}

func TestRouter_HealthReady(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_MetricsExposed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_LicenseListRouted(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses?account=0xabc123abc123abc123abc123abc123abc123abc1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body, _ := io.ReadAll(rec.Body)
	if len(body) == 0 {
		t.Fatal("expected an envelope body")
	}
}

func TestRouter_RequestIDHeaderSet(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}
