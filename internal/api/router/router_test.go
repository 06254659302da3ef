package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dentalcare-connect/portal/internal/calcom"
	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/http/handlers"
	"github.com/dentalcare-connect/portal/internal/portal"
	"github.com/dentalcare-connect/portal/internal/webchat"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

type noopGateway struct{}

func (noopGateway) ListBookings(ctx context.Context) []calcom.Booking { return nil }

func (noopGateway) CreateBooking(ctx context.Context, req calcom.BookingRequest) (*calcom.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &calcom.Booking{ID: 1}, nil
}

func (noopGateway) CancelBooking(ctx context.Context, id int) bool { return true }

type noopAgent struct{}

func (noopAgent) RunTurn(ctx context.Context, history []conversation.Turn, message string) conversation.TurnResult {
	return conversation.TurnResult{Reply: "ok"}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	svc := portal.NewService(noopGateway{}, noopAgent{}, time.UTC, logger)

	return New(&Config{
		Logger:         logger,
		PortalHandler:  handlers.NewPortalHandler(svc, "+1 (555) 010-2000", logger),
		WebchatHandler: webchat.NewHandler(webchat.NewPortalAdapter(svc), logger),
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterSessionEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"role":"patient","email":"pat@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/session", body)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
}

func TestRouterDoctorRoutesRequireRole(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/doctor/bookings", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without role header, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/doctor/bookings", nil)
	req.Header.Set("X-User-Role", "doctor")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with doctor role, got %d", rr.Code)
	}
}

func TestRouterPatientRoutesRejectDoctorRole(t *testing.T) {
	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"session_id":"x","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/patient/chat", body)
	req.Header.Set("X-User-Role", "doctor")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for doctor on patient route, got %d", rr.Code)
	}
}

func TestRouterWebchatMessageEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Reply     string `json:"reply"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
	if resp.Reply != "ok" {
		t.Errorf("expected reply 'ok', got %q", resp.Reply)
	}
}

func TestRouterMetricsOptional(t *testing.T) {
	router := newTestRouter(t) // no MetricsHandler configured

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 404/405 when MetricsHandler is nil, got %d", rr.Code)
	}
}
