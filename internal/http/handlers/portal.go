// Package handlers exposes the portal's HTTP surface: session bootstrap, the
// doctor dashboard, and the three patient channels (chat, manual form,
// history).
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dentalcare-connect/portal/internal/calcom"
	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/identity"
	"github.com/dentalcare-connect/portal/internal/portal"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

// PortalHandler serves the booking portal endpoints.
type PortalHandler struct {
	service    *portal.Service
	agentPhone string
	logger     *logging.Logger
}

// NewPortalHandler creates a portal handler.
func NewPortalHandler(service *portal.Service, agentPhone string, logger *logging.Logger) *PortalHandler {
	if service == nil {
		panic("handlers: portal service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PortalHandler{service: service, agentPhone: agentPhone, logger: logger}
}

// HealthCheck reports liveness.
func (h *PortalHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info returns static portal data for the client shell.
func (h *PortalHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"agent_phone": h.agentPhone})
}

// CreateSession registers a portal session for a client-selected role. The
// role and email are trusted as sent; they only shape which views answer.
func (h *PortalHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role  string `json:"role"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := identity.ParseRole(req.Role)
	if role == identity.RoleNone {
		writeError(w, http.StatusBadRequest, "role must be doctor or patient")
		return
	}

	id, greeting := h.service.StartSession(identity.Identity{
		Role:  role,
		Email: strings.TrimSpace(req.Email),
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"role":       string(role),
		"greeting":   greeting,
	})
}

// bookingView decorates a booking with its derived cancellation state so
// clients can style cancelled entries without re-parsing status strings.
type bookingView struct {
	calcom.Booking
	Cancelled bool `json:"cancelled"`
}

func bookingViews(list []calcom.Booking) []bookingView {
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, bookingView{Booking: b, Cancelled: b.Cancelled()})
	}
	return out
}

// DoctorBookings returns the upcoming view: today-or-later, sorted.
func (h *PortalHandler) DoctorBookings(w http.ResponseWriter, r *http.Request) {
	upcoming := h.service.UpcomingBookings(r.Context())
	writeJSON(w, http.StatusOK, map[string][]bookingView{"bookings": bookingViews(upcoming)})
}

// DoctorCancel cancels one booking from the doctor view.
func (h *PortalHandler) DoctorCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch err := h.service.CancelBooking(r.Context(), id); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"cancelled": true, "id": id})
	case errors.Is(err, portal.ErrActionInFlight):
		writeError(w, http.StatusConflict, "cancel already in flight for this booking")
	default:
		writeError(w, http.StatusBadGateway, "failed to cancel booking")
	}
}

// PatientChat runs one conversational turn.
func (h *PortalHandler) PatientChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.service.SendChat(r.Context(), req.SessionID, req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, portal.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "unknown session")
	case errors.Is(err, portal.ErrActionInFlight):
		writeError(w, http.StatusConflict, "a chat message is already in flight")
	default:
		h.logger.Error("handlers: chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat failed")
	}
}

// ChatHistory replays the session transcript.
func (h *PortalHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	transcript, err := h.service.Transcript(r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]conversation.Turn{"turns": transcript})
}

// PatientBook is the manual booking channel.
func (h *PortalHandler) PatientBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		portal.ManualForm
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.SubmitForm(r.Context(), req.SessionID, req.ManualForm)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{
			"booking": created,
			"message": "Appointment confirmed! A confirmation email has been sent.",
		})
	case errors.Is(err, portal.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "unknown session")
	case errors.Is(err, portal.ErrActionInFlight):
		writeError(w, http.StatusConflict, "a booking is already in flight")
	case calcom.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case calcom.IsRemote(err):
		// Pass the scheduling service's message through verbatim.
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// PatientBookings returns the "mine" view after a fresh fetch.
func (h *PortalHandler) PatientBookings(w http.ResponseWriter, r *http.Request) {
	mine, err := h.service.MyBookings(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]bookingView{"bookings": bookingViews(mine)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
