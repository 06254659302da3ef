// Package portal is the dual-channel booking coordinator: it funnels the
// manual form and the conversational agent into the same booking gateway and
// keeps the derived appointment views consistent after either channel
// mutates remote state.
package portal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/dentalcare-connect/portal/internal/bookings"
	"github.com/dentalcare-connect/portal/internal/calcom"
	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/identity"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

var portalTracer = otel.Tracer("portal.internal.portal")

var (
	// ErrSessionNotFound rejects calls against an unknown session id.
	ErrSessionNotFound = errors.New("portal: session not found")
	// ErrActionInFlight enforces the single-flight rule per logical action:
	// one chat send, one form submit, one cancel per booking id.
	ErrActionInFlight = errors.New("portal: action already in flight")
	// ErrCancelFailed reports the gateway declined (or failed to reach) the
	// cancel; the local view is left unchanged.
	ErrCancelFailed = errors.New("portal: failed to cancel booking")
)

// Gateway is the slice of the scheduling client the coordinator needs. Both
// booking channels converge on it.
type Gateway interface {
	ListBookings(ctx context.Context) []calcom.Booking
	CreateBooking(ctx context.Context, req calcom.BookingRequest) (*calcom.Booking, error)
	CancelBooking(ctx context.Context, id int) bool
}

// ChatRunner runs one conversational turn.
type ChatRunner interface {
	RunTurn(ctx context.Context, history []conversation.Turn, message string) conversation.TurnResult
}

// ChatReply is the chat channel's answer to one user message.
type ChatReply struct {
	Reply            string `json:"reply"`
	RefreshSuggested bool   `json:"refresh_suggested"`
}

// Service coordinates both booking channels and the derived views.
type Service struct {
	gateway  Gateway
	agent    ChatRunner
	logger   *logging.Logger
	timeZone *time.Location
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	doctorMu sync.Mutex
	upcoming []calcom.Booking
	cancels  map[int]struct{}

	refreshGroup singleflight.Group
}

// NewService constructs the coordinator. timeZone resolves manual form
// date/time fields; nil means the process-local zone.
func NewService(gateway Gateway, agent ChatRunner, timeZone *time.Location, logger *logging.Logger) *Service {
	if gateway == nil {
		panic("portal: gateway required")
	}
	if agent == nil {
		panic("portal: chat agent required")
	}
	if timeZone == nil {
		timeZone = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		gateway:  gateway,
		agent:    agent,
		logger:   logger,
		timeZone: timeZone,
		now:      time.Now,
		sessions: make(map[string]*session),
		cancels:  make(map[int]struct{}),
	}
}

// StartSession registers a portal session for the given identity and seeds
// the chat transcript with the assistant greeting.
func (s *Service) StartSession(id identity.Identity) (sessionID string, greeting conversation.Turn) {
	sess := &session{
		id:       uuid.NewString(),
		identity: id,
		transcript: []conversation.Turn{
			{Speaker: conversation.SpeakerAgent, Text: conversation.Greeting},
		},
		form: ManualForm{Email: id.Email},
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("portal: session started", "session_id", sess.id, "role", string(id.Role))
	return sess.id, sess.transcript[0]
}

func (s *Service) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Transcript returns the session's chat history.
func (s *Service) Transcript(sessionID string) ([]conversation.Turn, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.snapshotTranscript(), nil
}

// SendChat runs one chat turn. The user turn is appended before the model
// call and the transcript survives failures; a heuristic confirmation in the
// reply refreshes the "mine" view in the background without blocking.
func (s *Service) SendChat(ctx context.Context, sessionID, message string) (ChatReply, error) {
	ctx, span := portalTracer.Start(ctx, "portal.chat_turn")
	defer span.End()

	sess, err := s.session(sessionID)
	if err != nil {
		return ChatReply{}, err
	}
	if !sess.tryAcquireChat() {
		return ChatReply{}, ErrActionInFlight
	}
	defer sess.releaseChat()

	history := sess.snapshotTranscript()
	sess.appendTurn(conversation.Turn{Speaker: conversation.SpeakerUser, Text: message})

	result := s.agent.RunTurn(ctx, history, message)
	sess.appendTurn(conversation.Turn{Speaker: conversation.SpeakerAgent, Text: result.Reply})

	span.SetAttributes(
		attribute.Bool("portal.tool_invoked", result.ToolInvoked),
		attribute.Bool("portal.booking_created", result.BookingCreated),
	)

	if result.RefreshSuggested {
		go func() {
			if _, err := s.RefreshMine(context.Background(), sessionID); err != nil {
				s.logger.Warn("portal: background view refresh failed", "session_id", sessionID, "error", err)
			}
		}()
	}

	return ChatReply{Reply: result.Reply, RefreshSuggested: result.RefreshSuggested}, nil
}

// SubmitForm is the manual booking channel. On success the form's transient
// fields are cleared, the submission email is remembered for the widened
// "mine" filter, and the view is re-derived.
func (s *Service) SubmitForm(ctx context.Context, sessionID string, form ManualForm) (*calcom.Booking, error) {
	ctx, span := portalTracer.Start(ctx, "portal.manual_booking")
	defer span.End()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.tryAcquireForm() {
		return nil, ErrActionInFlight
	}
	defer sess.releaseForm()

	created, err := s.gateway.CreateBooking(ctx, form.request(s.timeZone))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sess.mu.Lock()
	sess.form = form
	sess.form.clearTransient()
	sess.mu.Unlock()

	s.logger.Info("portal: manual booking created", "session_id", sessionID, "booking_id", created.ID)
	if _, err := s.RefreshMine(ctx, sessionID); err != nil {
		s.logger.Warn("portal: view refresh after booking failed", "session_id", sessionID, "error", err)
	}
	return created, nil
}

// RefreshMine re-fetches the full remote set and replaces the session's
// "mine" view. Concurrent refreshes for the same session are coalesced; the
// last fetch to resolve wins the view.
func (s *Service) RefreshMine(ctx context.Context, sessionID string) ([]calcom.Booking, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	view, err, _ := s.refreshGroup.Do("mine:"+sessionID, func() (any, error) {
		all := s.gateway.ListBookings(ctx)
		identityEmail, formEmail := sess.filterEmails()
		mine := bookings.Mine(all, identityEmail, formEmail)
		sess.replaceMine(mine)
		return mine, nil
	})
	if err != nil {
		return nil, err
	}
	return view.([]calcom.Booking), nil
}

// MyBookings returns the session's current "mine" view after a fresh fetch.
func (s *Service) MyBookings(ctx context.Context, sessionID string) ([]calcom.Booking, error) {
	if _, err := s.RefreshMine(ctx, sessionID); err != nil {
		return nil, err
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.mineView(), nil
}

// UpcomingBookings re-fetches and replaces the doctor view: today-or-later,
// sorted chronologically.
func (s *Service) UpcomingBookings(ctx context.Context) []calcom.Booking {
	view, _, _ := s.refreshGroup.Do("upcoming", func() (any, error) {
		all := s.gateway.ListBookings(ctx)
		upcoming := bookings.Upcoming(all, bookings.StartOfDay(s.now()))
		s.doctorMu.Lock()
		s.upcoming = upcoming
		s.doctorMu.Unlock()
		return upcoming, nil
	})
	return view.([]calcom.Booking)
}

// CancelBooking cancels a doctor-view booking. The id is removed from the
// locally held upcoming list only after the gateway confirms; on failure the
// list is left unchanged and the error surfaced. One in-flight cancel per
// booking id.
func (s *Service) CancelBooking(ctx context.Context, id int) error {
	ctx, span := portalTracer.Start(ctx, "portal.cancel_booking")
	defer span.End()
	span.SetAttributes(attribute.Int("portal.booking_id", id))

	s.doctorMu.Lock()
	if _, busy := s.cancels[id]; busy {
		s.doctorMu.Unlock()
		return ErrActionInFlight
	}
	s.cancels[id] = struct{}{}
	s.doctorMu.Unlock()
	defer func() {
		s.doctorMu.Lock()
		delete(s.cancels, id)
		s.doctorMu.Unlock()
	}()

	if !s.gateway.CancelBooking(ctx, id) {
		span.RecordError(ErrCancelFailed)
		return ErrCancelFailed
	}

	s.doctorMu.Lock()
	s.upcoming = bookings.WithoutID(s.upcoming, id)
	s.doctorMu.Unlock()

	s.logger.Info("portal: booking cancelled", "booking_id", id)
	return nil
}

// CachedUpcoming returns the last derived doctor view without a re-fetch.
func (s *Service) CachedUpcoming() []calcom.Booking {
	s.doctorMu.Lock()
	defer s.doctorMu.Unlock()
	out := make([]calcom.Booking, len(s.upcoming))
	copy(out, s.upcoming)
	return out
}
