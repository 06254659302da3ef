package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dentalcare-connect/portal/internal/calcom"
	"github.com/dentalcare-connect/portal/internal/observability/metrics"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

// State is the agent's position in a single chat turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingModel
	StateToolExecution
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolExecution:
		return "tool_execution"
	default:
		return "idle"
	}
}

// BookingCreator is the slice of the booking gateway the agent needs.
type BookingCreator interface {
	CreateBooking(ctx context.Context, req calcom.BookingRequest) (*calcom.Booking, error)
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	// Reply is the user-visible agent text. After a tool call it is always
	// the model's follow-up, never a synthesized confirmation.
	Reply string
	// ToolInvoked reports that the model called bookAppointment this turn.
	ToolInvoked bool
	// BookingCreated reports that the gateway accepted the tool's request.
	BookingCreated bool
	// RefreshSuggested is the heuristic hint that the reply sounds like a
	// confirmed booking and the history view is worth re-fetching.
	RefreshSuggested bool
	// Fallback reports that Reply is the fixed apology, not model output.
	Fallback bool
}

// Agent runs chat turns as an explicit state machine:
//
//	Idle -> AwaitingModel -> Idle                      (plain text turn)
//	Idle -> AwaitingModel -> ToolExecution
//	     -> AwaitingModel -> Idle                      (tool-calling turn)
//
// The tool result is fed back into the session as a typed function-response
// turn, so a booking confirmation can only come out of the model after the
// gateway has actually answered.
type Agent struct {
	model   ChatModel
	gateway BookingCreator
	logger  *logging.Logger
	metrics *metrics.PortalMetrics
}

// NewAgent constructs a conversational booking agent.
func NewAgent(model ChatModel, gateway BookingCreator, logger *logging.Logger, m *metrics.PortalMetrics) *Agent {
	if model == nil {
		panic("conversation: chat model required")
	}
	if gateway == nil {
		panic("conversation: booking gateway required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Agent{model: model, gateway: gateway, logger: logger, metrics: m}
}

// RunTurn sends one user message into a session rebuilt from the prior
// transcript and returns the agent's reply. Any session failure collapses
// into the fixed fallback reply; the turn is not retried.
func (a *Agent) RunTurn(ctx context.Context, history []Turn, message string) TurnResult {
	state := StateIdle
	session := a.model.NewSession(history)

	state = a.transition(state, StateAwaitingModel)
	turn, err := session.SendMessage(ctx, message)
	if err != nil {
		return a.fallback("model error", err)
	}

	call, ok := findToolCall(turn)
	if !ok {
		a.transition(state, StateIdle)
		result := TurnResult{
			Reply:            turn.Text,
			RefreshSuggested: IsBookingConfirmation(turn.Text),
		}
		a.metrics.ObserveChatTurn("reply")
		return result
	}

	state = a.transition(state, StateToolExecution)
	req, err := parseBookingArgs(call.Args)
	if err != nil {
		a.metrics.ObserveToolCall("error")
		return a.fallback("malformed tool arguments", err)
	}

	toolResult := map[string]any{"success": true}
	booked := false
	created, err := a.gateway.CreateBooking(ctx, req)
	if err != nil {
		a.metrics.ObserveToolCall("rejected")
		a.logger.Warn("agent: booking tool rejected by gateway", "error", err)
		toolResult = map[string]any{"success": false, "error": err.Error()}
	} else {
		booked = true
		a.metrics.ObserveToolCall("success")
		a.logger.Info("agent: booking created via tool call", "booking_id", created.ID)
		toolResult["data"] = map[string]any{
			"id":    created.ID,
			"uid":   created.UID,
			"title": created.Title,
		}
	}

	state = a.transition(state, StateAwaitingModel)
	followUp, err := session.SendToolResult(ctx, call.Name, toolResult)
	if err != nil {
		return a.fallback("tool follow-up error", err)
	}
	a.transition(state, StateIdle)

	reply := followUp.Text
	if reply == "" {
		reply = "Appointment processed."
	}
	a.metrics.ObserveChatTurn("reply")
	return TurnResult{
		Reply:            reply,
		ToolInvoked:      true,
		BookingCreated:   booked,
		RefreshSuggested: IsBookingConfirmation(reply),
	}
}

func (a *Agent) transition(from, to State) State {
	a.logger.Debug("agent: state transition", "from", from.String(), "to", to.String())
	return to
}

func (a *Agent) fallback(reason string, err error) TurnResult {
	a.logger.Error("agent: turn degraded to fallback reply", "reason", reason, "error", err)
	a.metrics.ObserveChatTurn("fallback")
	return TurnResult{Reply: FallbackReply, Fallback: true}
}

func findToolCall(turn ModelTurn) (ToolCall, bool) {
	for _, call := range turn.Calls {
		if call.Name == toolBookAppointment {
			return call, true
		}
	}
	return ToolCall{}, false
}

// parseBookingArgs validates the model-supplied arguments into a typed
// booking request. The schema marks name, email, and dateTime required, but
// the model is not trusted to honor it.
func parseBookingArgs(args map[string]any) (calcom.BookingRequest, error) {
	name, _ := args["name"].(string)
	email, _ := args["email"].(string)
	dateTime, _ := args["dateTime"].(string)
	notes, _ := args["notes"].(string)

	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(dateTime) == "" {
		return calcom.BookingRequest{}, fmt.Errorf("conversation: incomplete tool arguments %v", argKeys(args))
	}
	start, err := time.Parse(time.RFC3339, dateTime)
	if err != nil {
		return calcom.BookingRequest{}, fmt.Errorf("conversation: invalid dateTime %q: %w", dateTime, err)
	}
	return calcom.BookingRequest{
		Name:      name,
		Email:     email,
		StartTime: start,
		Notes:     notes,
	}, nil
}

func argKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	return keys
}
