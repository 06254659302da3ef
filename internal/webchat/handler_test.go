package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/identity"
)

type fakeService struct {
	sessionID string
	greeting  conversation.Turn
	reply     string
	refresh   bool
	chatErr   error
	turns     []conversation.Turn

	started  []identity.Identity
	messages []string
}

func (f *fakeService) StartSession(id identity.Identity) (string, conversation.Turn) {
	f.started = append(f.started, id)
	return f.sessionID, f.greeting
}

func (f *fakeService) SendChat(ctx context.Context, sessionID, message string) (string, bool, error) {
	f.messages = append(f.messages, message)
	return f.reply, f.refresh, f.chatErr
}

func (f *fakeService) Transcript(sessionID string) ([]conversation.Turn, error) {
	if f.turns == nil {
		return nil, errors.New("unknown session")
	}
	return f.turns, nil
}

func TestHandleMessageSynchronousReply(t *testing.T) {
	svc := &fakeService{reply: "You are all set.", refresh: true}
	h := NewHandler(svc, nil)

	body := bytes.NewBufferString(`{"session_id":"abc","text":"book me tomorrow at 2"}`)
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", body)
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		SessionID        string `json:"session_id"`
		Reply            string `json:"reply"`
		RefreshSuggested bool   `json:"refresh_suggested"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "abc" {
		t.Errorf("expected session id abc, got %q", resp.SessionID)
	}
	if resp.Reply != "You are all set." {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}
	if !resp.RefreshSuggested {
		t.Error("expected refresh_suggested true")
	}
	if len(svc.messages) != 1 || svc.messages[0] != "book me tomorrow at 2" {
		t.Errorf("unexpected messages sent to service: %v", svc.messages)
	}
}

func TestHandleMessageStartsSessionWhenMissing(t *testing.T) {
	svc := &fakeService{sessionID: "new-session", reply: "hi"}
	h := NewHandler(svc, nil)

	body := bytes.NewBufferString(`{"text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", body)
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.started) != 1 {
		t.Fatalf("expected one session start, got %d", len(svc.started))
	}
	if svc.started[0].Role != identity.RolePatient {
		t.Errorf("expected patient role, got %q", svc.started[0].Role)
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "new-session" {
		t.Errorf("expected new-session, got %q", resp.SessionID)
	}
}

func TestHandleMessageRequiresText(t *testing.T) {
	h := NewHandler(&fakeService{}, nil)

	body := bytes.NewBufferString(`{"session_id":"abc","text":"  "}`)
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", body)
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleMessageChatFailure(t *testing.T) {
	svc := &fakeService{chatErr: errors.New("boom")}
	h := NewHandler(svc, nil)

	body := bytes.NewBufferString(`{"session_id":"abc","text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", body)
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestSendToSessionIgnoresUnknown(t *testing.T) {
	h := NewHandler(&fakeService{}, nil)
	// Must not panic or block when no socket is registered.
	h.SendToSession("nobody", OutboundMessage{Type: "message", Text: "hi"})
}
