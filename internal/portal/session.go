package portal

import (
	"strings"
	"sync"
	"time"

	"github.com/dentalcare-connect/portal/internal/calcom"
	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/identity"
)

// ManualForm mirrors the manual booking tab's fields. Name and email are
// sticky across submissions; date, time, and notes are transient and cleared
// after a successful booking.
type ManualForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"` // 2006-01-02
	Time  string `json:"time"` // 15:04
	Notes string `json:"notes"`
}

// startTime resolves the form's date and time in the given location. A
// malformed or missing value yields the zero time, which the gateway's
// validation rejects before any network call.
func (f ManualForm) startTime(loc *time.Location) time.Time {
	if f.Date == "" || f.Time == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", f.Date+"T"+f.Time, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// request builds the gateway request from the form.
func (f ManualForm) request(loc *time.Location) calcom.BookingRequest {
	return calcom.BookingRequest{
		Name:      strings.TrimSpace(f.Name),
		Email:     strings.TrimSpace(f.Email),
		StartTime: f.startTime(loc),
		Notes:     f.Notes,
	}
}

// clearTransient drops the per-booking fields, keeping name and email for
// the next submission.
func (f *ManualForm) clearTransient() {
	f.Date = ""
	f.Time = ""
	f.Notes = ""
}

// session is the server-side mirror of one portal client: transcript, form
// state, and the derived "mine" view. All fields are guarded by mu.
type session struct {
	mu sync.Mutex

	id       string
	identity identity.Identity

	transcript []conversation.Turn
	form       ManualForm
	mine       []calcom.Booking

	chatInFlight bool
	formInFlight bool
}

func (s *session) snapshotTranscript() []conversation.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]conversation.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *session) appendTurn(turn conversation.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, turn)
}

// filterEmails returns the two email sources of the widened "mine" filter.
func (s *session) filterEmails() (identityEmail, formEmail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.Email, s.form.Email
}

// replaceMine swaps the derived view wholesale; views are never patched in
// place, so concurrent refreshes cannot produce torn reads.
func (s *session) replaceMine(view []calcom.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mine = view
}

func (s *session) mineView() []calcom.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]calcom.Booking, len(s.mine))
	copy(out, s.mine)
	return out
}

// tryAcquireChat implements the one-in-flight-chat-send rule.
func (s *session) tryAcquireChat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatInFlight {
		return false
	}
	s.chatInFlight = true
	return true
}

func (s *session) releaseChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatInFlight = false
}

// tryAcquireForm implements the one-in-flight-form-submit rule.
func (s *session) tryAcquireForm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.formInFlight {
		return false
	}
	s.formInFlight = true
	return true
}

func (s *session) releaseForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formInFlight = false
}
