// Package calcom contains the scheduling service client and booking types.
package calcom

import (
	"strings"
	"time"
)

// AppointmentDuration is the fixed length of every appointment. The portal
// does not support variable-length bookings.
const AppointmentDuration = 30 * time.Minute

// StatusCancelled is the only status value the portal interprets. Anything
// else, including an empty status, counts as active.
const StatusCancelled = "CANCELLED"

// Booking is a scheduled appointment record owned by the remote scheduling
// service. The portal never persists it; every read re-fetches the full set.
type Booking struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	Attendees   []Attendee `json:"attendees"`
	Status      string     `json:"status,omitempty"`
	UID         string     `json:"uid,omitempty"`
}

// Attendee is a booking participant as reported by the scheduling service.
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

// Cancelled reports whether the booking carries the recognized cancelled
// status.
func (b Booking) Cancelled() bool {
	return b.Status == StatusCancelled
}

// HasAttendee reports whether any attendee's email matches the given email
// case-insensitively.
func (b Booking) HasAttendee(email string) bool {
	if email == "" {
		return false
	}
	for _, a := range b.Attendees {
		if strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

// BookingRequest is the transient value object built by either booking
// channel before calling the gateway.
type BookingRequest struct {
	Name      string
	Email     string
	StartTime time.Time
	Notes     string
}

// Validate checks the required fields locally, before any network call.
func (r BookingRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" || r.StartTime.IsZero() {
		return ErrMissingFields
	}
	return nil
}

// EndTime derives the appointment end by the fixed duration policy.
func (r BookingRequest) EndTime() time.Time {
	return r.StartTime.Add(AppointmentDuration)
}

// bookingPayload is the wire format of the scheduling service's create call.
type bookingPayload struct {
	EventTypeID int               `json:"eventTypeId"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Responses   bookingResponses  `json:"responses"`
	Metadata    map[string]string `json:"metadata"`
	TimeZone    string            `json:"timeZone"`
	Language    string            `json:"language"`
}

type bookingResponses struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}
