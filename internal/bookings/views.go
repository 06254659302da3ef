// Package bookings derives filtered, sorted appointment views from the full
// remote booking set. Everything here is pure: no clock reads beyond the
// caller-supplied cutoff, no network calls, no mutation of the input.
package bookings

import (
	"sort"
	"time"

	"github.com/dentalcare-connect/portal/internal/calcom"
)

// StartOfDay truncates t to local midnight, the default cutoff for the
// upcoming view.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Upcoming returns the bookings starting at or after asOf, sorted ascending
// by start time. The sort is chronological, not lexicographic.
func Upcoming(all []calcom.Booking, asOf time.Time) []calcom.Booking {
	out := make([]calcom.Booking, 0, len(all))
	for _, b := range all {
		if !b.StartTime.Before(asOf) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Mine returns the bookings belonging to the user, where "belonging" means
// any attendee email case-insensitively matches either the session identity
// email or the most recently used booking-form email. The union is
// deliberate: a patient may book as a guest under a different address than
// the one they signed in with.
func Mine(all []calcom.Booking, identityEmail, formEmail string) []calcom.Booking {
	out := make([]calcom.Booking, 0, len(all))
	for _, b := range all {
		if b.HasAttendee(identityEmail) || b.HasAttendee(formEmail) {
			out = append(out, b)
		}
	}
	return out
}

// WithoutID drops the booking with the given id, preserving order. Used for
// the optimistic local removal after a confirmed cancel.
func WithoutID(all []calcom.Booking, id int) []calcom.Booking {
	out := make([]calcom.Booking, 0, len(all))
	for _, b := range all {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}
