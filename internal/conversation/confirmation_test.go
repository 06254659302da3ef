package conversation

import "testing"

func TestIsBookingConfirmation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"booked", "Great, your appointment is booked for Friday!", true},
		{"confirmed", "Confirmed! See you at 2pm.", true},
		{"case insensitive", "Your visit is BOOKED.", true},
		{"plain reply", "What time works best for you?", false},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"substring does not count", "I rebookedit", false},
		// Documented limitation of the token match: negations still fire.
		{"negation misfires", "Your appointment is not confirmed yet.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBookingConfirmation(tt.reply); got != tt.want {
				t.Fatalf("IsBookingConfirmation(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}
