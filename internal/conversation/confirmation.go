package conversation

import (
	"regexp"
	"strings"
)

// confirmationPatterns matches agent replies that sound like a completed
// booking. Known limitation: a plain token match misfires on negations such
// as "not confirmed yet". The hint only triggers a background view refresh,
// never anything correctness-sensitive, so false positives are harmless and
// false negatives merely delay the refresh until the next manual one.
var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbooked\b`),
	regexp.MustCompile(`(?i)\bconfirmed\b`),
}

// IsBookingConfirmation returns true if the reply contains booking
// confirmation language.
func IsBookingConfirmation(reply string) bool {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return false
	}
	for _, pat := range confirmationPatterns {
		if pat.MatchString(reply) {
			return true
		}
	}
	return false
}
