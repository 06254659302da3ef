package conversation

import (
	"fmt"
	"time"
)

// Greeting seeds every new patient chat session.
const Greeting = "Hello! I am the DentalCare AI assistant. How can I help you book an appointment today?"

// FallbackReply is the single user-facing message for any agent failure:
// model errors, network failures, malformed tool arguments. It points the
// patient at the manual channel instead of retrying.
const FallbackReply = "I apologize, but I'm having trouble connecting to the scheduling system right now. Please try using the manual booking form."

// systemInstruction pins the model to the receptionist persona and the
// booking rules. These are prompt-level guarantees only; the model can still
// misbehave, so the agent never treats its text as proof of a booking.
func systemInstruction(now time.Time) string {
	return fmt.Sprintf(`You are a helpful and professional receptionist for DentalCare Connect.
Your goal is to help patients book dental appointments.
Current Date/Time: %s.

Rules:
1. Always be polite and professional.
2. To book an appointment, you MUST collect the patient's Name, Email, and Desired Date/Time.
3. If you have all the information, call the 'bookAppointment' tool.
4. If the tool call is successful, confirm to the user.
5. Do not make up appointment confirmations without calling the tool.`,
		now.UTC().Format(time.RFC3339))
}
