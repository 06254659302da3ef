// Package conversation drives the AI booking assistant: a chat session with
// one callable tool, executed against the booking gateway.
package conversation

import "context"

const (
	SpeakerUser  = "user"
	SpeakerAgent = "agent"
)

// Turn is one entry of the append-only chat transcript. Transcripts live in
// memory for the lifetime of a chat session and are never persisted.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// ToolCall is a structured, schema-validated invocation the model can emit
// instead of (or alongside) free text.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ModelTurn is a single model response.
type ModelTurn struct {
	Text  string
	Calls []ToolCall
}

// ChatSession is one configured model conversation. Tool invocations must be
// answered with SendToolResult before the session proceeds.
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (ModelTurn, error)
	SendToolResult(ctx context.Context, name string, result map[string]any) (ModelTurn, error)
}

// ChatModel creates sessions preloaded with prior history.
type ChatModel interface {
	NewSession(history []Turn) ChatSession
}
