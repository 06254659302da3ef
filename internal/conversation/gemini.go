package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const toolBookAppointment = "bookAppointment"

// GeminiModel implements ChatModel using Google's Gemini API with the
// bookAppointment function declaration attached.
type GeminiModel struct {
	client  *genai.Client
	modelID string
	now     func() time.Time
}

// NewGeminiModel creates a new Gemini chat model. The API key is passed in
// explicitly; no ambient credential state is read.
func NewGeminiModel(ctx context.Context, apiKey, modelID string) (*GeminiModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiModel{
		client:  client,
		modelID: modelID,
		now:     time.Now,
	}, nil
}

// NewSession configures a chat session with the receptionist system
// instruction, the booking tool, and the full prior transcript.
func (m *GeminiModel) NewSession(history []Turn) ChatSession {
	model := m.client.GenerativeModel(m.modelID)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction(m.now())))
	model.Tools = []*genai.Tool{bookingTool()}

	cs := model.StartChat()
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		role := "user"
		if turn.Speaker == SpeakerAgent {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	return &geminiSession{chat: cs}
}

// Close releases resources held by the Gemini client.
func (m *GeminiModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

func bookingTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        toolBookAppointment,
			Description: "Book a dental appointment for a patient.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {
						Type:        genai.TypeString,
						Description: "The patient's full name",
					},
					"email": {
						Type:        genai.TypeString,
						Description: "The patient's email address",
					},
					"dateTime": {
						Type:        genai.TypeString,
						Description: "The start time for the appointment in ISO 8601 format (e.g. 2023-10-27T10:00:00.000Z). Infer the year and timezone from context if needed.",
					},
					"notes": {
						Type:        genai.TypeString,
						Description: "Any specific symptoms or reasons for the visit",
					},
				},
				Required: []string{"name", "email", "dateTime"},
			},
		}},
	}
}

type geminiSession struct {
	chat *genai.ChatSession
}

func (s *geminiSession) SendMessage(ctx context.Context, text string) (ModelTurn, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return ModelTurn{}, fmt.Errorf("conversation: gemini send failed: %w", err)
	}
	return parseResponse(resp)
}

func (s *geminiSession) SendToolResult(ctx context.Context, name string, result map[string]any) (ModelTurn, error) {
	resp, err := s.chat.SendMessage(ctx, genai.FunctionResponse{
		Name:     name,
		Response: result,
	})
	if err != nil {
		return ModelTurn{}, fmt.Errorf("conversation: gemini tool response failed: %w", err)
	}
	return parseResponse(resp)
}

func parseResponse(resp *genai.GenerateContentResponse) (ModelTurn, error) {
	if len(resp.Candidates) == 0 {
		return ModelTurn{}, errors.New("conversation: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ModelTurn{}, errors.New("conversation: gemini returned empty content")
	}

	var turn ModelTurn
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			turn.Calls = append(turn.Calls, ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	turn.Text = strings.TrimSpace(text.String())
	return turn, nil
}
