package webchat

import (
	"context"

	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/identity"
	"github.com/dentalcare-connect/portal/internal/portal"
)

// PortalAdapter bridges the widget to the portal coordinator, flattening its
// reply struct into the shape the Service interface expects.
type PortalAdapter struct {
	portal *portal.Service
}

// NewPortalAdapter wraps a portal service for the widget.
func NewPortalAdapter(svc *portal.Service) *PortalAdapter {
	if svc == nil {
		panic("webchat: portal service required")
	}
	return &PortalAdapter{portal: svc}
}

func (a *PortalAdapter) StartSession(id identity.Identity) (string, conversation.Turn) {
	return a.portal.StartSession(id)
}

func (a *PortalAdapter) SendChat(ctx context.Context, sessionID, message string) (string, bool, error) {
	reply, err := a.portal.SendChat(ctx, sessionID, message)
	if err != nil {
		return "", false, err
	}
	return reply.Reply, reply.RefreshSuggested, nil
}

func (a *PortalAdapter) Transcript(sessionID string) ([]conversation.Turn, error) {
	return a.portal.Transcript(sessionID)
}
