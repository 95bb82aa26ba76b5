package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/Boardroom/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

// BroadcastEvent marshals payload and broadcasts it. Payloads implementing
// broadcast.Scoped reach only the subscribers of their tree.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	var rootID string
	if s, ok := payload.(broadcast.Scoped); ok {
		rootID = s.Root()
	}
	h.Broadcast(ctx, rootID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
