package dashboard

import (
	"go.uber.org/zap"

	"github.com/Mschirtzinger/quotesync/internal/engine"
)

// Handler forwards engine status and category updates to dashboard clients.
// It implements engine.Sink.
type Handler struct {
	server *Server
	logger *zap.Logger
}

// NewHandler creates a sink connected to a dashboard server
func NewHandler(server *Server, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{server: server, logger: logger}
}

// OnStatus broadcasts a status message.
func (h *Handler) OnStatus(st engine.Status) {
	h.send(MessageTypeStatus, st)
}

// OnCategories broadcasts the new category list.
func (h *Handler) OnCategories(cats []string) {
	if cats == nil {
		cats = []string{}
	}
	h.send(MessageTypeCategories, cats)
}

func (h *Handler) send(typ MessageType, v any) {
	msg, err := NewMessage(typ, v)
	if err != nil {
		h.logger.Warn("failed to build dashboard message", zap.Error(err))
		return
	}
	h.server.Broadcast(msg)
}
