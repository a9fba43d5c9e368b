package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/chat"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/middleware"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origin once it is deployed.
		return true
	},
}

type WebSocketHandler struct {
	chatService services.ChatService
	logger      *slog.Logger
}

func NewWebSocketHandler(chatService services.ChatService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// ServeWs upgrades the connection and attaches it to the room named in the
// URL for the connection's lifetime. The room key is validated before the
// upgrade so a bad key gets a proper HTTP error instead of a dropped
// socket. Attach does not replay history; clients fetch the snapshot over
// the history endpoint and reconcile.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	roomKey := chi.URLParam(r, "roomKey")

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	teamID := middleware.GetTeamIDFromContext(r.Context())

	room, err := h.chatService.Room(r.Context(), roomKey)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("failed to upgrade connection",
			slog.String("room", roomKey), slog.Any("error", err))
		return
	}

	submit := func(ctx context.Context, frame chat.InboundFrame) error {
		_, err := h.chatService.PostMessage(ctx, roomKey, services.PostMessageInput{
			UserID:    &userID,
			TeamID:    teamID,
			Body:      frame.Body,
			ReplyToID: frame.ReplyToID,
			ImageKey:  frame.ImageKey,
			ClientTag: frame.ClientTag,
		})
		return err
	}

	client := chat.NewClient(room, conn, submit, h.logger)
	room.Attach(client)

	go client.WritePump()
	go client.ReadPump(context.Background())

	h.logger.Info("websocket client attached",
		slog.String("room", roomKey), slog.Int("user_id", userID))
}
