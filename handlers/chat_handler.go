package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/services"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/storage"
)

const maxUploadBytes = 10 << 20 // 10MB

type ChatHandler struct {
	chatService services.ChatService
	uploader    storage.FileUploader
}

func NewChatHandler(chatService services.ChatService, uploader storage.FileUploader) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		uploader:    uploader,
	}
}

// GetHistoryHandler serves a point-in-time snapshot of a room's ordered
// log, optionally only the suffix after the after_id cursor. A limit keeps
// the newest messages of that slice, so polling "latest N" works without a
// cursor. Clients merge the snapshot with the live stream by message
// identity.
func (h *ChatHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	roomKey := chi.URLParam(r, "roomKey")
	afterID := r.URL.Query().Get("after_id")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit parameter"))
			return
		}
		limit = parsed
	}

	messages, err := h.chatService.History(r.Context(), roomKey, afterID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"messages": messages}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadImageHandler stores a proof image and returns the object key and
// public URL for attaching to a subsequent message submission.
func (h *ChatHandler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	roomKey := chi.URLParam(r, "roomKey")
	if _, err := h.chatService.Room(r.Context(), roomKey); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("missing or invalid image form file: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("rooms/%s/%s%s", roomKey, uuid.NewString(), path.Ext(header.Filename))
	result, err := h.uploader.Upload(r.Context(), key, contentType, file)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	response := jsonResponse{
		"image_key": result.Key,
		"image_url": result.Location,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
