package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/chat"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/repositories"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/storage"
)

// hydrateLimit caps how much durable history is loaded into a room on
// first access. The newest messages are loaded, so the room always holds
// the tail of the durable log; anything older has scrolled out of the
// live window.
const hydrateLimit = 200

var channelKeyPattern = regexp.MustCompile(`^channel_[a-zA-Z0-9_-]{1,64}$`)

type PostMessageInput struct {
	UserID    *int
	TeamID    *int
	Body      string
	ReplyToID *string
	ImageKey  *string
	ClientTag *string
}

// RoomAnnouncer is the slice of ChatService the match state machine needs:
// system-message injection and terminal marking for a match room.
type RoomAnnouncer interface {
	PostSystemMessage(ctx context.Context, roomKey, body string) error
	MarkRoomTerminal(roomKey string)
}

type ChatService interface {
	RoomAnnouncer
	// Room validates the key, resolves it to a live room and hydrates it
	// from durable history on first access. A match key referencing a
	// nonexistent match is rejected, not given an empty room.
	Room(ctx context.Context, roomKey string) (*chat.Room, error)
	// History returns the room's ordered log, or the suffix after afterID.
	// A positive limit keeps only the newest limit messages of that slice.
	History(ctx context.Context, roomKey, afterID string, limit int) ([]*models.Message, error)
	// PostMessage appends one authored message: the room assigns identity
	// and order and fans out, then the message is persisted. A persistence
	// failure poisons the in-memory room so the next access rehydrates.
	PostMessage(ctx context.Context, roomKey string, input PostMessageInput) (*models.Message, error)
}

type chatService struct {
	registry    *chat.Registry
	messageRepo repositories.MessageRepository
	matchRepo   repositories.MatchRepository
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewChatService(
	registry *chat.Registry,
	messageRepo repositories.MessageRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ChatService {
	return &chatService{
		registry:    registry,
		messageRepo: messageRepo,
		matchRepo:   matchRepo,
		uploader:    uploader,
		logger:      logger,
	}
}

// validateRoomKey accepts match_<id> keys for existing matches and
// well-formed channel_<slug> keys.
func (s *chatService) validateRoomKey(ctx context.Context, roomKey string) error {
	if idStr, ok := strings.CutPrefix(roomKey, "match_"); ok {
		matchID, err := strconv.Atoi(idStr)
		if err != nil || matchID <= 0 {
			return ErrRoomKeyInvalid
		}
		if _, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("failed to resolve room %s: %w", roomKey, err)
		}
		return nil
	}
	if channelKeyPattern.MatchString(roomKey) {
		return nil
	}
	return ErrRoomKeyInvalid
}

func (s *chatService) Room(ctx context.Context, roomKey string) (*chat.Room, error) {
	if err := s.validateRoomKey(ctx, roomKey); err != nil {
		return nil, err
	}
	return s.registry.GetOrCreate(ctx, roomKey, func(ctx context.Context) ([]*models.Message, error) {
		messages, err := s.messageRepo.ListLatestByRoom(ctx, roomKey, hydrateLimit)
		if err != nil {
			return nil, err
		}
		s.resolveImageURLs(messages)
		return messages, nil
	})
}

func (s *chatService) History(ctx context.Context, roomKey, afterID string, limit int) ([]*models.Message, error) {
	room, err := s.Room(ctx, roomKey)
	if err != nil {
		return nil, err
	}
	messages := room.History(afterID)
	if limit > 0 && limit < len(messages) {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (s *chatService) PostMessage(ctx context.Context, roomKey string, input PostMessageInput) (*models.Message, error) {
	if strings.TrimSpace(input.Body) == "" && input.ImageKey == nil {
		return nil, ErrMessageEmpty
	}

	room, err := s.Room(ctx, roomKey)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		UserID:    input.UserID,
		TeamID:    input.TeamID,
		Body:      input.Body,
		ReplyToID: input.ReplyToID,
		ImageKey:  input.ImageKey,
		ClientTag: input.ClientTag,
	}
	if input.ImageKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*input.ImageKey)
		msg.ImageURL = &url
	}

	return s.appendAndPersist(ctx, room, msg)
}

func (s *chatService) PostSystemMessage(ctx context.Context, roomKey, body string) error {
	room, err := s.Room(ctx, roomKey)
	if err != nil {
		return err
	}
	_, err = s.appendAndPersist(ctx, room, &models.Message{Body: body, IsSystem: true})
	return err
}

func (s *chatService) MarkRoomTerminal(roomKey string) {
	if room := s.registry.Get(roomKey); room != nil {
		room.MarkTerminal()
	}
}

// appendAndPersist runs the room append (identity, order, fan-out) and then
// writes the message to the durable store. If the write fails the room's
// in-memory log has diverged from the store: the room is failed, which
// closes its attached connections, and evicted so the next access
// rehydrates. Closed clients reconnect and resync through the after_id
// cursor instead of staying attached to a dead instance.
func (s *chatService) appendAndPersist(ctx context.Context, room *chat.Room, msg *models.Message) (*models.Message, error) {
	stored := room.Append(msg)

	if err := s.messageRepo.Create(ctx, stored); err != nil {
		s.logger.Error("failed to persist message, evicting room",
			slog.String("room", room.Key), slog.String("message_id", stored.ID), slog.Any("error", err))
		room.Fail()
		s.registry.Evict(room.Key)
		return nil, fmt.Errorf("failed to persist message for room %s: %w", room.Key, err)
	}
	return stored, nil
}

func (s *chatService) resolveImageURLs(messages []*models.Message) {
	if s.uploader == nil {
		return
	}
	for _, msg := range messages {
		if msg.ImageKey != nil && msg.ImageURL == nil {
			url := s.uploader.GetPublicURL(*msg.ImageKey)
			msg.ImageURL = &url
		}
	}
}
