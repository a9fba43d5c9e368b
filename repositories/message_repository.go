package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository is the durable side of a chat room. The in-memory room
// log is a cache over this store and is rehydrated from it on demand.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// ListByRoom returns messages for a room in append order. When afterID
	// is non-empty only messages created after that message are returned.
	ListByRoom(ctx context.Context, roomKey string, afterID string, limit int) ([]*models.Message, error)
	// ListLatestByRoom returns the newest limit messages for a room, still
	// in append order. Used to hydrate a room with the tail of its log.
	ListLatestByRoom(ctx context.Context, roomKey string, limit int) ([]*models.Message, error)
}

type postgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) MessageRepository {
	return &postgresMessageRepository{db: db}
}

func (r *postgresMessageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages
			(id, room_key, user_id, team_id, body, image_key, reply_to_id, is_system, client_tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.RoomKey,
		message.UserID,
		message.TeamID,
		message.Body,
		message.ImageKey,
		message.ReplyToID,
		message.IsSystem,
		message.ClientTag,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message %s for room %s: %w", message.ID, message.RoomKey, err)
	}
	return nil
}

func (r *postgresMessageRepository) ListByRoom(ctx context.Context, roomKey string, afterID string, limit int) ([]*models.Message, error) {
	// The cursor is resolved to a (created_at, id) pair so the suffix query
	// stays consistent with append order even for equal timestamps.
	var queryStr string
	args := []interface{}{roomKey}

	if afterID != "" {
		queryStr = `
			SELECT m.id, m.room_key, m.user_id, m.team_id, m.body, m.image_key, m.reply_to_id, m.is_system, m.client_tag, m.created_at
			FROM messages m, messages cursor
			WHERE cursor.id = $2 AND m.room_key = $1
			  AND (m.created_at, m.id) > (cursor.created_at, cursor.id)
			ORDER BY m.created_at, m.id`
		args = append(args, afterID)
	} else {
		queryStr = `
			SELECT id, room_key, user_id, team_id, body, image_key, reply_to_id, is_system, client_tag, created_at
			FROM messages
			WHERE room_key = $1
			ORDER BY created_at, id`
	}
	if limit > 0 {
		queryStr += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for room %s: %w", roomKey, err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *postgresMessageRepository) ListLatestByRoom(ctx context.Context, roomKey string, limit int) ([]*models.Message, error) {
	queryStr := `
		SELECT id, room_key, user_id, team_id, body, image_key, reply_to_id, is_system, client_tag, created_at
		FROM messages
		WHERE room_key = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, queryStr, roomKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest messages for room %s: %w", roomKey, err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// The query walks the log backwards; flip back to append order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func scanMessages(rows *sql.Rows) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(
			&msg.ID, &msg.RoomKey, &msg.UserID, &msg.TeamID, &msg.Body,
			&msg.ImageKey, &msg.ReplyToID, &msg.IsSystem, &msg.ClientTag, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}
