package models

import (
	"fmt"
	"time"
)

// Message is a single chat entry in a room's ordered log. The ID is the
// sole deduplication key; ReplyToID may reference a message that no longer
// resolves and is stored verbatim either way.
type Message struct {
	ID        string    `json:"id"`
	RoomKey   string    `json:"room_key"`
	UserID    *int      `json:"user_id,omitempty"`
	TeamID    *int      `json:"team_id,omitempty"`
	Body      string    `json:"body"`
	ImageKey  *string   `json:"-"`
	ImageURL  *string   `json:"image_url,omitempty"`
	ReplyToID *string   `json:"reply_to_id,omitempty"`
	IsSystem  bool      `json:"is_system"`
	ClientTag *string   `json:"client_tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchRoomKey builds the room key for a match chat.
func MatchRoomKey(matchID int) string {
	return fmt.Sprintf("match_%d", matchID)
}

// ChannelRoomKey builds the room key for a free-standing channel.
func ChannelRoomKey(channelID string) string {
	return "channel_" + channelID
}
