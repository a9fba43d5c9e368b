package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

// Match is a single contest between two teams within a tournament round.
// Team1ID/Team2ID are nullable to represent TBD slots and byes.
type Match struct {
	ID           int         `json:"id"`
	TournamentID int         `json:"tournament_id"`
	Round        int         `json:"round"`
	Team1ID      *int        `json:"team1_id,omitempty"`
	Team2ID      *int        `json:"team2_id,omitempty"`
	Status       MatchStatus `json:"status"`
	Team1Score   *int        `json:"team1_score,omitempty"`
	Team2Score   *int        `json:"team2_score,omitempty"`
	WinnerID     *int        `json:"winner_id,omitempty"`
	IsBye        bool        `json:"is_bye"`
	CreatedAt    time.Time   `json:"created_at"`

	Team1 *Team `json:"team1,omitempty"`
	Team2 *Team `json:"team2,omitempty"`
}

// RoomKey returns the chat room key for this match.
func (m *Match) RoomKey() string {
	return MatchRoomKey(m.ID)
}

// HasTeam reports whether teamID is one of the match participants.
func (m *Match) HasTeam(teamID int) bool {
	return (m.Team1ID != nil && *m.Team1ID == teamID) ||
		(m.Team2ID != nil && *m.Team2ID == teamID)
}
