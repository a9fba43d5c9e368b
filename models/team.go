package models

import "time"

type Team struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Name         string    `json:"name"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
}
