package models

// TeamStanding is a team's position in the computed standings table.
// Rank is 1-based and assigned after the points/wins/losses sort.
type TeamStanding struct {
	Rank int   `json:"rank"`
	Team *Team `json:"team"`
}
