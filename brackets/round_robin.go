package brackets

import (
	"context"
	"fmt"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// Generate pairs every team against every other team once, using the
// circle method: teams rotate around a fixed pivot, one round per
// rotation. An odd team count gets a rotating bye slot.
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) ([]*models.Match, error) {
	teams := params.Teams
	if len(teams) < 2 {
		return nil, fmt.Errorf("round robin requires at least 2 teams, got %d", len(teams))
	}

	ids := make([]*int, 0, len(teams)+1)
	for _, team := range teams {
		id := team.ID
		ids = append(ids, &id)
	}
	if len(ids)%2 != 0 {
		ids = append(ids, nil) // bye slot
	}

	rounds := len(ids) - 1
	half := len(ids) / 2
	matches := make([]*models.Match, 0, rounds*half)

	for round := 1; round <= rounds; round++ {
		for i := 0; i < half; i++ {
			team1, team2 := ids[i], ids[len(ids)-1-i]
			if team1 == nil {
				team1, team2 = team2, nil
			}
			matches = append(matches, &models.Match{
				TournamentID: params.TournamentID,
				Round:        round,
				Team1ID:      team1,
				Team2ID:      team2,
				Status:       models.MatchStatusPending,
				IsBye:        team2 == nil,
			})
		}
		// Rotate all but the first element.
		last := ids[len(ids)-1]
		copy(ids[2:], ids[1:len(ids)-1])
		ids[1] = last
	}
	return matches, nil
}
