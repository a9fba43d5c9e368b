package brackets

import (
	"context"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

type GenerateParams struct {
	TournamentID int
	Teams        []*models.Team
}

// Generator produces the initial pending match set for a tournament. The
// match lifecycle takes over from there; pairing strategy is pluggable.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*models.Match, error)

	GetName() string
}
