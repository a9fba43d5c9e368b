package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/repositories"
	"golang.org/x/sync/errgroup"
)

// RankTeams computes the standings for a team set: points descending, then
// wins descending, then losses ascending. Full ties keep the input order,
// so repeated calls over the same set always produce the same ranking.
// Rank is the 1-based position after sorting.
func RankTeams(teams []*models.Team) []*models.TeamStanding {
	sorted := make([]*models.Team, len(teams))
	copy(sorted, teams)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		if sorted[i].Wins != sorted[j].Wins {
			return sorted[i].Wins > sorted[j].Wins
		}
		return sorted[i].Losses < sorted[j].Losses
	})

	standings := make([]*models.TeamStanding, len(sorted))
	for i, team := range sorted {
		standings[i] = &models.TeamStanding{Rank: i + 1, Team: team}
	}
	return standings
}

// StandingsView is the standings table plus the tournament's match
// progress, for display alongside it.
type StandingsView struct {
	Standings        []*models.TeamStanding `json:"standings"`
	MatchesTotal     int                    `json:"matches_total"`
	MatchesCompleted int                    `json:"matches_completed"`
}

type StandingsService interface {
	GetStandings(ctx context.Context, tournamentID int) (*StandingsView, error)
}

type standingsService struct {
	teamRepo  repositories.TeamRepository
	matchRepo repositories.MatchRepository
}

func NewStandingsService(teamRepo repositories.TeamRepository, matchRepo repositories.MatchRepository) StandingsService {
	return &standingsService{
		teamRepo:  teamRepo,
		matchRepo: matchRepo,
	}
}

func (s *standingsService) GetStandings(ctx context.Context, tournamentID int) (*StandingsView, error) {
	var (
		teams   []*models.Team
		matches []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load teams for tournament %d: %w", tournamentID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, tournamentID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches for tournament %d: %w", tournamentID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(teams) == 0 {
		return nil, ErrTournamentNotFound
	}

	completed := 0
	for _, match := range matches {
		if match.Status == models.MatchStatusCompleted {
			completed++
		}
	}

	return &StandingsView{
		Standings:        RankTeams(teams),
		MatchesTotal:     len(matches),
		MatchesCompleted: completed,
	}, nil
}
