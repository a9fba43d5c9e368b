package services

import (
	"context"
	"testing"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func team(id int, name string, points, wins, losses int) *models.Team {
	return &models.Team{ID: id, TournamentID: 1, Name: name, Points: points, Wins: wins, Losses: losses}
}

func rankedNames(standings []*models.TeamStanding) []string {
	names := make([]string, len(standings))
	for i, s := range standings {
		names[i] = s.Team.Name
	}
	return names
}

func TestRankTeamsOrdersByPointsWinsLosses(t *testing.T) {
	teams := []*models.Team{
		team(1, "low", 3, 1, 2),
		team(2, "top", 9, 3, 0),
		team(3, "mid", 6, 2, 1),
	}

	standings := RankTeams(teams)

	assert.Equal(t, []string{"top", "mid", "low"}, rankedNames(standings))
	for i, s := range standings {
		assert.Equal(t, i+1, s.Rank)
	}
}

func TestRankTeamsWinsBreakPointsTie(t *testing.T) {
	teams := []*models.Team{
		team(1, "fewer-wins", 6, 1, 0),
		team(2, "more-wins", 6, 2, 1),
	}

	standings := RankTeams(teams)

	assert.Equal(t, []string{"more-wins", "fewer-wins"}, rankedNames(standings))
}

func TestRankTeamsFewerLossesRankHigherOnFullPointsWinsTie(t *testing.T) {
	teams := []*models.Team{
		team(1, "two-losses", 6, 2, 2),
		team(2, "no-losses", 6, 2, 0),
	}

	standings := RankTeams(teams)

	assert.Equal(t, []string{"no-losses", "two-losses"}, rankedNames(standings))
}

func TestRankTeamsFullTiePreservesInputOrder(t *testing.T) {
	teams := []*models.Team{
		team(7, "first-registered", 3, 1, 1),
		team(2, "second-registered", 3, 1, 1),
		team(9, "third-registered", 3, 1, 1),
	}

	standings := RankTeams(teams)

	assert.Equal(t, []string{"first-registered", "second-registered", "third-registered"}, rankedNames(standings))
}

func TestRankTeamsIsDeterministic(t *testing.T) {
	teams := []*models.Team{
		team(1, "a", 6, 2, 0),
		team(2, "b", 6, 2, 0),
		team(3, "c", 9, 3, 0),
		team(4, "d", 0, 0, 3),
	}

	first := rankedNames(RankTeams(teams))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, rankedNames(RankTeams(teams)))
	}
}

func TestRankTeamsDoesNotMutateInput(t *testing.T) {
	teams := []*models.Team{
		team(1, "a", 0, 0, 0),
		team(2, "b", 9, 3, 0),
	}

	RankTeams(teams)

	assert.Equal(t, "a", teams[0].Name, "input slice order must be untouched")
}

func TestGetStandingsIncludesMatchProgress(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	matchRepo := newFakeMatchRepo()
	service := NewStandingsService(teamRepo, matchRepo)

	alpha := teamRepo.put(&models.Team{TournamentID: 1, Name: "alpha", Points: 3, Wins: 1})
	beta := teamRepo.put(&models.Team{TournamentID: 1, Name: "beta", Losses: 1})

	matchRepo.put(&models.Match{
		TournamentID: 1, Round: 1,
		Team1ID: intPtr(alpha.ID), Team2ID: intPtr(beta.ID),
		Status: models.MatchStatusCompleted, WinnerID: intPtr(alpha.ID),
	})
	matchRepo.put(&models.Match{
		TournamentID: 1, Round: 2,
		Team1ID: intPtr(beta.ID), Team2ID: intPtr(alpha.ID),
		Status: models.MatchStatusPending,
	})

	view, err := service.GetStandings(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, view.MatchesTotal)
	assert.Equal(t, 1, view.MatchesCompleted)
	require.Len(t, view.Standings, 2)
	assert.Equal(t, "alpha", view.Standings[0].Team.Name)
	assert.Equal(t, 1, view.Standings[0].Rank)
	assert.Equal(t, 2, view.Standings[1].Rank)
}

func TestGetStandingsUnknownTournament(t *testing.T) {
	service := NewStandingsService(newFakeTeamRepo(), newFakeMatchRepo())

	_, err := service.GetStandings(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
