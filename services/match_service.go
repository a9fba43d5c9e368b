package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/brackets"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/repositories"
)

// pointsPerWin is the league points credited to a match winner.
const pointsPerWin = 3

type SubmitResultInput struct {
	WinnerID   int `json:"winner_id"`
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// CreateMatches persists a bracket-generated match set. Bye matches are
	// resolved immediately: the sole assigned team advances with a win.
	CreateMatches(ctx context.Context, matches []*models.Match) error
	// GenerateBracket runs the configured pairing generator over the
	// tournament's registered teams and persists the resulting match set.
	GenerateBracket(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// Start moves a pending match to in_progress. Requires both teams.
	Start(ctx context.Context, matchID int) (*models.Match, error)
	// SubmitResult completes a match, from in_progress or directly from
	// pending. Exactly one concurrent submission wins; a retry carrying the
	// result already recorded succeeds idempotently, any other submission
	// against a completed match is a conflict.
	SubmitResult(ctx context.Context, matchID int, input SubmitResultInput) (*models.Match, error)
	// ResolveBye completes a bye match with team1 as the forced winner and
	// no scores.
	ResolveBye(ctx context.Context, matchID int) (*models.Match, error)
}

type matchService struct {
	db        *sql.DB
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	generator brackets.Generator
	announcer RoomAnnouncer
	logger    *slog.Logger

	// One mutex per match id serializes concurrent submissions; the
	// repository's status guard is the backstop across processes.
	locks sync.Map
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	generator brackets.Generator,
	announcer RoomAnnouncer,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:        db,
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		generator: generator,
		announcer: announcer,
		logger:    logger,
	}
}

func (s *matchService) lockMatch(matchID int) func() {
	value, _ := s.locks.LoadOrStore(matchID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	if matches == nil {
		return []*models.Match{}, nil
	}
	return matches, nil
}

func (s *matchService) CreateMatches(ctx context.Context, matches []*models.Match) error {
	for _, match := range matches {
		match.Status = models.MatchStatusPending
		if err := s.matchRepo.Create(ctx, nil, match); err != nil {
			return err
		}
	}
	for _, match := range matches {
		if !match.IsBye {
			continue
		}
		if _, err := s.ResolveBye(ctx, match.ID); err != nil {
			return fmt.Errorf("failed to resolve bye match %d: %w", match.ID, err)
		}
	}
	return nil
}

func (s *matchService) GenerateBracket(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams for tournament %d: %w", tournamentID, err)
	}
	if len(teams) == 0 {
		return nil, ErrTournamentNotFound
	}

	matches, err := s.generator.Generate(ctx, brackets.GenerateParams{
		TournamentID: tournamentID,
		Teams:        teams,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}
	if err := s.CreateMatches(ctx, matches); err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("generator", s.generator.GetName()),
		slog.Int("matches", len(matches)))
	return matches, nil
}

func (s *matchService) Start(ctx context.Context, matchID int) (*models.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.IsBye {
		return nil, ErrMatchIsBye
	}
	if match.Team1ID == nil || match.Team2ID == nil {
		return nil, ErrMatchMissingTeams
	}
	switch match.Status {
	case models.MatchStatusInProgress:
		return nil, ErrMatchAlreadyStarted
	case models.MatchStatusCompleted:
		return nil, ErrMatchAlreadyCompleted
	}

	if err := s.matchRepo.MarkInProgress(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotUpdatable) {
			return nil, ErrMatchAlreadyStarted
		}
		return nil, err
	}
	match.Status = models.MatchStatusInProgress

	s.announce(ctx, match.RoomKey(), "Match started", false)
	return match, nil
}

func (s *matchService) SubmitResult(ctx context.Context, matchID int, input SubmitResultInput) (*models.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.IsBye {
		return nil, ErrMatchIsBye
	}
	if input.Team1Score < 0 || input.Team2Score < 0 {
		return nil, ErrMatchNegativeScore
	}
	if !match.HasTeam(input.WinnerID) {
		return nil, ErrMatchInvalidWinner
	}
	if match.Status == models.MatchStatusCompleted {
		return s.resolveResubmission(match, input)
	}

	if err := s.completeMatch(ctx, match, input); err != nil {
		if errors.Is(err, repositories.ErrMatchNotUpdatable) {
			// Lost a cross-process race; re-read and apply the retry rule.
			fresh, getErr := s.GetMatch(ctx, matchID)
			if getErr != nil {
				return nil, getErr
			}
			return s.resolveResubmission(fresh, input)
		}
		return nil, err
	}

	team1Score, team2Score := input.Team1Score, input.Team2Score
	match.Status = models.MatchStatusCompleted
	match.Team1Score = &team1Score
	match.Team2Score = &team2Score
	match.WinnerID = &input.WinnerID

	s.announce(ctx, match.RoomKey(),
		fmt.Sprintf("Match completed %d:%d", input.Team1Score, input.Team2Score), true)
	return match, nil
}

// completeMatch records the result and the winner/loser counter updates in
// one transaction so a completed match can never leave the Team aggregates
// untouched.
func (s *matchService) completeMatch(ctx context.Context, match *models.Match, input SubmitResultInput) error {
	var exec repositories.SQLExecutor
	var tx *sql.Tx
	if s.db != nil {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin completion transaction for match %d: %w", match.ID, err)
		}
		defer tx.Rollback()
		exec = tx
	}

	team1Score, team2Score := input.Team1Score, input.Team2Score
	if err := s.matchRepo.Complete(ctx, exec, match.ID, &team1Score, &team2Score, input.WinnerID); err != nil {
		return err
	}

	loserID := s.loserOf(match, input.WinnerID)
	if err := s.teamRepo.ApplyMatchResult(ctx, exec, input.WinnerID, loserID, pointsPerWin); err != nil {
		return fmt.Errorf("failed to apply result counters for match %d: %w", match.ID, err)
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit completion for match %d: %w", match.ID, err)
		}
	}
	return nil
}

func (s *matchService) loserOf(match *models.Match, winnerID int) *int {
	if match.Team1ID != nil && *match.Team1ID != winnerID {
		return match.Team1ID
	}
	if match.Team2ID != nil && *match.Team2ID != winnerID {
		return match.Team2ID
	}
	return nil
}

// resolveResubmission applies the retry rule for an already-completed
// match: the identical result is acknowledged without any state change,
// anything else is a conflict. There is no correction path.
func (s *matchService) resolveResubmission(match *models.Match, input SubmitResultInput) (*models.Match, error) {
	if match.WinnerID != nil && *match.WinnerID == input.WinnerID &&
		match.Team1Score != nil && *match.Team1Score == input.Team1Score &&
		match.Team2Score != nil && *match.Team2Score == input.Team2Score {
		return match, nil
	}
	return nil, ErrMatchAlreadyCompleted
}

func (s *matchService) ResolveBye(ctx context.Context, matchID int) (*models.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsBye {
		return nil, ErrMatchNotBye
	}
	if match.Status == models.MatchStatusCompleted {
		return match, nil
	}
	if match.Team1ID == nil {
		return nil, ErrMatchMissingTeams
	}

	var exec repositories.SQLExecutor
	var tx *sql.Tx
	if s.db != nil {
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin bye transaction for match %d: %w", matchID, err)
		}
		defer tx.Rollback()
		exec = tx
	}

	if err := s.matchRepo.Complete(ctx, exec, matchID, nil, nil, *match.Team1ID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotUpdatable) {
			return s.GetMatch(ctx, matchID)
		}
		return nil, err
	}
	if err := s.teamRepo.ApplyMatchResult(ctx, exec, *match.Team1ID, nil, pointsPerWin); err != nil {
		return nil, fmt.Errorf("failed to apply bye counters for match %d: %w", matchID, err)
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit bye for match %d: %w", matchID, err)
		}
	}

	match.Status = models.MatchStatusCompleted
	match.WinnerID = match.Team1ID

	s.announce(ctx, match.RoomKey(), "Match resolved as a bye", true)
	return match, nil
}

// announce posts a system message into the match room. Chat delivery is
// best-effort relative to the match transition: the transition has already
// committed, so a chat failure is logged and swallowed.
func (s *matchService) announce(ctx context.Context, roomKey, body string, terminal bool) {
	if s.announcer == nil {
		return
	}
	if err := s.announcer.PostSystemMessage(ctx, roomKey, body); err != nil {
		s.logger.Error("failed to post system message",
			slog.String("room", roomKey), slog.Any("error", err))
	}
	if terminal {
		s.announcer.MarkRoomTerminal(roomKey)
	}
}
