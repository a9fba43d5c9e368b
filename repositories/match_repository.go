package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchNotUpdatable = errors.New("match is not in an updatable state")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	// MarkInProgress flips a pending match to in_progress. Returns
	// ErrMatchNotUpdatable if the match is no longer pending.
	MarkInProgress(ctx context.Context, id int) error
	// Complete records scores and the winner. The status guard makes the
	// update a compare-and-set: only one concurrent submission can succeed.
	Complete(ctx context.Context, exec SQLExecutor, id int, team1Score, team2Score *int, winnerID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round, team1_id, team2_id, status, team1_score, team2_score, winner_id, is_bye, created_at`

func scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := rowScanner.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Round,
		&m.Team1ID,
		&m.Team2ID,
		&m.Status,
		&m.Team1Score,
		&m.Team2Score,
		&m.WinnerID,
		&m.IsBye,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(tournament_id, round, team1_id, team2_id, status, team1_score, team2_score, winner_id, is_bye)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.TournamentID,
		match.Round,
		match.Team1ID,
		match.Team2ID,
		match.Status,
		match.Team1Score,
		match.Team2Score,
		match.WinnerID,
		match.IsBye,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match for tournament %d: %w", match.TournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *roundFilter)
		placeholderIndex++
	}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
		placeholderIndex++
	}
	queryBuilder.WriteString(" ORDER BY round, id")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) MarkInProgress(ctx context.Context, id int) error {
	query := `UPDATE matches SET status = $1 WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, models.MatchStatusInProgress, id, models.MatchStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark match %d in progress: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotUpdatable)
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id int, team1Score, team2Score *int, winnerID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET status = $1, team1_score = $2, team2_score = $3, winner_id = $4
		WHERE id = $5 AND status <> $1`

	result, err := executor.ExecContext(ctx, query,
		models.MatchStatusCompleted, team1Score, team2Score, winnerID, id)
	if err != nil {
		return fmt.Errorf("failed to complete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotUpdatable)
}
