package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name is already in use")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)
	// ApplyMatchResult bumps the aggregate counters for a resolved match:
	// winner gets a win plus pointsPerWin, loser gets a loss. Called exactly
	// once per completed match, inside the completing transaction.
	ApplyMatchResult(ctx context.Context, exec SQLExecutor, winnerID int, loserID *int, pointsPerWin int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (tournament_id, name)
		VALUES ($1, $2)
		RETURNING id, wins, losses, points, created_at`

	err := r.db.QueryRowContext(ctx, query, team.TournamentID, team.Name).
		Scan(&team.ID, &team.Wins, &team.Losses, &team.Points, &team.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrTeamNameConflict
		}
		return fmt.Errorf("failed to insert team %q: %w", team.Name, err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, tournament_id, name, wins, losses, points, created_at FROM teams WHERE id = $1`

	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.TournamentID, &team.Name,
		&team.Wins, &team.Losses, &team.Points, &team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team by id %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	// Registration order is the final standings tie-breaker, so the sort
	// key must stay (created_at, id).
	query := `
		SELECT id, tournament_id, name, wins, losses, points, created_at
		FROM teams
		WHERE tournament_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team := &models.Team{}
		if err := rows.Scan(
			&team.ID, &team.TournamentID, &team.Name,
			&team.Wins, &team.Losses, &team.Points, &team.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) ApplyMatchResult(ctx context.Context, exec SQLExecutor, winnerID int, loserID *int, pointsPerWin int) error {
	executor := r.getExecutor(exec)

	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET wins = wins + 1, points = points + $1 WHERE id = $2`,
		pointsPerWin, winnerID)
	if err != nil {
		return fmt.Errorf("failed to credit win to team %d: %w", winnerID, err)
	}
	if err := checkAffectedRows(result, ErrTeamNotFound); err != nil {
		return err
	}

	if loserID == nil {
		// Bye: no opponent to debit.
		return nil
	}

	result, err = executor.ExecContext(ctx,
		`UPDATE teams SET losses = losses + 1 WHERE id = $1`, *loserID)
	if err != nil {
		return fmt.Errorf("failed to debit loss to team %d: %w", *loserID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
