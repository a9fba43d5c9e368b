package services

import (
	"context"
	"sync"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/repositories"
)

// In-memory repository fakes mirroring the postgres guards, shared by the
// service tests in this package.

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) put(match *models.Match) *models.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	if match.ID == 0 {
		r.nextID++
		match.ID = r.nextID
	} else if match.ID > r.nextID {
		r.nextID = match.ID
	}
	stored := *match
	r.matches[match.ID] = &stored
	return match
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.put(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for id := 1; id <= r.nextID; id++ {
		match, ok := r.matches[id]
		if !ok || match.TournamentID != tournamentID {
			continue
		}
		if round != nil && match.Round != *round {
			continue
		}
		if status != nil && match.Status != *status {
			continue
		}
		copied := *match
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeMatchRepo) MarkInProgress(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok || match.Status != models.MatchStatusPending {
		return repositories.ErrMatchNotUpdatable
	}
	match.Status = models.MatchStatusInProgress
	return nil
}

func (r *fakeMatchRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, team1Score, team2Score *int, winnerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok || match.Status == models.MatchStatusCompleted {
		return repositories.ErrMatchNotUpdatable
	}
	match.Status = models.MatchStatusCompleted
	match.Team1Score = team1Score
	match.Team2Score = team2Score
	match.WinnerID = &winnerID
	return nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	nextID int
	teams  map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team)}
}

func (r *fakeTeamRepo) put(team *models.Team) *models.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	if team.ID == 0 {
		r.nextID++
		team.ID = r.nextID
	} else if team.ID > r.nextID {
		r.nextID = team.ID
	}
	stored := *team
	r.teams[team.ID] = &stored
	return team
}

func (r *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	r.put(team)
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Team
	for id := 1; id <= r.nextID; id++ {
		team, ok := r.teams[id]
		if !ok || team.TournamentID != tournamentID {
			continue
		}
		copied := *team
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeTeamRepo) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, winnerID int, loserID *int, pointsPerWin int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	winner, ok := r.teams[winnerID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	winner.Wins++
	winner.Points += pointsPerWin
	if loserID != nil {
		loser, ok := r.teams[*loserID]
		if !ok {
			return repositories.ErrTeamNotFound
		}
		loser.Losses++
	}
	return nil
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []*models.Message
	createErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	copied := *message
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) ListLatestByRoom(ctx context.Context, roomKey string, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, message := range r.messages {
		if message.RoomKey != roomKey {
			continue
		}
		copied := *message
		out = append(out, &copied)
	}
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeMessageRepo) ListByRoom(ctx context.Context, roomKey string, afterID string, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	include := afterID == ""
	for _, message := range r.messages {
		if message.RoomKey != roomKey {
			continue
		}
		if include {
			copied := *message
			out = append(out, &copied)
			if limit > 0 && len(out) >= limit {
				break
			}
		} else if message.ID == afterID {
			include = true
		}
	}
	return out, nil
}

type fakeAnnouncer struct {
	mu       sync.Mutex
	posted   map[string][]string
	terminal map[string]bool
	postErr  error
}

func newFakeAnnouncer() *fakeAnnouncer {
	return &fakeAnnouncer{
		posted:   make(map[string][]string),
		terminal: make(map[string]bool),
	}
}

func (a *fakeAnnouncer) PostSystemMessage(ctx context.Context, roomKey, body string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.postErr != nil {
		return a.postErr
	}
	a.posted[roomKey] = append(a.posted[roomKey], body)
	return nil
}

func (a *fakeAnnouncer) MarkRoomTerminal(roomKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.terminal[roomKey] = true
}

func (a *fakeAnnouncer) messagesFor(roomKey string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.posted[roomKey]...)
}

func (a *fakeAnnouncer) isTerminal(roomKey string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.terminal[roomKey]
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}
