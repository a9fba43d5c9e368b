package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

// DefaultIdleTimeout bounds how long an empty, non-terminal room is kept
// in memory before eviction. It also bounds the snapshot/live overlap
// window a reconnecting client has to reconcile.
const DefaultIdleTimeout = 5 * time.Minute

// HydrateFunc loads a room's durable history before the room accepts its
// first append.
type HydrateFunc func(ctx context.Context) ([]*models.Message, error)

// Registry is the process-wide map from room key to live Room. Rooms are
// created lazily on first access and evicted once empty and idle or
// terminal. A room that failed hydration, or whose log integrity was
// compromised, is discarded so the next access rehydrates from the store.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
	logger      *slog.Logger
}

func NewRegistry(idleTimeout time.Duration, logger *slog.Logger) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// GetOrCreate returns the room for key, creating and hydrating it on first
// access. Concurrent calls for the same key get the same instance; the
// check-then-create is atomic under the registry mutex and hydration runs
// once per room instance.
func (g *Registry) GetOrCreate(ctx context.Context, key string, hydrate HydrateFunc) (*Room, error) {
	g.mu.Lock()
	room, ok := g.rooms[key]
	if ok && room.isFailed() {
		delete(g.rooms, key)
		ok = false
	}
	if !ok {
		room = newRoom(key)
		g.rooms[key] = room
	}
	g.mu.Unlock()

	if err := room.hydrate(func() ([]*models.Message, error) {
		if hydrate == nil {
			return nil, nil
		}
		return hydrate(ctx)
	}); err != nil {
		g.Evict(key)
		return nil, fmt.Errorf("failed to hydrate room %s: %w", key, err)
	}
	return room, nil
}

// Get returns the live room for key, or nil if none is resident.
func (g *Registry) Get(key string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rooms[key]
}

// Evict drops the room for key regardless of state. Used when a room's
// in-memory log can no longer be trusted.
func (g *Registry) Evict(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, key)
}

// CloseIfIdle evicts the room for key if it has no attached connections
// and is terminal, failed, or idle past the grace period. Reports whether
// the room was evicted.
func (g *Registry) CloseIfIdle(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[key]
	if !ok {
		return false
	}
	if !room.evictable(g.idleTimeout) {
		return false
	}
	delete(g.rooms, key)
	return true
}

// Run sweeps the registry on the given interval until ctx is cancelled,
// evicting rooms that have gone idle. Meant to be started once from main.
func (g *Registry) Run(ctx context.Context, sweepInterval time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, key := range g.keys() {
				if g.CloseIfIdle(key) && g.logger != nil {
					g.logger.Info("evicted idle chat room", slog.String("room", key))
				}
			}
		}
	}
}

func (g *Registry) keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]string, 0, len(g.rooms))
	for key := range g.rooms {
		keys = append(keys, key)
	}
	return keys
}
