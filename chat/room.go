package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

// Conn is one attached consumer of a room's live stream. Deliver must not
// block; it reports false when the consumer cannot keep up, after which the
// room drops it from the attached set. Close tears the consumer down; the
// room calls it when the room itself fails.
type Conn interface {
	Deliver(msg *models.Message) bool
	Close()
}

// Room holds the ordered message log and attached connection set for one
// match or channel. All appends for a room are serialized through its
// mutex, so every attached connection observes messages in one total order.
// Different rooms share nothing and proceed in parallel.
type Room struct {
	Key string

	mu       sync.Mutex
	log      []*models.Message
	conns    map[Conn]bool
	lastAt   time.Time
	activeAt time.Time
	terminal bool
	failed   bool

	hydrateOnce sync.Once
	hydrateErr  error
}

func newRoom(key string) *Room {
	return &Room{
		Key:      key,
		conns:    make(map[Conn]bool),
		activeAt: time.Now(),
	}
}

// Append assigns the message its identity and a non-decreasing timestamp,
// pushes it onto the log and fans it out to every attached connection in
// append order. Sends are non-blocking: a stalled consumer is dropped from
// the attached set rather than holding up the room.
func (r *Room) Append(msg *models.Message) *models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now()
	if now.Before(r.lastAt) {
		now = r.lastAt
	}
	msg.CreatedAt = now
	msg.RoomKey = r.Key

	r.log = append(r.log, msg)
	r.lastAt = now
	r.activeAt = now

	for conn := range r.conns {
		if !conn.Deliver(msg) {
			delete(r.conns, conn)
		}
	}
	return msg
}

// History returns a copy of the log, or the suffix after the message with
// id afterID. An unknown cursor yields the full log: the caller's merge is
// keyed by message identity, so over-delivery is safe and under-delivery
// is not.
func (r *Room) History(afterID string) []*models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := 0
	if afterID != "" {
		for i, msg := range r.log {
			if msg.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	out := make([]*models.Message, len(r.log)-start)
	copy(out, r.log[start:])
	return out
}

// Attach begins live delivery to conn from this point forward. It does not
// replay history; snapshots are fetched separately and reconciled by the
// client.
func (r *Room) Attach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn] = true
	r.activeAt = time.Now()
}

// Detach removes conn from the attached set. Safe to call repeatedly.
func (r *Room) Detach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn)
	r.activeAt = time.Now()
}

// ConnCount returns the number of currently attached connections.
func (r *Room) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// hydrate seeds the log from durable history exactly once. Appends racing
// the first access wait on the room mutex inside Append, so hydrated
// history always precedes live appends in the log.
func (r *Room) hydrate(load func() ([]*models.Message, error)) error {
	r.hydrateOnce.Do(func() {
		messages, err := load()
		if err != nil {
			r.hydrateErr = err
			r.Fail()
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.log = append(messages, r.log...)
		if n := len(messages); n > 0 && messages[n-1].CreatedAt.After(r.lastAt) {
			r.lastAt = messages[n-1].CreatedAt
		}
	})
	return r.hydrateErr
}

// MarkTerminal flags the room's match as resolved; the registry evicts
// terminal rooms as soon as the last connection detaches.
func (r *Room) MarkTerminal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminal = true
}

// Fail marks the log as no longer trustworthy and closes every attached
// connection. Appends to this instance after eviction would be invisible
// to a replacement room, so clients are forced to reconnect and resync
// from durable history through the after_id cursor.
func (r *Room) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
	for conn := range r.conns {
		conn.Close()
		delete(r.conns, conn)
	}
}

func (r *Room) isFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// evictable reports whether the room can be dropped from the registry:
// nobody attached, and either terminal, failed, or idle for longer than
// the grace period.
func (r *Room) evictable(idleAfter time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conns) > 0 {
		return false
	}
	if r.terminal || r.failed {
		return true
	}
	return time.Since(r.activeAt) > idleAfter
}
