package chat

import (
	"sort"
	"sync"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

// Timeline is the client-side reconciliation of a history snapshot with
// the live stream. The merge is keyed by message identity and idempotent:
// a message seen in the snapshot, or already delivered live, is discarded
// on re-arrival, and live messages are appended in arrival order.
//
// Optimistic sends are supported as provisional entries keyed by a client
// tag. A provisional entry is replaced in place when the server-confirmed
// message echoing the tag arrives.
type Timeline struct {
	mu          sync.Mutex
	entries     []*models.Message
	seen        map[string]struct{}
	provisional map[string]int
}

func NewTimeline() *Timeline {
	return &Timeline{
		seen:        make(map[string]struct{}),
		provisional: make(map[string]int),
	}
}

// ApplySnapshot adopts the snapshot wholesale as the current log and seeds
// the seen-set from it. Unconfirmed provisional entries are re-appended
// after the snapshot tail; provisional entries whose tag appears in the
// snapshot are considered confirmed and dropped.
func (t *Timeline) ApplySnapshot(snapshot []*models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	confirmed := make(map[string]struct{})
	for _, msg := range snapshot {
		if msg.ClientTag != nil {
			confirmed[*msg.ClientTag] = struct{}{}
		}
	}
	indices := make([]int, 0, len(t.provisional))
	for tag, idx := range t.provisional {
		if _, ok := confirmed[tag]; !ok {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)
	pending := make([]*models.Message, 0, len(indices))
	for _, idx := range indices {
		pending = append(pending, t.entries[idx])
	}

	t.entries = make([]*models.Message, 0, len(snapshot)+len(pending))
	t.seen = make(map[string]struct{}, len(snapshot))
	t.provisional = make(map[string]int, len(pending))

	for _, msg := range snapshot {
		if _, ok := t.seen[msg.ID]; ok {
			continue
		}
		t.entries = append(t.entries, msg)
		t.seen[msg.ID] = struct{}{}
	}
	for _, msg := range pending {
		t.provisional[*msg.ClientTag] = len(t.entries)
		t.entries = append(t.entries, msg)
	}
}

// ApplyLive merges one message from the live stream. It reports whether
// the displayed log changed; a duplicate identity is a no-op.
func (t *Timeline) ApplyLive(msg *models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[msg.ID]; ok {
		return false
	}
	if msg.ClientTag != nil {
		if idx, ok := t.provisional[*msg.ClientTag]; ok {
			// Server confirmation of an optimistic send: swap the
			// canonical message into the provisional slot.
			t.entries[idx] = msg
			t.seen[msg.ID] = struct{}{}
			delete(t.provisional, *msg.ClientTag)
			return true
		}
	}
	t.entries = append(t.entries, msg)
	t.seen[msg.ID] = struct{}{}
	return true
}

// AppendProvisional adds a locally-constructed entry under tag, displayed
// until the server-confirmed message arrives. The message should carry a
// temporary identity distinct from any server id.
func (t *Timeline) AppendProvisional(tag string, msg *models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tagCopy := tag
	msg.ClientTag = &tagCopy
	t.provisional[tag] = len(t.entries)
	t.entries = append(t.entries, msg)
}

// Messages returns the displayed log in order.
func (t *Timeline) Messages() []*models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*models.Message, len(t.entries))
	copy(out, t.entries)
	return out
}
