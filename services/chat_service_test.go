package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/raheem101000-netizen/TournamentAutomation-sub001/chat"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConn struct {
	mu       sync.Mutex
	received []*models.Message
	closed   bool
}

func (c *captureConn) Deliver(msg *models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.received = append(c.received, msg)
	return true
}

func (c *captureConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *captureConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *captureConn) messages() []*models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.Message(nil), c.received...)
}

type chatFixture struct {
	service     ChatService
	registry    *chat.Registry
	messageRepo *fakeMessageRepo
	matchRepo   *fakeMatchRepo
	roomKey     string
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	matchRepo := newFakeMatchRepo()
	match := matchRepo.put(&models.Match{
		TournamentID: 1, Round: 1,
		Team1ID: intPtr(1), Team2ID: intPtr(2),
		Status: models.MatchStatusPending,
	})
	messageRepo := newFakeMessageRepo()
	registry := chat.NewRegistry(time.Minute, nil)
	service := NewChatService(registry, messageRepo, matchRepo, nil, slog.Default())
	return &chatFixture{
		service:     service,
		registry:    registry,
		messageRepo: messageRepo,
		matchRepo:   matchRepo,
		roomKey:     match.RoomKey(),
	}
}

func TestPostMessageAppendsPersistsAndFansOut(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	room, err := f.service.Room(ctx, f.roomKey)
	require.NoError(t, err)
	conn := &captureConn{}
	room.Attach(conn)

	userID := 42
	stored, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{
		UserID: &userID,
		Body:   "good game",
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)
	assert.Equal(t, f.roomKey, stored.RoomKey)
	assert.False(t, stored.IsSystem)

	delivered := conn.messages()
	require.Len(t, delivered, 1)
	assert.Equal(t, stored.ID, delivered[0].ID)

	persisted, err := f.messageRepo.ListByRoom(ctx, f.roomKey, "", 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, stored.ID, persisted[0].ID)
}

func TestPostMessageRejectsEmptyBodyWithoutImage(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.service.PostMessage(context.Background(), f.roomKey, PostMessageInput{Body: "   "})
	assert.ErrorIs(t, err, ErrMessageEmpty)
}

func TestPostMessageAllowsImageOnly(t *testing.T) {
	f := newChatFixture(t)
	imageKey := "rooms/match_1/proof.png"

	stored, err := f.service.PostMessage(context.Background(), f.roomKey, PostMessageInput{
		ImageKey: &imageKey,
	})
	require.NoError(t, err)
	require.NotNil(t, stored.ImageKey)
	assert.Equal(t, imageKey, *stored.ImageKey)
}

func TestPostMessageStoresUnresolvedReplyVerbatim(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	ghost := "no-such-message"
	stored, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{
		Body:      "replying into the void",
		ReplyToID: &ghost,
	})
	require.NoError(t, err)

	history, err := f.service.History(ctx, f.roomKey, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].ReplyToID)
	assert.Equal(t, ghost, *history[0].ReplyToID)
	assert.Equal(t, stored.ID, history[0].ID)
}

func TestRoomRejectsMalformedAndUnknownKeys(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.Room(ctx, "match_abc")
	assert.ErrorIs(t, err, ErrRoomKeyInvalid)

	_, err = f.service.Room(ctx, "definitely wrong")
	assert.ErrorIs(t, err, ErrRoomKeyInvalid)

	_, err = f.service.Room(ctx, "match_999")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.service.Room(ctx, "channel_general")
	assert.NoError(t, err)
}

func TestRoomHydratesFromDurableStore(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// Messages persisted by a previous process lifetime.
	require.NoError(t, f.messageRepo.Create(ctx, &models.Message{
		ID: "old-1", RoomKey: f.roomKey, Body: "from before", CreatedAt: time.Now().Add(-time.Hour),
	}))

	history, err := f.service.History(ctx, f.roomKey, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "old-1", history[0].ID)
}

func TestHistoryCursorReturnsSuffix(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	first, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "one"})
	require.NoError(t, err)
	second, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "two"})
	require.NoError(t, err)

	suffix, err := f.service.History(ctx, f.roomKey, first.ID, 0)
	require.NoError(t, err)
	require.Len(t, suffix, 1)
	assert.Equal(t, second.ID, suffix[0].ID)
}

func TestPersistFailureEvictsRoomForRehydration(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "kept"})
	require.NoError(t, err)

	f.messageRepo.mu.Lock()
	f.messageRepo.createErr = errors.New("store down")
	f.messageRepo.mu.Unlock()

	_, err = f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "lost"})
	require.Error(t, err)

	// The poisoned in-memory room is gone; the next access rehydrates from
	// the durable store, which only has the first message.
	assert.Nil(t, f.registry.Get(f.roomKey))

	f.messageRepo.mu.Lock()
	f.messageRepo.createErr = nil
	f.messageRepo.mu.Unlock()

	history, err := f.service.History(ctx, f.roomKey, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "kept", history[0].Body)
}

func TestHistoryLimitKeepsNewestMessages(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "one"})
	require.NoError(t, err)
	second, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "two"})
	require.NoError(t, err)
	third, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "three"})
	require.NoError(t, err)

	latest, err := f.service.History(ctx, f.roomKey, "", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, second.ID, latest[0].ID)
	assert.Equal(t, third.ID, latest[1].ID)
}

func TestHydrationKeepsNewestMessages(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// More durable history than the hydration window holds.
	total := hydrateLimit + 10
	base := time.Now().Add(-time.Hour)
	for i := 0; i < total; i++ {
		require.NoError(t, f.messageRepo.Create(ctx, &models.Message{
			ID:        fmt.Sprintf("m%04d", i),
			RoomKey:   f.roomKey,
			Body:      fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := f.service.History(ctx, f.roomKey, "", 0)
	require.NoError(t, err)
	require.Len(t, history, hydrateLimit)

	// The window is the tail of the log: the newest message is present and
	// only the oldest ones have scrolled out.
	assert.Equal(t, fmt.Sprintf("m%04d", total-1), history[len(history)-1].ID)
	assert.Equal(t, fmt.Sprintf("m%04d", total-hydrateLimit), history[0].ID)
}

func TestPersistFailureClosesAttachedConnections(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	room, err := f.service.Room(ctx, f.roomKey)
	require.NoError(t, err)
	stale := &captureConn{}
	room.Attach(stale)

	_, err = f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "delivered"})
	require.NoError(t, err)

	f.messageRepo.mu.Lock()
	f.messageRepo.createErr = errors.New("store down")
	f.messageRepo.mu.Unlock()

	_, err = f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "poisoned"})
	require.Error(t, err)

	// The failed room must not keep connections attached: they would miss
	// every append that lands on the replacement room. Closing them forces
	// a reconnect and a cursor resync.
	assert.True(t, stale.isClosed())

	f.messageRepo.mu.Lock()
	f.messageRepo.createErr = nil
	f.messageRepo.mu.Unlock()

	fresh, err := f.service.Room(ctx, f.roomKey)
	require.NoError(t, err)
	reconnected := &captureConn{}
	fresh.Attach(reconnected)

	_, err = f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "after eviction"})
	require.NoError(t, err)

	delivered := reconnected.messages()
	require.Len(t, delivered, 1)
	assert.Equal(t, "after eviction", delivered[0].Body)
	for _, msg := range stale.messages() {
		assert.NotEqual(t, "after eviction", msg.Body)
	}
}

func TestPostSystemMessageHasNoAuthor(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	room, err := f.service.Room(ctx, f.roomKey)
	require.NoError(t, err)
	conn := &captureConn{}
	room.Attach(conn)

	require.NoError(t, f.service.PostSystemMessage(ctx, f.roomKey, "Match started"))

	delivered := conn.messages()
	require.Len(t, delivered, 1)
	assert.True(t, delivered[0].IsSystem)
	assert.Nil(t, delivered[0].UserID)
	assert.Nil(t, delivered[0].TeamID)
	assert.Equal(t, "Match started", delivered[0].Body)
}

func TestMarkRoomTerminalEnablesEviction(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.Room(ctx, f.roomKey)
	require.NoError(t, err)

	f.service.MarkRoomTerminal(f.roomKey)
	assert.True(t, f.registry.CloseIfIdle(f.roomKey))
}

func TestSystemAndAuthoredMessagesShareOneOrderedLog(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "glhf"})
	require.NoError(t, err)
	require.NoError(t, f.service.PostSystemMessage(ctx, f.roomKey, "Match started"))
	_, err = f.service.PostMessage(ctx, f.roomKey, PostMessageInput{Body: "you too"})
	require.NoError(t, err)

	history, err := f.service.History(ctx, f.roomKey, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "glhf", history[0].Body)
	assert.True(t, history[1].IsSystem)
	assert.Equal(t, "you too", history[2].Body)
}
