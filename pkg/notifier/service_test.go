package notifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/delivery"
	"github.com/dmitrymomot/notifyhub/pkg/notification"
	"github.com/dmitrymomot/notifyhub/pkg/notifier"
	"github.com/dmitrymomot/notifyhub/pkg/registry"
)

// MockStorage is a testify spy for the durable store adapter.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Create(ctx context.Context, p notification.Payload) (notification.Payload, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(notification.Payload), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, userID string, opts notification.ListOptions) ([]notification.Payload, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.Payload), args.Error(1)
}

func (m *MockStorage) MarkAllRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []delivery.Event
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ctx context.Context, e delivery.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *fakeConn) received() []delivery.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]delivery.Event(nil), c.events...)
}

type fixture struct {
	registry *registry.Registry
	engine   *delivery.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New()
	return &fixture{
		registry: reg,
		engine:   delivery.NewEngine(reg),
	}
}

func (f *fixture) connect(t *testing.T, userID, connID string) *fakeConn {
	t.Helper()

	conn := &fakeConn{id: connID}
	f.engine.AddConnection(conn)
	require.NoError(t, f.registry.Register(userID, connID))
	return conn
}

func TestService_CreateAndPush(t *testing.T) {
	t.Parallel()

	t.Run("persists then pushes to every device", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		c1 := f.connect(t, "U1", "c1")
		c2 := f.connect(t, "U1", "c2")

		store := notification.NewMemoryStorage()
		svc := notifier.New(store, f.engine, f.registry)

		persisted, err := svc.CreateAndPush(context.Background(), notification.Payload{
			Type:    notification.TypeLike,
			Message: "X liked your post",
			UserID:  "U1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, persisted.ID)

		e1 := c1.received()
		e2 := c2.received()
		require.Len(t, e1, 1)
		require.Len(t, e2, 1)
		assert.Equal(t, e1[0], e2[0])
		assert.Equal(t, delivery.EventNotification, e1[0].Name)
		assert.NotEmpty(t, e1[0].Timestamp)

		// The pushed payload carries the durable record identifier.
		pushed, ok := e1[0].Payload.(notification.Payload)
		require.True(t, ok)
		assert.Equal(t, persisted.ID, pushed.ID)
	})

	t.Run("no push when store write fails", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		conn := f.connect(t, "U1", "c1")

		storeErr := errors.New("db down")
		store := new(MockStorage)
		store.On("Create", mock.Anything, mock.Anything).Return(notification.Payload{}, storeErr)

		svc := notifier.New(store, f.engine, f.registry)
		_, err := svc.CreateAndPush(context.Background(), notification.Payload{
			Type:    notification.TypeComment,
			Message: "new comment",
			UserID:  "U1",
		})

		// The store error propagates unchanged so the producer can decide
		// whether its own business action should fail.
		assert.ErrorIs(t, err, storeErr)
		assert.Empty(t, conn.received())
	})

	t.Run("offline user keeps the durable record", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		store := notification.NewMemoryStorage()
		svc := notifier.New(store, f.engine, f.registry)

		persisted, err := svc.CreateAndPush(context.Background(), notification.Payload{
			Type:    notification.TypeFollow,
			Message: "U3 followed you",
			UserID:  "U2",
		})
		require.NoError(t, err)
		assert.False(t, persisted.Read)

		history, err := svc.History(context.Background(), "U2", 20)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, persisted.ID, history[0].ID)
	})

	t.Run("blank target user is a validation error", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		store := new(MockStorage)
		svc := notifier.New(store, f.engine, f.registry)

		_, err := svc.CreateAndPush(context.Background(), notification.Payload{
			Type:    notification.TypeLike,
			Message: "hi",
			UserID:  "   ",
		})
		assert.ErrorIs(t, err, notification.ErrEmptyUserID)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_CreateAndPushToUsers(t *testing.T) {
	t.Parallel()

	t.Run("partial persistence failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		c1 := f.connect(t, "u1", "c1")
		c2 := f.connect(t, "u2", "c2")
		c3 := f.connect(t, "u3", "c3")

		storeErr := errors.New("constraint violation")
		store := new(MockStorage)
		store.On("Create", mock.Anything, mock.MatchedBy(func(p notification.Payload) bool {
			return p.UserID == "u2"
		})).Return(notification.Payload{}, storeErr)
		store.On("Create", mock.Anything, mock.MatchedBy(func(p notification.Payload) bool {
			return p.UserID == "u1"
		})).Return(notification.Payload{ID: "n1", Type: notification.TypeMention, Message: "hi", UserID: "u1"}, nil)
		store.On("Create", mock.Anything, mock.MatchedBy(func(p notification.Payload) bool {
			return p.UserID == "u3"
		})).Return(notification.Payload{ID: "n3", Type: notification.TypeMention, Message: "hi", UserID: "u3"}, nil)

		svc := notifier.New(store, f.engine, f.registry)
		created, err := svc.CreateAndPushToUsers(context.Background(), []string{"u1", "u2", "u3"}, notification.Payload{
			Type:    notification.TypeMention,
			Message: "hi",
		})

		assert.ErrorIs(t, err, storeErr)
		assert.Len(t, created, 2)

		// Push fans out to exactly the users whose record was persisted.
		assert.Len(t, c1.received(), 1)
		assert.Empty(t, c2.received())
		assert.Len(t, c3.received(), 1)
	})

	t.Run("empty target list", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		store := new(MockStorage)
		svc := notifier.New(store, f.engine, f.registry)

		created, err := svc.CreateAndPushToUsers(context.Background(), nil, notification.Payload{
			Type:    notification.TypeMention,
			Message: "hi",
		})
		require.NoError(t, err)
		assert.Empty(t, created)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_BroadcastAndPersist(t *testing.T) {
	t.Parallel()

	t.Run("targets the connected snapshot only", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		a := f.connect(t, "A", "ca")
		b := f.connect(t, "B", "cb")
		// C has no live session and must get neither a push nor a record.

		store := notification.NewMemoryStorage()
		svc := notifier.New(store, f.engine, f.registry)

		created, err := svc.BroadcastAndPersist(context.Background(), notification.Payload{
			Type:    notification.TypeCustom,
			Message: "maintenance at noon",
		})
		require.NoError(t, err)
		assert.Len(t, created, 2)

		assert.Len(t, a.received(), 1)
		assert.Len(t, b.received(), 1)

		forC, err := store.List(context.Background(), "C", notification.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, forC)

		forA, err := store.List(context.Background(), "A", notification.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, forA, 1)
	})

	t.Run("no connected users", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		store := new(MockStorage)
		svc := notifier.New(store, f.engine, f.registry)

		created, err := svc.BroadcastAndPersist(context.Background(), notification.Payload{
			Type:    notification.TypeCustom,
			Message: "anyone there?",
		})
		require.NoError(t, err)
		assert.Empty(t, created)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_ReadSideSync(t *testing.T) {
	t.Parallel()

	t.Run("mark all read notifies live devices", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		conn := f.connect(t, "U1", "c1")

		store := new(MockStorage)
		store.On("MarkAllRead", mock.Anything, "U1").Return(3, nil)

		svc := notifier.New(store, f.engine, f.registry)
		count, err := svc.MarkAllRead(context.Background(), "U1")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		events := conn.received()
		require.Len(t, events, 1)
		pushed, ok := events[0].Payload.(notification.Payload)
		require.True(t, ok)
		assert.Equal(t, notification.TypeRead, pushed.Type)
		assert.Equal(t, 3, pushed.Data["count"])
	})

	t.Run("no sync push for offline user", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		store := new(MockStorage)
		store.On("MarkAllRead", mock.Anything, "U1").Return(2, nil)

		svc := notifier.New(store, f.engine, f.registry)
		count, err := svc.MarkAllRead(context.Background(), "U1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("store error propagates without push", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		conn := f.connect(t, "U1", "c1")

		storeErr := errors.New("db down")
		store := new(MockStorage)
		store.On("MarkAllRead", mock.Anything, "U1").Return(0, storeErr)

		svc := notifier.New(store, f.engine, f.registry)
		_, err := svc.MarkAllRead(context.Background(), "U1")
		assert.ErrorIs(t, err, storeErr)
		assert.Empty(t, conn.received())
	})

	t.Run("delete notifies live devices", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		conn := f.connect(t, "U1", "c1")

		store := new(MockStorage)
		store.On("Delete", mock.Anything, "n1", "U1").Return(nil)

		svc := notifier.New(store, f.engine, f.registry)
		require.NoError(t, svc.Delete(context.Background(), "n1", "U1"))

		events := conn.received()
		require.Len(t, events, 1)
		pushed := events[0].Payload.(notification.Payload)
		assert.Equal(t, notification.TypeDeleted, pushed.Type)
		assert.Equal(t, "n1", pushed.Data["notification_id"])
	})

	t.Run("unread count notifies live devices", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		conn := f.connect(t, "U1", "c1")

		store := new(MockStorage)
		store.On("CountUnread", mock.Anything, "U1").Return(7, nil)

		svc := notifier.New(store, f.engine, f.registry)
		count, err := svc.UnreadCount(context.Background(), "U1")
		require.NoError(t, err)
		assert.Equal(t, 7, count)

		events := conn.received()
		require.Len(t, events, 1)
		pushed := events[0].Payload.(notification.Payload)
		assert.Equal(t, notification.TypeUnreadCount, pushed.Type)
		assert.Equal(t, 7, pushed.Data["unread_count"])
	})

	t.Run("history pushes control event to live devices", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		conn := f.connect(t, "U1", "c1")

		records := []notification.Payload{
			{ID: "n1", Type: notification.TypeLike, Message: "hi", UserID: "U1", CreatedAt: time.Now()},
		}
		store := new(MockStorage)
		store.On("List", mock.Anything, "U1", notification.ListOptions{Limit: 20}).Return(records, nil)

		svc := notifier.New(store, f.engine, f.registry)
		got, err := svc.History(context.Background(), "U1", 20)
		require.NoError(t, err)
		assert.Equal(t, records, got)

		events := conn.received()
		require.Len(t, events, 1)
		pushed := events[0].Payload.(notification.Payload)
		assert.Equal(t, notification.TypeHistory, pushed.Type)
		assert.Equal(t, 1, pushed.Data["count"])
	})
}

type fakeSideChannel struct {
	err      error
	mu       sync.Mutex
	received []notification.Payload
}

func (f *fakeSideChannel) Deliver(ctx context.Context, p notification.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, p)
	return f.err
}

func TestService_SideChannel(t *testing.T) {
	t.Parallel()

	t.Run("receives persisted payload", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		side := &fakeSideChannel{}
		store := notification.NewMemoryStorage()
		svc := notifier.New(store, f.engine, f.registry, notifier.WithSideChannel(side))

		persisted, err := svc.CreateAndPush(context.Background(), notification.Payload{
			Type:    notification.TypeFollow,
			Message: "U3 followed you",
			UserID:  "U2",
		})
		require.NoError(t, err)

		require.Len(t, side.received, 1)
		assert.Equal(t, persisted.ID, side.received[0].ID)
	})

	t.Run("failure never propagates", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		side := &fakeSideChannel{err: errors.New("smtp down")}
		store := notification.NewMemoryStorage()
		svc := notifier.New(store, f.engine, f.registry, notifier.WithSideChannel(side))

		_, err := svc.CreateAndPush(context.Background(), notification.Payload{
			Type:    notification.TypeFollow,
			Message: "U3 followed you",
			UserID:  "U2",
		})
		assert.NoError(t, err)
	})
}

func TestService_Introspection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.connect(t, "U1", "c1")
	f.connect(t, "U1", "c2")
	f.connect(t, "U2", "c3")

	svc := notifier.New(notification.NewMemoryStorage(), f.engine, f.registry)

	assert.Equal(t, 2, svc.ConnectedUserCount())
	assert.True(t, svc.IsUserConnected("U1"))
	assert.False(t, svc.IsUserConnected("U9"))
	assert.ElementsMatch(t, []string{"c1", "c2"}, svc.Connections("U1"))
}
