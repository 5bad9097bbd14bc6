package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/notification"
)

func seed(t *testing.T, s *notification.MemoryStorage, userID string, n int) []notification.Payload {
	t.Helper()

	out := make([]notification.Payload, 0, n)
	for i := 0; i < n; i++ {
		p, err := s.Create(context.Background(), notification.Payload{
			Type:      notification.TypeComment,
			Message:   "comment",
			UserID:    userID,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestMemoryStorage_Create(t *testing.T) {
	t.Parallel()

	t.Run("assigns id and forces unread", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		p, err := s.Create(context.Background(), notification.Payload{
			Type:    notification.TypeLike,
			Message: "X liked your post",
			UserID:  "u1",
			Read:    true, // must be ignored, new records start unread
		})
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.False(t, p.Read)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("rejects missing user", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		_, err := s.Create(context.Background(), notification.Payload{
			Type:    notification.TypeLike,
			Message: "hi",
		})
		assert.ErrorIs(t, err, notification.ErrEmptyUserID)
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		_, err := s.Create(context.Background(), notification.Payload{
			Type:    notification.TypeHistory,
			Message: "hi",
			UserID:  "u1",
		})
		assert.ErrorIs(t, err, notification.ErrInvalidEventType)
	})
}

func TestMemoryStorage_List(t *testing.T) {
	t.Parallel()

	t.Run("newest first with limit", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		created := seed(t, s, "u1", 5)

		got, err := s.List(context.Background(), "u1", notification.ListOptions{Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, created[4].ID, got[0].ID)
		assert.Equal(t, created[3].ID, got[1].ID)
	})

	t.Run("only unread filter", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		seed(t, s, "u1", 3)
		_, err := s.MarkAllRead(context.Background(), "u1")
		require.NoError(t, err)
		seed(t, s, "u1", 2)

		got, err := s.List(context.Background(), "u1", notification.ListOptions{OnlyUnread: true})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("unknown user yields empty list", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		got, err := s.List(context.Background(), "nobody", notification.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("offset beyond range", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		seed(t, s, "u1", 2)

		got, err := s.List(context.Background(), "u1", notification.ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryStorage_MarkAllRead(t *testing.T) {
	t.Parallel()

	s := notification.NewMemoryStorage()
	seed(t, s, "u1", 3)

	count, err := s.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	unread, err := s.CountUnread(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	// Second call finds nothing left to update.
	count, err = s.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryStorage_Delete(t *testing.T) {
	t.Parallel()

	t.Run("removes owned record", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		created := seed(t, s, "u1", 2)

		require.NoError(t, s.Delete(context.Background(), created[0].ID, "u1"))

		got, err := s.List(context.Background(), "u1", notification.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		err := s.Delete(context.Background(), "missing", "u1")
		assert.ErrorIs(t, err, notification.ErrNotificationNotFound)
	})

	t.Run("foreign record is denied", func(t *testing.T) {
		t.Parallel()

		s := notification.NewMemoryStorage()
		created := seed(t, s, "u1", 1)

		err := s.Delete(context.Background(), created[0].ID, "u2")
		assert.ErrorIs(t, err, notification.ErrAccessDenied)
	})
}

func TestMemoryStorage_CountUnread(t *testing.T) {
	t.Parallel()

	s := notification.NewMemoryStorage()
	seed(t, s, "u1", 4)
	seed(t, s, "u2", 1)

	count, err := s.CountUnread(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = s.CountUnread(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
