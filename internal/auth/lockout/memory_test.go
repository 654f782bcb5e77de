package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("locks at threshold", func(t *testing.T) {
		tracker := NewMemoryTracker(3, time.Minute)

		for i := 0; i < 2; i++ {
			_, err := tracker.RecordFailure(ctx, "admin")
			require.NoError(t, err)
		}
		locked, err := tracker.Locked(ctx, "admin")
		require.NoError(t, err)
		assert.False(t, locked)

		_, err = tracker.RecordFailure(ctx, "admin")
		require.NoError(t, err)
		locked, err = tracker.Locked(ctx, "admin")
		require.NoError(t, err)
		assert.True(t, locked)
	})

	t.Run("clear resets", func(t *testing.T) {
		tracker := NewMemoryTracker(1, time.Minute)
		_, err := tracker.RecordFailure(ctx, "admin")
		require.NoError(t, err)
		require.NoError(t, tracker.Clear(ctx, "admin"))

		locked, err := tracker.Locked(ctx, "admin")
		require.NoError(t, err)
		assert.False(t, locked)
	})

	t.Run("window expiry heals", func(t *testing.T) {
		tracker := NewMemoryTracker(1, time.Minute)
		current := time.Now()
		tracker.now = func() time.Time { return current }

		_, err := tracker.RecordFailure(ctx, "admin")
		require.NoError(t, err)
		locked, err := tracker.Locked(ctx, "admin")
		require.NoError(t, err)
		require.True(t, locked)

		current = current.Add(2 * time.Minute)
		locked, err = tracker.Locked(ctx, "admin")
		require.NoError(t, err)
		assert.False(t, locked)
	})

	t.Run("accounts are independent", func(t *testing.T) {
		tracker := NewMemoryTracker(1, time.Minute)
		_, err := tracker.RecordFailure(ctx, "admin")
		require.NoError(t, err)

		locked, err := tracker.Locked(ctx, "editor")
		require.NoError(t, err)
		assert.False(t, locked)
	})
}
