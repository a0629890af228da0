package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("unlimited never blocks", func(t *testing.T) {
		b := Unlimited("drive")
		start := time.Now()
		for i := 0; i < 100; i++ {
			require.NoError(t, b.Acquire(ctx, Read))
			require.NoError(t, b.Acquire(ctx, Write))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("spaces calls at the configured rate", func(t *testing.T) {
		// 1200/min = one token every 50ms
		b := New("slides", 1200, 0)
		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, b.Acquire(ctx, Read))
		}
		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})

	t.Run("reads and writes are independent", func(t *testing.T) {
		b := New("sheets", 1, 0)
		require.NoError(t, b.Acquire(ctx, Read))
		for i := 0; i < 10; i++ {
			require.NoError(t, b.Acquire(ctx, Write))
		}
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		b := New("sheets", 1, 1)
		require.NoError(t, b.Acquire(ctx, Write))

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := b.Acquire(cctx, Write)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sheets write rate limit")
	})
}
