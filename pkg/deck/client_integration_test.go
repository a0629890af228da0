//go:build integration

package deck

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns its URL.
func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

func TestClient_RealRedis(t *testing.T) {
	client, err := NewClientFromURL(setupRedis(t), "integration")
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx))

	t.Run("runs round trip newest first", func(t *testing.T) {
		older := newRun(1_000)
		newer := newRun(2_000)
		require.NoError(t, client.SaveRun(ctx, older))
		require.NoError(t, client.SaveRun(ctx, newer))

		runs, err := client.ListRuns(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, newer.ID, runs[0].ID)
		assert.Equal(t, FailureNotFound, runs[1].Failed[0].Kind)

		ids, err := client.ScanRuns(ctx, older.ID[:8])
		require.NoError(t, err)
		assert.Contains(t, ids, older.ID)
	})

	t.Run("missing run", func(t *testing.T) {
		_, err := client.GetRun(ctx, uuid.NewString())
		assert.True(t, IsNotFound(err))
	})

	t.Run("entity events", func(t *testing.T) {
		sub, err := client.SubscribeEntityEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		want := &EntityEvent{RunID: "r1", Entity: "Acme", Phase: PhaseAll, Event: EventEntityFailed, Error: "boom", TimestampMs: 42}
		require.NoError(t, client.PublishEntityEvent(ctx, want))

		select {
		case got := <-sub.Events():
			assert.Equal(t, want, got)
		case <-ctx.Done():
			t.Fatal("timed out waiting for entity event")
		}
	})
}
