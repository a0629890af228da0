package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/deckhand/pkg/deck"
)

type chanSource struct {
	events chan *deck.EntityEvent
	errs   chan error
}

func (c *chanSource) Events() <-chan *deck.EntityEvent { return c.events }
func (c *chanSource) Errors() <-chan error             { return c.errs }

func newSource(events ...*deck.EntityEvent) *chanSource {
	src := &chanSource{events: make(chan *deck.EntityEvent, len(events)), errs: make(chan error, 1)}
	for _, e := range events {
		src.events <- e
	}
	close(src.events)
	return src
}

func event(run, entity string, typ deck.EntityEventType) *deck.EntityEvent {
	return &deck.EntityEvent{RunID: run, Entity: entity, Phase: deck.PhaseAll, Event: typ, TimestampMs: 1}
}

func TestFormatEvent(t *testing.T) {
	failed := event("0123456789abcdef", "Beta", deck.EventEntityFailed)
	failed.Error = "merge: tab not found"

	assert.Contains(t, FormatEvent(event("0123456789", "Acme", deck.EventEntityStarted)), "⏳ Acme started (run 01234567, phase all)")
	assert.Contains(t, FormatEvent(event("r1", "Acme", deck.EventEntitySucceeded)), "✅ Acme succeeded (run r1)")
	assert.Contains(t, FormatEvent(failed), "❌ Beta failed (run 01234567): merge: tab not found")
}

func TestStream_Filters(t *testing.T) {
	src := newSource(
		event("run-a", "Acme", deck.EventEntityStarted),
		event("run-b", "Acme", deck.EventEntityStarted),
		event("run-a", "Beta", deck.EventEntityStarted),
		event("run-a", "Acme", deck.EventEntitySucceeded),
	)

	var buf bytes.Buffer
	require.NoError(t, Stream(context.Background(), src, Options{RunID: "run-a", Entity: "Acme"}, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Acme started")
	assert.Contains(t, lines[1], "Acme succeeded")
}

func TestStream_JSON(t *testing.T) {
	src := newSource(event("run-a", "Acme", deck.EventEntitySucceeded))
	var buf bytes.Buffer
	require.NoError(t, Stream(context.Background(), src, Options{Format: OutputFormatJSON}, &buf))

	var got deck.EntityEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, deck.EventEntitySucceeded, got.Event)
}

func TestStream_ExitAfter(t *testing.T) {
	src := &chanSource{events: make(chan *deck.EntityEvent, 4), errs: make(chan error)}
	src.events <- event("r", "Acme", deck.EventEntityStarted)
	src.events <- event("r", "Acme", deck.EventEntityFailed)
	src.events <- event("r", "Beta", deck.EventEntitySucceeded)

	var buf bytes.Buffer
	require.NoError(t, Stream(context.Background(), src, Options{ExitAfter: 2}, &buf))
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestStream_ReportsDecodeErrors(t *testing.T) {
	src := &chanSource{events: make(chan *deck.EntityEvent), errs: make(chan error, 1)}
	src.errs <- errors.New("failed to unmarshal entity event")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	require.NoError(t, Stream(ctx, src, Options{}, &buf))
	assert.Contains(t, buf.String(), "⚠️  failed to unmarshal entity event")
}

func TestStream_FromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := deck.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.SubscribeEntityEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, client.PublishEntityEvent(ctx, event("run-a", "Acme", deck.EventEntityStarted)))
	require.NoError(t, client.PublishEntityEvent(ctx, event("run-a", "Acme", deck.EventEntitySucceeded)))

	var buf bytes.Buffer
	require.NoError(t, Stream(ctx, sub, Options{ExitAfter: 1}, &buf))
	assert.Contains(t, buf.String(), "Acme started")
	assert.Contains(t, buf.String(), "Acme succeeded")
}
