// Package watch streams entity progress events published during runs.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/deckhand/pkg/deck"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// Source delivers events. *deck.EventSubscription implements it.
type Source interface {
	Events() <-chan *deck.EntityEvent
	Errors() <-chan error
}

// Options narrow the stream.
type Options struct {
	Format OutputFormat
	RunID  string // prefix; empty matches every run
	Entity string // exact name; empty matches every entity
	// ExitAfter stops the stream once this many entities have finished. Zero streams until ctx ends.
	ExitAfter int
}

func (o *Options) matches(e *deck.EntityEvent) bool {
	if o.RunID != "" && !strings.HasPrefix(e.RunID, o.RunID) {
		return false
	}
	if o.Entity != "" && e.Entity != o.Entity {
		return false
	}
	return true
}

// Stream writes matching events from src to w until ctx is done or src closes.
// Decode errors on the subscription are reported inline and do not stop the stream.
func Stream(ctx context.Context, src Source, opts Options, w io.Writer) error {
	finished := 0
	events, errs := src.Events(), src.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)

		case e, ok := <-events:
			if !ok {
				return nil
			}
			if !opts.matches(e) {
				continue
			}
			if err := write(w, opts.Format, e); err != nil {
				return err
			}
			if e.Event != deck.EventEntityStarted {
				finished++
				if opts.ExitAfter > 0 && finished >= opts.ExitAfter {
					return nil
				}
			}
		}
	}
}

func write(w io.Writer, format OutputFormat, e *deck.EntityEvent) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	_, err := fmt.Fprintln(w, FormatEvent(e))
	return err
}

// FormatEvent renders one event as a single human-readable line.
func FormatEvent(e *deck.EntityEvent) string {
	ts := time.UnixMilli(e.TimestampMs).Format("15:04:05")
	run := e.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	switch e.Event {
	case deck.EventEntityStarted:
		return fmt.Sprintf("[%s] ⏳ %s started (run %s, phase %s)", ts, e.Entity, run, e.Phase)
	case deck.EventEntitySucceeded:
		return fmt.Sprintf("[%s] ✅ %s succeeded (run %s)", ts, e.Entity, run)
	case deck.EventEntityFailed:
		return fmt.Sprintf("[%s] ❌ %s failed (run %s): %s", ts, e.Entity, run, e.Error)
	}
	return fmt.Sprintf("[%s] %s %s (run %s)", ts, e.Event, e.Entity, run)
}
