// Package batch runs the merge and render engines over every selected entity.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/internal/logging"
	"github.com/dyluth/deckhand/internal/manifest"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Merger produces an entity's L1 artifacts.
type Merger interface {
	Merge(ctx context.Context, entity deck.Entity, l *deck.DriveLayout) (*deck.MergeOutcome, error)
}

// DatasetLoader reads an entity's dataset from L1.
type DatasetLoader interface {
	Load(ctx context.Context, entity deck.Entity, l *deck.DriveLayout) (*deck.EntityDataset, error)
}

// Renderer produces an entity's L2 deck.
type Renderer interface {
	Render(ctx context.Context, entity deck.Entity, ds *deck.EntityDataset, l *deck.DriveLayout) (*deck.RenderOutcome, error)
}

// History records runs and per-entity progress. *deck.Client implements it.
type History interface {
	SaveRun(ctx context.Context, r *deck.RunRecord) error
	PublishEntityEvent(ctx context.Context, event *deck.EntityEvent) error
}

// Options tune an Orchestrator. The zero value runs sequentially without history.
type Options struct {
	Concurrency int
	History     History
	Logger      *zap.Logger
}

// Orchestrator runs a phase across the manifest.
type Orchestrator struct {
	drive       gapi.Drive
	merger      Merger
	loader      DatasetLoader
	renderer    Renderer
	history     History
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// New returns an Orchestrator. drive is used to download the manifest.
func New(drive gapi.Drive, merger Merger, loader DatasetLoader, renderer Renderer, opts Options) *Orchestrator {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		drive:       drive,
		merger:      merger,
		loader:      loader,
		renderer:    renderer,
		history:     opts.History,
		concurrency: concurrency,
		logger:      logging.OrNop(opts.Logger).With(zap.String("component", "batch")),
		now:         time.Now,
	}
}

// Run executes phase for every selected entity and returns once all of them
// are accounted for. Entity failures are recorded in the result, never returned.
//
// The returned error is reserved for batch-fatal conditions: an invalid phase,
// an unreadable manifest, or a permission error on one of the templates.
//
// Cancelling ctx stops new entities from starting; they are recorded as failed
// with deck.ErrRunStopped. Entities already in progress run to completion.
func (o *Orchestrator) Run(ctx context.Context, phase deck.Phase, l *deck.DriveLayout) (*deck.RunResult, error) {
	if err := phase.Validate(); err != nil {
		return nil, err
	}

	entities, err := manifest.Load(ctx, o.drive, l.EntitiesFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	runID := uuid.NewString()
	started := o.now()
	log := o.logger.With(zap.String("run_id", runID), zap.String("phase", string(phase)))
	log.Info("run_started", zap.Int("entities", len(entities)), zap.Int("concurrency", o.concurrency))

	// Each slot is written by exactly one goroutine; the slice is read after Wait.
	errs := make([]error, len(entities))
	work := context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, entity := range entities {
		g.Go(func() error {
			if gctx.Err() != nil {
				errs[i] = deck.ErrRunStopped
				return nil
			}
			err := o.runEntity(work, runID, phase, entity, l)
			errs[i] = err
			if o.templateDenied(work, err, l) {
				return fmt.Errorf("entity %q: %w", entity.Name, err)
			}
			return nil
		})
	}
	fatal := g.Wait()

	result := &deck.RunResult{RunID: runID, Phase: phase, Successful: []string{}, Failed: []deck.Failure{}}
	for i, entity := range entities {
		if errs[i] == nil {
			result.Successful = append(result.Successful, entity.Name)
			continue
		}
		result.Failed = append(result.Failed, deck.NewFailure(entity.Name, errs[i]))
	}

	o.saveRun(work, result, l, started)
	log.Info("run_finished",
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("elapsed", o.now().Sub(started)))

	if fatal != nil {
		return result, fmt.Errorf("run aborted: %w", fatal)
	}
	return result, nil
}

// runEntity runs the phase's stages for one entity, stopping at the first failure.
func (o *Orchestrator) runEntity(ctx context.Context, runID string, phase deck.Phase, entity deck.Entity, l *deck.DriveLayout) error {
	log := o.logger.With(zap.String("run_id", runID), zap.String("entity", entity.Name))
	o.publish(ctx, runID, phase, entity.Name, deck.EventEntityStarted, nil)
	log.Info("entity_started")

	err := o.stages(ctx, phase, entity, l)
	if err != nil {
		log.Warn("entity_failed", zap.String("kind", string(deck.Classify(err))), zap.Error(err))
		o.publish(ctx, runID, phase, entity.Name, deck.EventEntityFailed, err)
		return err
	}
	log.Info("entity_succeeded")
	o.publish(ctx, runID, phase, entity.Name, deck.EventEntitySucceeded, nil)
	return nil
}

func (o *Orchestrator) stages(ctx context.Context, phase deck.Phase, entity deck.Entity, l *deck.DriveLayout) error {
	if phase == deck.PhaseL1 || phase == deck.PhaseAll {
		if _, err := o.merger.Merge(ctx, entity, l); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
	}
	if phase == deck.PhaseL2 || phase == deck.PhaseAll {
		ds, err := o.loader.Load(ctx, entity, l)
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		if _, err := o.renderer.Render(ctx, entity, ds, l); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	return nil
}

// templateDenied reports whether err denies access to a shared template,
// which every remaining entity would hit as well. A refused copy names the
// template even when the destination folder is at fault, so access to the
// template itself is checked again before the run is aborted.
func (o *Orchestrator) templateDenied(ctx context.Context, err error, l *deck.DriveLayout) bool {
	var perm *deck.PermissionError
	if !errors.As(err, &perm) {
		return false
	}
	if perm.Resource != l.DataTemplateID && perm.Resource != l.ReportTemplateID {
		return false
	}
	_, err = o.drive.GetFile(ctx, perm.Resource)
	return errors.As(err, &perm)
}

func (o *Orchestrator) publish(ctx context.Context, runID string, phase deck.Phase, entity string, typ deck.EntityEventType, err error) {
	if o.history == nil {
		return
	}
	event := &deck.EntityEvent{
		RunID:       runID,
		Entity:      entity,
		Phase:       phase,
		Event:       typ,
		TimestampMs: o.now().UnixMilli(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	if perr := o.history.PublishEntityEvent(ctx, event); perr != nil {
		o.logger.Warn("event_publish_failed", zap.String("entity", entity), zap.Error(perr))
	}
}

func (o *Orchestrator) saveRun(ctx context.Context, result *deck.RunResult, l *deck.DriveLayout, started time.Time) {
	if o.history == nil {
		return
	}
	record := &deck.RunRecord{
		ID:           result.RunID,
		Phase:        result.Phase,
		RootID:       l.RootID,
		StartedAtMs:  started.UnixMilli(),
		FinishedAtMs: o.now().UnixMilli(),
		Successful:   result.Successful,
		Failed:       result.Failed,
	}
	if err := o.history.SaveRun(ctx, record); err != nil {
		o.logger.Warn("run_save_failed", zap.String("run_id", record.ID), zap.Error(err))
	}
}
