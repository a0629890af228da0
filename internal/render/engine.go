// Package render produces an entity's L2 deck by cloning the report template
// and replacing its placeholders from the entity's dataset.
//
// Four placeholder kinds are recognised in one scan:
//
//   - text: {{key}} inside shape text or table cells, replaced in place
//   - chart: an element titled chart:key, or a shape reading {{chart-key}}
//   - table: an element titled table:key, or a table whose first cell reads {{table-key}}
//   - picture: an element titled picture:key, or a shape reading {{picture-key}}
//
// Chart, table and picture placeholders are swapped for new elements in the
// same position and stacking order.
package render

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/internal/layout"
	"github.com/dyluth/deckhand/internal/logging"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Engine renders decks. It is safe for concurrent use.
type Engine struct {
	drive  gapi.Drive
	slides gapi.Slides
	logger *zap.Logger
}

// NewEngine returns a render engine over the given API clients.
func NewEngine(drive gapi.Drive, slides gapi.Slides, logger *zap.Logger) *Engine {
	return &Engine{
		drive:  drive,
		slides: slides,
		logger: logging.OrNop(logger).With(zap.String("component", "render")),
	}
}

// Render clones the report template into L2 and fills it for entity.
//
// Every resolvable placeholder is replaced even when others are missing; in
// that case the outcome is returned together with a PlaceholderResolutionError.
func (e *Engine) Render(ctx context.Context, entity deck.Entity, ds *deck.EntityDataset, l *deck.DriveLayout) (*deck.RenderOutcome, error) {
	log := e.logger.With(zap.String("entity", entity.Name))

	name := layout.DeckName(entity.Name)
	clone, err := e.drive.CopyFile(ctx, l.ReportTemplateID, name, l.L2ID)
	if err != nil {
		return nil, fmt.Errorf("failed to clone report template: %w", err)
	}
	log.Info("deck_cloned", zap.String("presentation_id", clone.ID))

	pres, err := e.slides.GetPresentation(ctx, clone.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck: %w", err)
	}

	kept, err := e.applyFilter(ctx, clone.ID, name, pres.Slides, entity.SlideFilter)
	if err != nil {
		return nil, err
	}

	phs := scan(kept)
	p := buildPlan(entity.Name, ds, kept, phs)
	out := &deck.RenderOutcome{
		Entity:         entity.Name,
		PresentationID: clone.ID,
		SlidesKept:     len(kept),
		Replaced:       p.replaced,
	}

	if err := e.apply(ctx, clone.ID, p); err != nil {
		return nil, err
	}
	log.Info("deck_rendered",
		zap.Int("slides", out.SlidesKept),
		zap.Int("placeholders", len(phs)),
		zap.Int("requests", len(p.requests)))

	if len(p.missing) > 0 {
		err := deck.NewPlaceholderResolutionError(entity.Name, p.missing)
		log.Warn("placeholders_unresolved", zap.Strings("keys", err.Keys()))
		return out, err
	}
	return out, nil
}

// applyFilter deletes every slide outside filter in one batch and returns the rest.
// Indexes refer to the template's slide order.
func (e *Engine) applyFilter(ctx context.Context, presentationID, name string, pages []*slides.Page, filter deck.SlideFilter) ([]*slides.Page, error) {
	if filter == nil {
		return pages, nil
	}
	for _, idx := range filter.Sorted() {
		if idx > len(pages) {
			return nil, &deck.NotFoundError{Kind: "slide", Name: strconv.Itoa(idx), Parent: name}
		}
	}

	var kept []*slides.Page
	var reqs []*slides.Request
	for i, page := range pages {
		if filter.Contains(i + 1) {
			kept = append(kept, page)
			continue
		}
		reqs = append(reqs, &slides.Request{DeleteObject: &slides.DeleteObjectRequest{ObjectId: page.ObjectId}})
	}
	if err := e.slides.BatchUpdate(ctx, presentationID, reqs); err != nil {
		return nil, fmt.Errorf("failed to remove unselected slides: %w", err)
	}
	return kept, nil
}

// apply shares picture sources, runs the batch and revokes the shares again.
func (e *Engine) apply(ctx context.Context, presentationID string, p *plan) error {
	if len(p.requests) == 0 {
		return nil
	}

	var grants [][2]string
	defer func() {
		cleanup := context.WithoutCancel(ctx)
		for _, g := range grants {
			if err := e.drive.RevokePermission(cleanup, g[0], g[1]); err != nil {
				e.logger.Warn("revoke_failed", zap.String("file_id", g[0]), zap.Error(err))
			}
		}
	}()
	for _, fileID := range p.shares {
		permID, err := e.drive.ShareAnyoneReader(ctx, fileID)
		if err != nil {
			return fmt.Errorf("failed to share picture %s: %w", fileID, err)
		}
		if permID != "" {
			grants = append(grants, [2]string{fileID, permID})
		}
	}

	if err := e.slides.BatchUpdate(ctx, presentationID, p.requests); err != nil {
		return fmt.Errorf("failed to replace placeholders: %w", err)
	}
	return nil
}
