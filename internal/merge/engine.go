// Package merge builds an entity's L1 spreadsheet from its L0 raw files.
package merge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/internal/layout"
	"github.com/dyluth/deckhand/internal/logging"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Engine runs the L1 merge for one entity at a time. It is safe for concurrent use.
type Engine struct {
	drive  gapi.Drive
	sheets gapi.Sheets
	logger *zap.Logger
}

// NewEngine returns a merge engine over the given API clients.
func NewEngine(drive gapi.Drive, sheets gapi.Sheets, logger *zap.Logger) *Engine {
	return &Engine{
		drive:  drive,
		sheets: sheets,
		logger: logging.OrNop(logger).With(zap.String("component", "merge")),
	}
}

// Merge clones the data template into <L1>/<entity>, writes every CSV or
// workbook sheet from <L0>/<entity> into the tab of the same name and copies
// the entity's images alongside it.
//
// A source whose tab is missing from the template fails the entity with a
// NotFoundError before any values are written. Artifacts already created stay.
func (e *Engine) Merge(ctx context.Context, entity deck.Entity, l *deck.DriveLayout) (*deck.MergeOutcome, error) {
	log := e.logger.With(zap.String("entity", entity.Name))

	src, err := layout.FindChild(ctx, e.drive, l.L0ID, gapi.MimeFolder, entity.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to find L0 folder: %w", err)
	}
	files, err := e.drive.ListFiles(ctx, gapi.Query{ParentID: src.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list L0 folder: %w", err)
	}
	sources, err := e.readSources(ctx, entity.Name, files)
	if err != nil {
		return nil, err
	}

	folderID, err := layout.FindOrCreateFolder(ctx, e.drive, l.L1ID, entity.Name)
	if err != nil {
		return nil, err
	}
	out := &deck.MergeOutcome{Entity: entity.Name, FolderID: folderID}

	ssID, err := e.cloneTemplate(ctx, entity.Name, l.DataTemplateID, folderID)
	if err != nil {
		return nil, err
	}
	out.SpreadsheetID = ssID
	log.Info("spreadsheet_cloned", zap.String("spreadsheet_id", ssID))

	if err := e.checkTabs(ctx, entity.Name, ssID, sources); err != nil {
		return nil, err
	}
	for _, s := range sources {
		if err := e.writeTab(ctx, ssID, s); err != nil {
			return nil, err
		}
		out.Tabs = append(out.Tabs, s.Tab)
		log.Debug("tab_written", zap.String("tab", s.Tab), zap.Int("rows", len(s.Rows)))
	}

	for _, f := range files {
		if sourceKind(f) != "image" {
			continue
		}
		if err := e.copyImage(ctx, f, folderID); err != nil {
			return nil, err
		}
		out.Images = append(out.Images, f.Name)
	}

	log.Info("entity_merged", zap.Int("tabs", len(out.Tabs)), zap.Int("images", len(out.Images)))
	return out, nil
}

// cloneTemplate replaces any earlier spreadsheet of the same name with a fresh copy.
func (e *Engine) cloneTemplate(ctx context.Context, entity, templateID, folderID string) (string, error) {
	name := layout.SpreadsheetName(entity)
	if err := e.deleteNamed(ctx, folderID, name, gapi.MimeSpreadsheet); err != nil {
		return "", err
	}
	f, err := e.drive.CopyFile(ctx, templateID, name, folderID)
	if err != nil {
		return "", fmt.Errorf("failed to clone data template: %w", err)
	}
	return f.ID, nil
}

func (e *Engine) checkTabs(ctx context.Context, entity, spreadsheetID string, sources []Sheet) error {
	if len(sources) == 0 {
		return nil
	}
	ss, err := e.sheets.GetSpreadsheet(ctx, spreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	tabs := map[string]bool{}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			tabs[sh.Properties.Title] = true
		}
	}
	for _, s := range sources {
		if !tabs[s.Tab] {
			return &deck.NotFoundError{Kind: "tab", Name: s.Tab, Parent: layout.SpreadsheetName(entity)}
		}
	}
	return nil
}

func (e *Engine) writeTab(ctx context.Context, spreadsheetID string, s Sheet) error {
	if err := e.sheets.ClearValues(ctx, spreadsheetID, gapi.TabRange(s.Tab, "")); err != nil {
		return fmt.Errorf("failed to clear tab %q: %w", s.Tab, err)
	}
	if len(s.Rows) == 0 {
		return nil
	}
	if err := e.sheets.UpdateValues(ctx, spreadsheetID, gapi.TabRange(s.Tab, "A1"), CoerceRows(s.Rows)); err != nil {
		return fmt.Errorf("failed to write tab %q: %w", s.Tab, err)
	}
	return nil
}

func (e *Engine) copyImage(ctx context.Context, f gapi.File, folderID string) error {
	if err := e.deleteNamed(ctx, folderID, f.Name, ""); err != nil {
		return err
	}
	if _, err := e.drive.CopyFile(ctx, f.ID, f.Name, folderID); err != nil {
		return fmt.Errorf("failed to copy image %s: %w", f.Name, err)
	}
	return nil
}

func (e *Engine) deleteNamed(ctx context.Context, folderID, name, mimeType string) error {
	q := gapi.Query{ParentID: folderID, Name: name}
	if mimeType != "" {
		q.MimeTypes = []string{mimeType}
	}
	existing, err := e.drive.ListFiles(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to look up %q: %w", name, err)
	}
	for _, f := range existing {
		if err := e.drive.DeleteFile(ctx, f.ID); err != nil {
			return fmt.Errorf("failed to replace %q: %w", name, err)
		}
		e.logger.Debug("file_replaced", zap.String("name", name), zap.String("file_id", f.ID))
	}
	return nil
}
