package render

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/internal/layout"
	"github.com/dyluth/deckhand/internal/logging"
	"github.com/dyluth/deckhand/pkg/deck"
)

// DataTab is the tab holding an entity's key/value text data.
const DataTab = "data"

// Loader builds an entity's dataset from its L1 folder.
type Loader struct {
	drive  gapi.Drive
	sheets gapi.Sheets
	logger *zap.Logger
}

// NewLoader returns a Loader over the given API clients.
func NewLoader(drive gapi.Drive, sheets gapi.Sheets, logger *zap.Logger) *Loader {
	return &Loader{
		drive:  drive,
		sheets: sheets,
		logger: logging.OrNop(logger).With(zap.String("component", "dataset")),
	}
}

// Load reads the entity's L1 spreadsheet and images. Nothing is cached between calls.
func (l *Loader) Load(ctx context.Context, entity deck.Entity, dl *deck.DriveLayout) (*deck.EntityDataset, error) {
	folder, err := layout.FindChild(ctx, l.drive, dl.L1ID, gapi.MimeFolder, entity.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to find L1 folder: %w", err)
	}

	ssID, err := l.findSpreadsheet(ctx, entity.Name, folder.ID)
	if err != nil {
		return nil, err
	}
	ss, err := l.sheets.GetSpreadsheet(ctx, ssID)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	ds := deck.NewEntityDataset()
	ds.SpreadsheetID = ssID
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		title := sh.Properties.Title
		switch {
		case title == DataTab:
			rows, err := l.sheets.GetValues(ctx, ssID, gapi.TabRange(title, "A:B"))
			if err != nil {
				return nil, fmt.Errorf("failed to read tab %q: %w", title, err)
			}
			for _, row := range rows {
				if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
					continue
				}
				value := ""
				if len(row) > 1 {
					value = row[1]
				}
				ds.Text[strings.TrimSpace(row[0])] = value
			}

		case strings.HasPrefix(title, "chart-"):
			if len(sh.Charts) == 0 {
				l.logger.Warn("chart_tab_empty", zap.String("entity", entity.Name), zap.String("tab", title))
				continue
			}
			ds.Charts[title] = deck.ChartRef{
				SpreadsheetID: ssID,
				SheetID:       sh.Properties.SheetId,
				ChartID:       sh.Charts[0].ChartId,
			}

		case strings.HasPrefix(title, "table-"):
			rows, err := l.sheets.GetValues(ctx, ssID, gapi.TabRange(title, ""))
			if err != nil {
				return nil, fmt.Errorf("failed to read tab %q: %w", title, err)
			}
			ds.Tables[title] = rows
		}
	}

	images, err := l.drive.ListFiles(ctx, gapi.Query{ParentID: folder.ID, MimeTypes: gapi.ImageMimeTypes})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	for _, img := range images {
		stem := strings.TrimSuffix(img.Name, path.Ext(img.Name))
		ds.Pictures[stem] = deck.FileRef{
			ID:       img.ID,
			Name:     img.Name,
			MimeType: img.MimeType,
			Width:    img.Width,
			Height:   img.Height,
		}
	}

	l.logger.Debug("dataset_loaded",
		zap.String("entity", entity.Name),
		zap.Int("text", len(ds.Text)),
		zap.Int("charts", len(ds.Charts)),
		zap.Int("tables", len(ds.Tables)),
		zap.Int("pictures", len(ds.Pictures)))
	return ds, nil
}

func (l *Loader) findSpreadsheet(ctx context.Context, entity, folderID string) (string, error) {
	files, err := l.drive.ListFiles(ctx, gapi.Query{ParentID: folderID, MimeTypes: []string{gapi.MimeSpreadsheet}})
	if err != nil {
		return "", fmt.Errorf("failed to list L1 folder: %w", err)
	}
	if len(files) == 0 {
		return "", &deck.NotFoundError{Kind: "spreadsheet", Name: layout.SpreadsheetName(entity), Parent: folderID}
	}
	if len(files) > 1 {
		l.logger.Warn("multiple_spreadsheets", zap.String("entity", entity), zap.Int("count", len(files)))
	}
	for _, f := range files {
		if f.Name == layout.SpreadsheetName(entity) {
			return f.ID, nil
		}
	}
	return files[0].ID, nil
}
