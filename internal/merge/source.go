package merge

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strings"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Sheet is one block of rows destined for the L1 tab of the same name.
type Sheet struct {
	Tab    string
	Source string
	Rows   [][]string
}

// sourceKind reports how an L0 file is ingested: "csv", "xlsx", "image" or "".
func sourceKind(f gapi.File) string {
	ext := strings.ToLower(path.Ext(f.Name))
	switch {
	case f.MimeType == gapi.MimeCSV || ext == ".csv":
		return "csv"
	case f.MimeType == gapi.MimeXLSX || ext == ".xlsx":
		return "xlsx"
	case gapi.IsImage(f.MimeType):
		return "image"
	}
	return ""
}

// TabName strips the extension from an L0 filename.
func TabName(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// ParseCSV decodes CSV content. Rows may be ragged.
func ParseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// readSources downloads every CSV and workbook and returns their sheets in listing order.
func (e *Engine) readSources(ctx context.Context, entity string, files []gapi.File) ([]Sheet, error) {
	var sheets []Sheet
	seen := map[string]string{}
	add := func(s Sheet) error {
		if prev, ok := seen[s.Tab]; ok {
			return &deck.ValidationError{
				Entity: entity,
				Field:  "tab",
				Value:  s.Tab,
				Reason: fmt.Sprintf("written by both %s and %s", prev, s.Source),
			}
		}
		seen[s.Tab] = s.Source
		sheets = append(sheets, s)
		return nil
	}

	for _, f := range files {
		kind := sourceKind(f)
		if kind != "csv" && kind != "xlsx" {
			continue
		}
		data, err := e.drive.Download(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", f.Name, err)
		}

		if kind == "csv" {
			rows, err := ParseCSV(data)
			if err != nil {
				return nil, &deck.ValidationError{Entity: entity, Field: "csv", Value: f.Name, Reason: err.Error()}
			}
			if err := add(Sheet{Tab: TabName(f.Name), Source: f.Name, Rows: rows}); err != nil {
				return nil, err
			}
			continue
		}

		book, err := ReadWorkbook(data, f.Name)
		if err != nil {
			return nil, &deck.ValidationError{Entity: entity, Field: "workbook", Value: f.Name, Reason: err.Error()}
		}
		for _, s := range book {
			if err := add(s); err != nil {
				return nil, err
			}
		}
	}
	return sheets, nil
}
