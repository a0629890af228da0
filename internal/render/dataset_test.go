package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/deckhand/internal/gapi/gapitest"
	"github.com/dyluth/deckhand/pkg/deck"
)

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()
	w := gapitest.New()
	l1 := w.AddFolder("L1-Merged", "")
	folder := w.AddFolder("Acme", l1)
	w.AddSpreadsheet("old copy", folder, gapitest.Tab{Title: "data", Values: [][]string{{"brand_name", "Saab"}}})
	ss := w.AddSpreadsheet("Acme.gsheet", folder,
		gapitest.Tab{Title: "data", Values: [][]string{
			{"brand_name", "Volvo"},
			{"", "ignored"},
			{"profit_margin", "10.5%", "extra"},
			{"empty"},
		}},
		gapitest.Tab{Title: "chart-sales", Charts: []int64{42, 43}},
		gapitest.Tab{Title: "chart-empty"},
		gapitest.Tab{Title: "table-performance", Values: [][]string{{"Q", "Rev"}, {"Q1", "10"}}},
		gapitest.Tab{Title: "scratch"},
	)
	logo := w.AddImage("logo.png", folder, "image/png", 300, 100)
	w.AddImage("picture-badge.jpg", folder, "image/jpeg", 10, 10)
	w.AddFile("notes.txt", folder, "text/plain", nil)

	ds, err := NewLoader(w, w, nil).Load(ctx, deck.Entity{Name: "Acme"}, &deck.DriveLayout{L1ID: l1})
	require.NoError(t, err)

	assert.Equal(t, ss, ds.SpreadsheetID)
	assert.Equal(t, map[string]string{"brand_name": "Volvo", "profit_margin": "10.5%", "empty": ""}, ds.Text)
	assert.Equal(t, map[string]deck.ChartRef{"chart-sales": {SpreadsheetID: ss, SheetID: 1001, ChartID: 42}}, ds.Charts)
	assert.Equal(t, [][]string{{"Q", "Rev"}, {"Q1", "10"}}, ds.Tables["table-performance"])
	assert.Len(t, ds.Tables, 1)

	pic, ok := ds.Picture("logo")
	require.True(t, ok)
	assert.Equal(t, deck.FileRef{ID: logo, Name: "logo.png", MimeType: "image/png", Width: 300, Height: 100}, pic)
	_, ok = ds.Picture("badge")
	assert.True(t, ok)
	assert.Len(t, ds.Pictures, 2)
}

func TestLoader_MissingFolder(t *testing.T) {
	w := gapitest.New()
	l1 := w.AddFolder("L1-Merged", "")

	_, err := NewLoader(w, w, nil).Load(context.Background(), deck.Entity{Name: "Ghost"}, &deck.DriveLayout{L1ID: l1})
	var nf *deck.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "folder", nf.Kind)
}

func TestLoader_MissingSpreadsheet(t *testing.T) {
	w := gapitest.New()
	l1 := w.AddFolder("L1-Merged", "")
	w.AddFolder("Acme", l1)

	_, err := NewLoader(w, w, nil).Load(context.Background(), deck.Entity{Name: "Acme"}, &deck.DriveLayout{L1ID: l1})
	var nf *deck.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "spreadsheet", nf.Kind)
	assert.Equal(t, "Acme.gsheet", nf.Name)
}
