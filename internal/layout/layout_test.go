package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/internal/gapi/gapitest"
	"github.com/dyluth/deckhand/pkg/deck"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "raw id", input: "1AbC_d-9", want: "1AbC_d-9"},
		{name: "folder url", input: "https://drive.google.com/drive/folders/1AbC_d-9?usp=sharing", want: "1AbC_d-9"},
		{name: "open url", input: "https://drive.google.com/open?id=xyz123", want: "xyz123"},
		{name: "second query param", input: "https://drive.google.com/uc?export=download&id=xyz123", want: "xyz123"},
		{name: "garbage", input: "https://example.com/nothing here", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractID(tt.input)
			if tt.wantErr {
				var verr *deck.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_CreatesMissingFolders(t *testing.T) {
	ctx := context.Background()
	w := gapitest.New()
	root := w.AddFolder("reports", "")
	l0 := w.AddFolder(FolderL0, root)
	tpl := w.AddFolder(FolderTemplates, root)
	data := w.AddSpreadsheet("data-template", tpl, gapitest.Tab{Title: "data"})
	report := w.AddPresentation("report-template.gslide", tpl, &slides.Presentation{})
	manifest := w.AddFile("entities.csv", root, gapi.MimeCSV, []byte("Acme,Y\n"))

	l, err := NewResolver(w, nil).Resolve(ctx, "https://drive.google.com/drive/folders/"+root)
	require.NoError(t, err)

	assert.Equal(t, root, l.RootID)
	assert.Equal(t, l0, l.L0ID)
	assert.Equal(t, tpl, l.TemplatesID)
	assert.Equal(t, data, l.DataTemplateID)
	assert.Equal(t, report, l.ReportTemplateID)
	assert.Equal(t, manifest, l.EntitiesFileID)

	for _, name := range []string{FolderL1, FolderL2, FolderL3} {
		f, ok := w.Find(root, name)
		require.True(t, ok, name)
		assert.Equal(t, gapi.MimeFolder, f.MimeType)
	}
	assert.Equal(t, 3, w.CountCalls("drive.createFolder"))

	// A second resolve reuses everything.
	again, err := NewResolver(w, nil).Resolve(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, l, again)
	assert.Equal(t, 3, w.CountCalls("drive.createFolder"))
}

func TestResolve_MissingTemplate(t *testing.T) {
	ctx := context.Background()
	w := gapitest.New()
	root := w.AddFolder("reports", "")
	w.AddFile("entities.csv", root, gapi.MimeCSV, nil)

	_, err := NewResolver(w, nil).Resolve(ctx, root)
	var nf *deck.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "data-template.gsheet", nf.Name)
}

func TestResolve_MissingRoot(t *testing.T) {
	_, err := NewResolver(gapitest.New(), nil).Resolve(context.Background(), "nope")
	assert.ErrorContains(t, err, "failed to open root folder")
}
