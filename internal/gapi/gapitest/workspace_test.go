package gapitest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/gapi"
)

func shapeDeck(content string, style *slides.TextStyle) *slides.Presentation {
	return &slides.Presentation{Slides: []*slides.Page{{
		ObjectId: "slide1",
		PageElements: []*slides.PageElement{{
			ObjectId: "shape1",
			Shape: &slides.Shape{Text: &slides.TextContent{TextElements: []*slides.TextElement{
				{TextRun: &slides.TextRun{Content: content, Style: style}},
			}}},
		}},
	}}}
}

func int64p(v int64) *int64 { return &v }

func runs(p *slides.Presentation, id string) []*slides.TextElement {
	for _, s := range p.Slides {
		for _, el := range s.PageElements {
			if el.ObjectId == id {
				return el.Shape.Text.TextElements
			}
		}
	}
	return nil
}

func TestBatchUpdate_ReplaceText(t *testing.T) {
	ctx := context.Background()
	w := New()
	id := w.AddPresentation("deck", "", shapeDeck("Hi {{name}}!", &slides.TextStyle{Italic: true}))

	err := w.BatchUpdate(ctx, id, []*slides.Request{
		{DeleteText: &slides.DeleteTextRequest{ObjectId: "shape1", TextRange: &slides.Range{Type: "FIXED_RANGE", StartIndex: int64p(3), EndIndex: int64p(11)}}},
		{InsertText: &slides.InsertTextRequest{ObjectId: "shape1", InsertionIndex: 3, Text: "Zoë"}},
		{UpdateTextStyle: &slides.UpdateTextStyleRequest{
			ObjectId:  "shape1",
			TextRange: &slides.Range{Type: "FIXED_RANGE", StartIndex: int64p(3), EndIndex: int64p(6)},
			Style:     &slides.TextStyle{Bold: true},
			Fields:    "bold",
		}},
	})
	require.NoError(t, err)

	els := runs(w.Presentation(id), "shape1")
	require.Len(t, els, 3)
	assert.Equal(t, "Hi ", els[0].TextRun.Content)
	assert.Equal(t, "Zoë", els[1].TextRun.Content)
	assert.True(t, els[1].TextRun.Style.Bold)
	assert.True(t, els[1].TextRun.Style.Italic)
	assert.Equal(t, "!", els[2].TextRun.Content)
	assert.Equal(t, int64(6), els[2].StartIndex)

	assert.Equal(t, [][]string{{"deleteText", "insertText", "updateTextStyle"}}, w.Batches(id))
}

func TestBatchUpdate_UTF16Offsets(t *testing.T) {
	ctx := context.Background()
	w := New()
	id := w.AddPresentation("deck", "", shapeDeck("😀{{x}}", nil))

	// The emoji occupies two UTF-16 units.
	err := w.BatchUpdate(ctx, id, []*slides.Request{
		{DeleteText: &slides.DeleteTextRequest{ObjectId: "shape1", TextRange: &slides.Range{Type: "FIXED_RANGE", StartIndex: int64p(2), EndIndex: int64p(7)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "😀", runs(w.Presentation(id), "shape1")[0].TextRun.Content)
}

func TestBatchUpdate_IsAtomic(t *testing.T) {
	ctx := context.Background()
	w := New()
	id := w.AddPresentation("deck", "", shapeDeck("keep", nil))

	err := w.BatchUpdate(ctx, id, []*slides.Request{
		{DeleteObject: &slides.DeleteObjectRequest{ObjectId: "shape1"}},
		{DeleteObject: &slides.DeleteObjectRequest{ObjectId: "missing"}},
	})
	require.Error(t, err)

	var gerr *googleapi.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 400, gerr.Code)
	assert.Len(t, w.Presentation(id).Slides[0].PageElements, 1)
	assert.Empty(t, w.Batches(id))
}

func TestBatchUpdate_CreateImageNeedsPublicFile(t *testing.T) {
	ctx := context.Background()
	w := New()
	img := w.AddImage("logo.png", "", "image/png", 100, 50)
	id := w.AddPresentation("deck", "", shapeDeck("", nil))

	req := []*slides.Request{{CreateImage: &slides.CreateImageRequest{
		ObjectId:          "image_0001",
		Url:               gapi.PublicDownloadURL(img),
		ElementProperties: &slides.PageElementProperties{PageObjectId: "slide1"},
	}}}
	require.Error(t, w.BatchUpdate(ctx, id, req))

	perm, err := w.ShareAnyoneReader(ctx, img)
	require.NoError(t, err)
	require.NoError(t, w.BatchUpdate(ctx, id, req))
	require.NoError(t, w.RevokePermission(ctx, img, perm))
	assert.Equal(t, 0, w.PublicPermissions(img))
}

func TestBatchUpdate_ZOrder(t *testing.T) {
	ctx := context.Background()
	w := New()
	p := &slides.Presentation{Slides: []*slides.Page{{
		ObjectId: "slide1",
		PageElements: []*slides.PageElement{
			{ObjectId: "aaaaa"}, {ObjectId: "bbbbb"}, {ObjectId: "ccccc"},
		},
	}}}
	id := w.AddPresentation("deck", "", p)

	err := w.BatchUpdate(ctx, id, []*slides.Request{
		{UpdatePageElementsZOrder: &slides.UpdatePageElementsZOrderRequest{Operation: "BRING_TO_FRONT", PageElementObjectIds: []string{"ccccc"}}},
		{UpdatePageElementsZOrder: &slides.UpdatePageElementsZOrderRequest{Operation: "BRING_TO_FRONT", PageElementObjectIds: []string{"aaaaa"}}},
	})
	require.NoError(t, err)

	var order []string
	for _, el := range w.Presentation(id).Slides[0].PageElements {
		order = append(order, el.ObjectId)
	}
	assert.Equal(t, []string{"bbbbb", "ccccc", "aaaaa"}, order)
}

func TestCopyFile_DeepCopies(t *testing.T) {
	ctx := context.Background()
	w := New()
	root := w.AddFolder("root", "")
	ss := w.AddSpreadsheet("template", root, Tab{Title: "data", Values: [][]string{{"k", "v"}}})

	cp, err := w.CopyFile(ctx, ss, "Acme.gsheet", root)
	require.NoError(t, err)
	require.NoError(t, w.UpdateValues(ctx, cp.ID, gapi.TabRange("data", "A1"), [][]interface{}{{"x", 1}}))

	assert.Equal(t, [][]interface{}{{"k", "v"}}, w.Values(ss, "data"))
	assert.Equal(t, [][]interface{}{{"x", 1}}, w.Values(cp.ID, "data"))
}

func TestFail(t *testing.T) {
	ctx := context.Background()
	w := New()
	root := w.AddFolder("root", "")
	boom := &googleapi.Error{Code: 503}
	w.Fail("drive.list", root, boom, 1)

	_, err := w.ListFiles(ctx, gapi.Query{ParentID: root})
	assert.Equal(t, boom, err)
	_, err = w.ListFiles(ctx, gapi.Query{ParentID: root})
	assert.NoError(t, err)
	assert.Equal(t, 2, w.CountCalls("drive.list"))
}

func TestUpdateValues_MissingTab(t *testing.T) {
	w := New()
	ss := w.AddSpreadsheet("s", "", Tab{Title: "data"})
	err := w.UpdateValues(context.Background(), ss, gapi.TabRange("table-x", "A1"), [][]interface{}{{"a"}})
	var gerr *googleapi.Error
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Message, "Unable to parse range")
}
