package render

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/pkg/deck"
)

var objectNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dyluth/deckhand/objects"))

// ObjectID derives the ID of the element that replaces placeholder objectID.
// The same placeholder always yields the same ID.
func ObjectID(objectID string, kind deck.PlaceholderKind) string {
	id := uuid.NewSHA1(objectNamespace, []byte(string(kind)+"/"+objectID))
	return "dh_" + strings.ReplaceAll(id.String(), "-", "")
}

// box is an element's rendered bounds in EMU.
type box struct {
	x, y, w, h float64
}

func boxOf(size *slides.Size, t *slides.AffineTransform) box {
	var b box
	if size != nil {
		if size.Width != nil {
			b.w = size.Width.Magnitude
		}
		if size.Height != nil {
			b.h = size.Height.Magnitude
		}
	}
	if t != nil {
		if t.ScaleX != 0 {
			b.w *= t.ScaleX
		}
		if t.ScaleY != 0 {
			b.h *= t.ScaleY
		}
		b.x, b.y = t.TranslateX, t.TranslateY
	}
	return b
}

// compose returns outer applied after inner. A nil transform is the identity.
func compose(outer, inner *slides.AffineTransform) *slides.AffineTransform {
	if outer == nil {
		return inner
	}
	if inner == nil {
		return outer
	}
	o, i := withScale(outer), withScale(inner)
	return &slides.AffineTransform{
		ScaleX:     o.ScaleX*i.ScaleX + o.ShearX*i.ShearY,
		ShearX:     o.ScaleX*i.ShearX + o.ShearX*i.ScaleY,
		TranslateX: o.ScaleX*i.TranslateX + o.ShearX*i.TranslateY + o.TranslateX,
		ShearY:     o.ShearY*i.ScaleX + o.ScaleY*i.ShearY,
		ScaleY:     o.ShearY*i.ShearX + o.ScaleY*i.ScaleY,
		TranslateY: o.ShearY*i.TranslateX + o.ScaleY*i.TranslateY + o.TranslateY,
		Unit:       "EMU",
	}
}

// withScale treats an unset scale on an unsheared transform as 1, as boxOf does.
func withScale(t *slides.AffineTransform) slides.AffineTransform {
	c := *t
	if c.ShearX != 0 || c.ShearY != 0 {
		return c
	}
	if c.ScaleX == 0 {
		c.ScaleX = 1
	}
	if c.ScaleY == 0 {
		c.ScaleY = 1
	}
	return c
}

// fit scales a width x height image into b, keeping its aspect ratio, centred.
func (b box) fit(width, height int64) box {
	if width <= 0 || height <= 0 || b.w <= 0 || b.h <= 0 {
		return b
	}
	scale := b.w / float64(width)
	if s := b.h / float64(height); s < scale {
		scale = s
	}
	w, h := float64(width)*scale, float64(height)*scale
	return box{x: b.x + (b.w-w)/2, y: b.y + (b.h-h)/2, w: w, h: h}
}

func (b box) properties(slide string) *slides.PageElementProperties {
	return &slides.PageElementProperties{
		PageObjectId: slide,
		Size: &slides.Size{
			Width:  &slides.Dimension{Magnitude: b.w, Unit: "EMU"},
			Height: &slides.Dimension{Magnitude: b.h, Unit: "EMU"},
		},
		Transform: &slides.AffineTransform{ScaleX: 1, ScaleY: 1, TranslateX: b.x, TranslateY: b.y, Unit: "EMU"},
	}
}

// plan is the single batch that fills an entity's deck.
type plan struct {
	requests []*slides.Request
	missing  []deck.Token
	replaced map[deck.PlaceholderKind]int

	// shares lists picture files Slides must be able to fetch while the batch runs.
	shares []string
}

func (p *plan) add(reqs ...*slides.Request) {
	p.requests = append(p.requests, reqs...)
}

// buildPlan turns placeholders into requests. Unresolved keys are recorded and skipped.
func buildPlan(entity string, ds *deck.EntityDataset, pages []*slides.Page, phs []placeholder) *plan {
	p := &plan{replaced: map[deck.PlaceholderKind]int{}}
	swapped := map[string]string{}
	shared := map[string]bool{}

	for _, ph := range phs {
		switch ph := ph.(type) {
		case *textPlaceholder:
			p.planText(entity, ds, ph)
		case *elementPlaceholder:
			newID, ok := p.planElement(ds, ph, shared)
			if ok && !ph.grouped {
				swapped[ph.element.ObjectId] = newID
			}
		}
	}
	sort.Strings(p.shares)

	for _, page := range pages {
		p.add(restoreZOrder(page, swapped)...)
	}
	return p
}

func resolveText(entity string, ds *deck.EntityDataset, key string) (string, bool) {
	if v, ok := ds.Text[key]; ok {
		return v, true
	}
	if key == "entity_name" {
		return entity, true
	}
	return "", false
}

// planText replaces occurrences from the end of the text backwards so earlier
// offsets stay valid.
func (p *plan) planText(entity string, ds *deck.EntityDataset, ph *textPlaceholder) {
	for i := len(ph.matches) - 1; i >= 0; i-- {
		m := ph.matches[i]
		value, ok := resolveText(entity, ds, m.key)
		if !ok {
			p.missing = append(p.missing, deck.Token{Kind: deck.KindText, Key: m.key})
			continue
		}
		p.replaced[deck.KindText]++

		start, end := m.start, m.end
		p.add(&slides.Request{DeleteText: &slides.DeleteTextRequest{
			ObjectId:     ph.objectID,
			CellLocation: ph.cell,
			TextRange:    &slides.Range{Type: "FIXED_RANGE", StartIndex: &start, EndIndex: &end},
		}})
		if value == "" {
			continue
		}
		p.add(&slides.Request{InsertText: &slides.InsertTextRequest{
			ObjectId:       ph.objectID,
			CellLocation:   ph.cell,
			InsertionIndex: start,
			Text:           value,
		}})
		if m.style != nil {
			stop := start + utf16Len(value)
			p.add(&slides.Request{UpdateTextStyle: &slides.UpdateTextStyleRequest{
				ObjectId:     ph.objectID,
				CellLocation: ph.cell,
				TextRange:    &slides.Range{Type: "FIXED_RANGE", StartIndex: &start, EndIndex: &stop},
				Style:        m.style,
				Fields:       styleFields(m.style),
			}})
		}
	}
}

func (p *plan) planElement(ds *deck.EntityDataset, ph *elementPlaceholder, shared map[string]bool) (string, bool) {
	newID := ObjectID(ph.element.ObjectId, ph.kind)
	b := boxOf(ph.element.Size, compose(ph.frame, ph.element.Transform))

	switch ph.kind {
	case deck.KindChart:
		ref, ok := ds.Chart(ph.key)
		if !ok {
			p.missing = append(p.missing, ph.tokens()...)
			return "", false
		}
		p.add(&slides.Request{CreateSheetsChart: &slides.CreateSheetsChartRequest{
			ObjectId:          newID,
			SpreadsheetId:     ref.SpreadsheetID,
			ChartId:           ref.ChartID,
			LinkingMode:       "LINKED",
			ElementProperties: b.properties(ph.slide),
		}})

	case deck.KindTable:
		values, ok := ds.Table(ph.key)
		if !ok {
			p.missing = append(p.missing, ph.tokens()...)
			return "", false
		}
		p.add(tableRequests(newID, b.properties(ph.slide), values, ph.headerStyle)...)

	case deck.KindPicture:
		img, ok := ds.Picture(ph.key)
		if !ok {
			p.missing = append(p.missing, ph.tokens()...)
			return "", false
		}
		if !shared[img.ID] {
			shared[img.ID] = true
			p.shares = append(p.shares, img.ID)
		}
		p.add(&slides.Request{CreateImage: &slides.CreateImageRequest{
			ObjectId:          newID,
			Url:               gapi.PublicDownloadURL(img.ID),
			ElementProperties: b.fit(img.Width, img.Height).properties(ph.slide),
		}})

	default:
		return "", false
	}

	p.replaced[ph.kind]++
	p.add(&slides.Request{DeleteObject: &slides.DeleteObjectRequest{ObjectId: ph.element.ObjectId}})
	return newID, true
}

// tableRequests creates a table shaped like values and fills it cell by cell.
func tableRequests(id string, props *slides.PageElementProperties, values [][]string, style *slides.TextStyle) []*slides.Request {
	rows, cols := int64(len(values)), int64(0)
	for _, row := range values {
		if n := int64(len(row)); n > cols {
			cols = n
		}
	}
	if rows == 0 {
		rows = 1
	}
	if cols == 0 {
		cols = 1
	}

	reqs := []*slides.Request{{CreateTable: &slides.CreateTableRequest{
		ObjectId:          id,
		Rows:              rows,
		Columns:           cols,
		ElementProperties: props,
	}}}
	for r, row := range values {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell := &slides.TableCellLocation{RowIndex: int64(r), ColumnIndex: int64(c)}
			reqs = append(reqs, &slides.Request{InsertText: &slides.InsertTextRequest{
				ObjectId:     id,
				CellLocation: cell,
				Text:         v,
			}})
			if style != nil {
				reqs = append(reqs, &slides.Request{UpdateTextStyle: &slides.UpdateTextStyleRequest{
					ObjectId:     id,
					CellLocation: cell,
					TextRange:    &slides.Range{Type: "ALL"},
					Style:        style,
					Fields:       styleFields(style),
				}})
			}
		}
	}
	return reqs
}

// restoreZOrder brings top-level elements to the front in their template order,
// starting at the first replaced one. Elements below it are already in place.
// Replacements of group children stay where they were created.
func restoreZOrder(page *slides.Page, swapped map[string]string) []*slides.Request {
	first := -1
	for i, el := range page.PageElements {
		if _, ok := swapped[el.ObjectId]; ok {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	var reqs []*slides.Request
	for _, el := range page.PageElements[first:] {
		id := el.ObjectId
		if newID, ok := swapped[id]; ok {
			id = newID
		}
		reqs = append(reqs, &slides.Request{UpdatePageElementsZOrder: &slides.UpdatePageElementsZOrderRequest{
			PageElementObjectIds: []string{id},
			Operation:            "BRING_TO_FRONT",
		}})
	}
	return reqs
}
