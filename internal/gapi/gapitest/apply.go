package gapitest

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf16"

	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/gapi"
)

func (w *Workspace) apply(p *slides.Presentation, req *slides.Request) (string, error) {
	switch {
	case req.DeleteObject != nil:
		return "deleteObject", deleteObject(p, req.DeleteObject.ObjectId)
	case req.DeleteText != nil:
		r := req.DeleteText
		return "deleteText", editText(p, r.ObjectId, r.CellLocation, func(t *text) error {
			start, end, err := t.bounds(r.TextRange)
			if err != nil {
				return err
			}
			t.units = append(t.units[:start], t.units[end:]...)
			return nil
		})
	case req.InsertText != nil:
		r := req.InsertText
		return "insertText", editText(p, r.ObjectId, r.CellLocation, func(t *text) error {
			return t.insert(int(r.InsertionIndex), r.Text)
		})
	case req.UpdateTextStyle != nil:
		r := req.UpdateTextStyle
		return "updateTextStyle", editText(p, r.ObjectId, r.CellLocation, func(t *text) error {
			start, end, err := t.bounds(r.TextRange)
			if err != nil {
				return err
			}
			return t.restyle(start, end, r.Style, r.Fields)
		})
	case req.CreateSheetsChart != nil:
		r := req.CreateSheetsChart
		if err := w.checkChart(r.SpreadsheetId, r.ChartId); err != nil {
			return "createSheetsChart", err
		}
		return "createSheetsChart", place(p, r.ObjectId, r.ElementProperties, func(el *slides.PageElement) {
			el.SheetsChart = &slides.SheetsChart{SpreadsheetId: r.SpreadsheetId, ChartId: r.ChartId}
		})
	case req.CreateImage != nil:
		r := req.CreateImage
		if err := w.checkImageURL(r.Url); err != nil {
			return "createImage", err
		}
		return "createImage", place(p, r.ObjectId, r.ElementProperties, func(el *slides.PageElement) {
			el.Image = &slides.Image{ContentUrl: r.Url, SourceUrl: r.Url}
		})
	case req.CreateTable != nil:
		r := req.CreateTable
		if r.Rows < 1 || r.Columns < 1 {
			return "createTable", fmt.Errorf("table must have at least one row and column")
		}
		return "createTable", place(p, r.ObjectId, r.ElementProperties, func(el *slides.PageElement) {
			el.Table = newTable(r.Rows, r.Columns)
		})
	case req.UpdatePageElementsZOrder != nil:
		return "updatePageElementsZOrder", reorder(p, req.UpdatePageElementsZOrder)
	}
	return "unknown", fmt.Errorf("unsupported request")
}

func (w *Workspace) checkChart(spreadsheetID string, chartID int64) error {
	for _, t := range w.sheets[spreadsheetID] {
		for _, c := range t.charts {
			if c == chartID {
				return nil
			}
		}
	}
	return fmt.Errorf("chart %d not found in spreadsheet %s", chartID, spreadsheetID)
}

func (w *Workspace) checkImageURL(url string) error {
	id := gapi.FileIDFromURL(url)
	if _, ok := w.files[id]; !ok {
		return fmt.Errorf("the provided image was not found: %s", url)
	}
	for _, typ := range w.perms[id] {
		if typ == "anyone" {
			return nil
		}
	}
	return fmt.Errorf("the provided image is not accessible: %s", url)
}

func newTable(rows, cols int64) *slides.Table {
	t := &slides.Table{Rows: rows, Columns: cols}
	for r := int64(0); r < rows; r++ {
		row := &slides.TableRow{}
		for c := int64(0); c < cols; c++ {
			row.TableCells = append(row.TableCells, &slides.TableCell{
				Location: &slides.TableCellLocation{RowIndex: r, ColumnIndex: c},
				Text:     &slides.TextContent{},
			})
		}
		t.TableRows = append(t.TableRows, row)
	}
	return t
}

func validObjectID(id string) error {
	if len(id) < 5 || len(id) > 50 {
		return fmt.Errorf("object ID %q must be 5-50 characters", id)
	}
	return nil
}

func objectExists(p *slides.Presentation, id string) bool {
	for _, s := range p.Slides {
		if s.ObjectId == id {
			return true
		}
		if _, _, el := findIn(s.PageElements, id); el != nil {
			return true
		}
	}
	return false
}

func place(p *slides.Presentation, id string, props *slides.PageElementProperties, fill func(*slides.PageElement)) error {
	if err := validObjectID(id); err != nil {
		return err
	}
	if objectExists(p, id) {
		return fmt.Errorf("object ID %q already exists", id)
	}
	if props == nil {
		return fmt.Errorf("elementProperties required")
	}
	for _, s := range p.Slides {
		if s.ObjectId == props.PageObjectId {
			el := &slides.PageElement{ObjectId: id, Size: props.Size, Transform: props.Transform}
			fill(el)
			s.PageElements = append(s.PageElements, el)
			return nil
		}
	}
	return fmt.Errorf("page %q not found", props.PageObjectId)
}

// findIn searches elements and group children. It returns the containing slice
// owner (nil for top level), the index within it and the element.
func findIn(els []*slides.PageElement, id string) (*slides.Group, int, *slides.PageElement) {
	for i, el := range els {
		if el.ObjectId == id {
			return nil, i, el
		}
		if el.ElementGroup != nil {
			if g, j, found := findIn(el.ElementGroup.Children, id); found != nil {
				if g == nil {
					g = el.ElementGroup
				}
				return g, j, found
			}
		}
	}
	return nil, -1, nil
}

func findElement(p *slides.Presentation, id string) *slides.PageElement {
	for _, s := range p.Slides {
		if _, _, el := findIn(s.PageElements, id); el != nil {
			return el
		}
	}
	return nil
}

func deleteObject(p *slides.Presentation, id string) error {
	for i, s := range p.Slides {
		if s.ObjectId == id {
			p.Slides = append(p.Slides[:i], p.Slides[i+1:]...)
			return nil
		}
	}
	for _, s := range p.Slides {
		g, i, el := findIn(s.PageElements, id)
		if el == nil {
			continue
		}
		if g == nil {
			s.PageElements = append(s.PageElements[:i], s.PageElements[i+1:]...)
		} else {
			g.Children = append(g.Children[:i], g.Children[i+1:]...)
		}
		return nil
	}
	return fmt.Errorf("object %q not found", id)
}

func reorder(p *slides.Presentation, r *slides.UpdatePageElementsZOrderRequest) error {
	if r.Operation != "BRING_TO_FRONT" {
		return fmt.Errorf("unsupported z-order operation %q", r.Operation)
	}
	for _, id := range r.PageElementObjectIds {
		moved := false
		for _, s := range p.Slides {
			for i, el := range s.PageElements {
				if el.ObjectId == id {
					s.PageElements = append(s.PageElements[:i], s.PageElements[i+1:]...)
					s.PageElements = append(s.PageElements, el)
					moved = true
					break
				}
			}
			if moved {
				break
			}
		}
		if !moved {
			return fmt.Errorf("page element %q not found", id)
		}
	}
	return nil
}

// text is a shape or cell body flattened to UTF-16 units, each carrying its run style.
type text struct {
	units  []uint16
	styles []*slides.TextStyle
}

func editText(p *slides.Presentation, objectID string, cell *slides.TableCellLocation, fn func(*text) error) error {
	el := findElement(p, objectID)
	if el == nil {
		return fmt.Errorf("object %q not found", objectID)
	}

	var target **slides.TextContent
	switch {
	case cell != nil:
		if el.Table == nil {
			return fmt.Errorf("object %q is not a table", objectID)
		}
		r, c := cell.RowIndex, cell.ColumnIndex
		if r < 0 || int(r) >= len(el.Table.TableRows) || c < 0 || int(c) >= len(el.Table.TableRows[r].TableCells) {
			return fmt.Errorf("cell (%d,%d) out of range", r, c)
		}
		target = &el.Table.TableRows[r].TableCells[c].Text
	case el.Shape != nil:
		target = &el.Shape.Text
	default:
		return fmt.Errorf("object %q has no text", objectID)
	}

	t := flatten(*target)
	if err := fn(t); err != nil {
		return err
	}
	*target = t.content()
	return nil
}

func flatten(tc *slides.TextContent) *text {
	t := &text{}
	if tc == nil {
		return t
	}
	for _, te := range tc.TextElements {
		if te.TextRun == nil {
			continue
		}
		style := te.TextRun.Style
		if style == nil {
			style = &slides.TextStyle{}
		}
		for _, u := range utf16.Encode([]rune(te.TextRun.Content)) {
			t.units = append(t.units, u)
			t.styles = append(t.styles, style)
		}
	}
	return t
}

func (t *text) content() *slides.TextContent {
	tc := &slides.TextContent{}
	start := 0
	for i := 1; i <= len(t.units); i++ {
		if i < len(t.units) && reflect.DeepEqual(t.styles[i], t.styles[start]) {
			continue
		}
		tc.TextElements = append(tc.TextElements, &slides.TextElement{
			StartIndex: int64(start),
			EndIndex:   int64(i),
			TextRun: &slides.TextRun{
				Content: string(utf16.Decode(t.units[start:i])),
				Style:   t.styles[start],
			},
		})
		start = i
	}
	return tc
}

func (t *text) bounds(r *slides.Range) (int, int, error) {
	n := len(t.units)
	if r == nil || r.Type == "ALL" {
		return 0, n, nil
	}
	start := 0
	if r.StartIndex != nil {
		start = int(*r.StartIndex)
	}
	end := n
	switch r.Type {
	case "FIXED_RANGE":
		if r.StartIndex == nil || r.EndIndex == nil {
			return 0, 0, fmt.Errorf("FIXED_RANGE requires start and end")
		}
		end = int(*r.EndIndex)
	case "FROM_START_INDEX":
	default:
		return 0, 0, fmt.Errorf("unknown range type %q", r.Type)
	}
	if start < 0 || end > n || start > end {
		return 0, 0, fmt.Errorf("range [%d,%d) outside text of length %d", start, end, n)
	}
	return start, end, nil
}

func (t *text) insert(at int, s string) error {
	if at < 0 || at > len(t.units) {
		return fmt.Errorf("insertion index %d outside text of length %d", at, len(t.units))
	}
	style := &slides.TextStyle{}
	switch {
	case at > 0:
		style = t.styles[at-1]
	case len(t.styles) > 0:
		style = t.styles[0]
	}
	add := utf16.Encode([]rune(s))
	styles := make([]*slides.TextStyle, len(add))
	for i := range styles {
		styles[i] = style
	}
	t.units = append(t.units[:at], append(add, t.units[at:]...)...)
	t.styles = append(t.styles[:at], append(styles, t.styles[at:]...)...)
	return nil
}

func (t *text) restyle(start, end int, style *slides.TextStyle, fields string) error {
	if style == nil {
		style = &slides.TextStyle{}
	}
	names := strings.Split(fields, ",")
	for i := start; i < end; i++ {
		merged := *t.styles[i]
		for _, f := range names {
			if err := setStyleField(&merged, style, strings.TrimSpace(f)); err != nil {
				return err
			}
		}
		t.styles[i] = &merged
	}
	return nil
}

func setStyleField(dst, src *slides.TextStyle, field string) error {
	switch field {
	case "*":
		*dst = *src
	case "bold":
		dst.Bold = src.Bold
	case "italic":
		dst.Italic = src.Italic
	case "underline":
		dst.Underline = src.Underline
	case "strikethrough":
		dst.Strikethrough = src.Strikethrough
	case "smallCaps":
		dst.SmallCaps = src.SmallCaps
	case "fontFamily":
		dst.FontFamily = src.FontFamily
	case "fontSize":
		dst.FontSize = src.FontSize
	case "foregroundColor":
		dst.ForegroundColor = src.ForegroundColor
	case "backgroundColor":
		dst.BackgroundColor = src.BackgroundColor
	case "weightedFontFamily":
		dst.WeightedFontFamily = src.WeightedFontFamily
	case "baselineOffset":
		dst.BaselineOffset = src.BaselineOffset
	case "link":
		dst.Link = src.Link
	default:
		return fmt.Errorf("unknown text style field %q", field)
	}
	return nil
}
