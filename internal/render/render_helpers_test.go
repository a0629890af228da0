package render

import (
	"google.golang.org/api/slides/v1"
)

func run(content string, style *slides.TextStyle) *slides.TextElement {
	return &slides.TextElement{TextRun: &slides.TextRun{Content: content, Style: style}}
}

func textContent(elements ...*slides.TextElement) *slides.TextContent {
	return &slides.TextContent{TextElements: elements}
}

func shape(id string, elements ...*slides.TextElement) *slides.PageElement {
	return &slides.PageElement{
		ObjectId: id,
		Shape:    &slides.Shape{ShapeType: "TEXT_BOX", Text: textContent(elements...)},
		Size: &slides.Size{
			Width:  &slides.Dimension{Magnitude: 3000000, Unit: "EMU"},
			Height: &slides.Dimension{Magnitude: 1000000, Unit: "EMU"},
		},
		Transform: &slides.AffineTransform{ScaleX: 1, ScaleY: 1, Unit: "EMU"},
	}
}

// placed returns a shape at (x, y) with the given base size and scale.
func placed(id, title string, x, y, w, h, scale float64) *slides.PageElement {
	return &slides.PageElement{
		ObjectId: id,
		Title:    title,
		Shape:    &slides.Shape{ShapeType: "RECTANGLE"},
		Size: &slides.Size{
			Width:  &slides.Dimension{Magnitude: w, Unit: "EMU"},
			Height: &slides.Dimension{Magnitude: h, Unit: "EMU"},
		},
		Transform: &slides.AffineTransform{ScaleX: scale, ScaleY: scale, TranslateX: x, TranslateY: y, Unit: "EMU"},
	}
}

func table(id string, cells ...[]string) *slides.PageElement {
	t := &slides.Table{Rows: int64(len(cells))}
	for r, row := range cells {
		tr := &slides.TableRow{}
		for c, v := range row {
			cell := &slides.TableCell{Location: &slides.TableCellLocation{RowIndex: int64(r), ColumnIndex: int64(c)}}
			if v != "" {
				cell.Text = textContent(run(v, &slides.TextStyle{Bold: true}))
			}
			tr.TableCells = append(tr.TableCells, cell)
		}
		t.Columns = int64(len(row))
		t.TableRows = append(t.TableRows, tr)
	}
	return &slides.PageElement{ObjectId: id, Table: t}
}

func group(id string, children ...*slides.PageElement) *slides.PageElement {
	return &slides.PageElement{ObjectId: id, ElementGroup: &slides.Group{Children: children}}
}

func page(id string, elements ...*slides.PageElement) *slides.Page {
	return &slides.Page{ObjectId: id, PageElements: elements}
}

func presentation(pages ...*slides.Page) *slides.Presentation {
	return &slides.Presentation{Title: "template", Slides: pages}
}

// texts returns the concatenated run content of a shape or table cell.
func texts(tc *slides.TextContent) string {
	out := ""
	if tc == nil {
		return out
	}
	for _, te := range tc.TextElements {
		if te.TextRun != nil {
			out += te.TextRun.Content
		}
	}
	return out
}

func element(p *slides.Page, id string) *slides.PageElement {
	for _, el := range p.PageElements {
		if el.ObjectId == id {
			return el
		}
	}
	return nil
}

func elementIDs(p *slides.Page) []string {
	ids := make([]string, len(p.PageElements))
	for i, el := range p.PageElements {
		ids[i] = el.ObjectId
	}
	return ids
}
