package render

import (
	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/pkg/deck"
)

// placeholder is one slot found while scanning a deck. It is either a
// *textPlaceholder or an *elementPlaceholder, and no two placeholders touch
// the same page element.
type placeholder interface {
	slideID() string
	tokens() []deck.Token
}

// textPlaceholder holds every {{key}} occurrence in one shape or table cell.
type textPlaceholder struct {
	slide    string
	objectID string
	cell     *slides.TableCellLocation
	matches  []match
}

func (p *textPlaceholder) slideID() string { return p.slide }

func (p *textPlaceholder) tokens() []deck.Token {
	out := make([]deck.Token, len(p.matches))
	for i, m := range p.matches {
		out[i] = deck.Token{Kind: deck.KindText, Key: m.key}
	}
	return out
}

// elementPlaceholder is a whole page element replaced by a chart, table or picture.
type elementPlaceholder struct {
	slide   string
	kind    deck.PlaceholderKind
	key     string
	element *slides.PageElement

	// headerStyle is the top-left cell style of a table placeholder, if any.
	headerStyle *slides.TextStyle

	// grouped is set for group children; frame is the combined transform of
	// their enclosing groups.
	grouped bool
	frame   *slides.AffineTransform
}

func (p *elementPlaceholder) slideID() string { return p.slide }

func (p *elementPlaceholder) tokens() []deck.Token {
	return []deck.Token{{Kind: p.kind, Key: p.key}}
}

// scan classifies every element of the given slides in a single pass,
// descending into groups at any depth.
func scan(pages []*slides.Page) []placeholder {
	var out []placeholder
	for _, page := range pages {
		for _, el := range page.PageElements {
			out = append(out, scanElement(page.ObjectId, el, false, nil)...)
		}
	}
	return out
}

func scanElement(slide string, el *slides.PageElement, grouped bool, frame *slides.AffineTransform) []placeholder {
	if ph := classifyElement(slide, el); ph != nil {
		ph.grouped, ph.frame = grouped, frame
		return []placeholder{ph}
	}
	if el.ElementGroup == nil {
		return textPlaceholders(slide, el)
	}
	inner := compose(frame, el.Transform)
	var out []placeholder
	for _, child := range el.ElementGroup.Children {
		out = append(out, scanElement(slide, child, true, inner)...)
	}
	return out
}

func classifyElement(slide string, el *slides.PageElement) *elementPlaceholder {
	for _, name := range []string{el.Title, el.Description} {
		if m := kindName.FindStringSubmatch(name); m != nil {
			kind, _ := deck.ParseKind(m[1])
			return &elementPlaceholder{slide: slide, kind: kind, key: m[2], element: el, headerStyle: topLeftStyle(el)}
		}
	}

	switch {
	case el.Shape != nil && el.Shape.Text != nil:
		if kind, key, ok := wholeKindToken(flattenText(el.Shape.Text).text); ok {
			k, _ := deck.ParseKind(kind)
			return &elementPlaceholder{slide: slide, kind: k, key: key, element: el}
		}
	case el.Table != nil:
		if cell := topLeft(el); cell != nil {
			if kind, key, ok := wholeKindToken(flattenText(cell.Text).text); ok && kind == "table" {
				return &elementPlaceholder{slide: slide, kind: deck.KindTable, key: key, element: el, headerStyle: topLeftStyle(el)}
			}
		}
	}
	return nil
}

func topLeft(el *slides.PageElement) *slides.TableCell {
	if el.Table == nil || len(el.Table.TableRows) == 0 || len(el.Table.TableRows[0].TableCells) == 0 {
		return nil
	}
	return el.Table.TableRows[0].TableCells[0]
}

func topLeftStyle(el *slides.PageElement) *slides.TextStyle {
	cell := topLeft(el)
	if cell == nil {
		return nil
	}
	for _, s := range flattenText(cell.Text).segments {
		if s.style != nil {
			return s.style
		}
	}
	return nil
}

func textPlaceholders(slide string, el *slides.PageElement) []placeholder {
	var out []placeholder
	switch {
	case el.Shape != nil:
		if ms := flattenText(el.Shape.Text).matches(); len(ms) > 0 {
			out = append(out, &textPlaceholder{slide: slide, objectID: el.ObjectId, matches: ms})
		}
	case el.Table != nil:
		for r, row := range el.Table.TableRows {
			for c, cell := range row.TableCells {
				ms := flattenText(cell.Text).matches()
				if len(ms) == 0 {
					continue
				}
				loc := cell.Location
				if loc == nil {
					loc = &slides.TableCellLocation{RowIndex: int64(r), ColumnIndex: int64(c)}
				}
				out = append(out, &textPlaceholder{slide: slide, objectID: el.ObjectId, cell: loc, matches: ms})
			}
		}
	}
	return out
}

