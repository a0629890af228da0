package render

import (
	"regexp"
	"strings"
	"unicode/utf16"

	"google.golang.org/api/slides/v1"
)

var (
	textToken = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	kindToken = regexp.MustCompile(`^\{\{\s*(chart|table|picture)-([^{}]+?)\s*\}\}$`)
	kindName  = regexp.MustCompile(`^\s*(chart|table|picture)\s*:\s*(.+?)\s*$`)
)

// segment is a run of text with the style it carries.
type segment struct {
	byteStart int
	style     *slides.TextStyle
}

// body is a text container flattened into one string.
type body struct {
	text     string
	segments []segment
}

func flattenText(tc *slides.TextContent) body {
	var b body
	if tc == nil {
		return b
	}
	var sb strings.Builder
	for _, te := range tc.TextElements {
		var content string
		var style *slides.TextStyle
		switch {
		case te.TextRun != nil:
			content, style = te.TextRun.Content, te.TextRun.Style
		case te.AutoText != nil:
			content, style = te.AutoText.Content, te.AutoText.Style
		default:
			continue
		}
		if content == "" {
			continue
		}
		b.segments = append(b.segments, segment{byteStart: sb.Len(), style: style})
		sb.WriteString(content)
	}
	b.text = sb.String()
	return b
}

// u16 converts a byte offset in b.text to a UTF-16 offset, the unit Slides indexes by.
func (b body) u16(byteOffset int) int64 {
	return utf16Len(b.text[:byteOffset])
}

func (b body) styleAt(byteOffset int) *slides.TextStyle {
	var style *slides.TextStyle
	for _, s := range b.segments {
		if s.byteStart > byteOffset {
			break
		}
		style = s.style
	}
	return style
}

// match is one {{key}} occurrence.
type match struct {
	key        string
	start, end int64
	style      *slides.TextStyle
}

func (b body) matches() []match {
	var out []match
	for _, loc := range textToken.FindAllStringSubmatchIndex(b.text, -1) {
		out = append(out, match{
			key:   b.text[loc[2]:loc[3]],
			start: b.u16(loc[0]),
			end:   b.u16(loc[1]),
			style: b.styleAt(loc[0]),
		})
	}
	return out
}

// wholeKindToken reports whether the trimmed text is a single {{chart-x}},
// {{table-x}} or {{picture-x}} placeholder.
func wholeKindToken(text string) (kind, key string, ok bool) {
	m := kindToken.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func utf16Len(s string) int64 {
	var n int64
	for _, r := range s {
		n += int64(utf16.RuneLen(r))
	}
	return n
}

// styleFields lists the fields of s a style update should write.
// Boolean toggles are always written so a plain placeholder clears them.
func styleFields(s *slides.TextStyle) string {
	fields := []string{"bold", "italic", "underline", "strikethrough", "smallCaps"}
	if s.FontFamily != "" {
		fields = append(fields, "fontFamily")
	}
	if s.WeightedFontFamily != nil {
		fields = append(fields, "weightedFontFamily")
	}
	if s.FontSize != nil {
		fields = append(fields, "fontSize")
	}
	if s.ForegroundColor != nil {
		fields = append(fields, "foregroundColor")
	}
	if s.BackgroundColor != nil {
		fields = append(fields, "backgroundColor")
	}
	if s.BaselineOffset != "" {
		fields = append(fields, "baselineOffset")
	}
	if s.Link != nil {
		fields = append(fields, "link")
	}
	return strings.Join(fields, ",")
}
