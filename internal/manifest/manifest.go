// Package manifest selects the entities a run generates.
//
// The manifest is a CSV with columns name, generate and an optional slide
// spec. Rows whose generate flag is Y (any case) are selected in file order.
package manifest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Parse selects entities from manifest rows.
// A leading row whose name starts with "entity" is treated as a header.
func Parse(rows [][]string) ([]deck.Entity, error) {
	var entities []deck.Entity
	first := true
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(strings.ToLower(name), "entity") {
				continue
			}
		}

		if len(row) < 2 {
			return nil, &deck.ValidationError{
				Entity: name,
				Field:  "generate flag",
				Reason: "row has no generate column",
			}
		}
		if !strings.EqualFold(strings.TrimSpace(row[1]), "Y") {
			continue
		}

		e := deck.Entity{Name: name, Generate: true}
		if len(row) > 2 {
			filter, err := ParseSlideSpec(row[2])
			if err != nil {
				if verr, ok := err.(*deck.ValidationError); ok {
					verr.Entity = name
				}
				return nil, err
			}
			e.SlideFilter = filter
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// maxSlideIndex bounds slide indexes so a typo cannot expand into a huge filter.
const maxSlideIndex = 10000

// ParseSlideSpec parses "1,3-5" into a slide filter.
// Blank and "all" return nil, which keeps every slide.
func ParseSlideSpec(spec string) (deck.SlideFilter, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return nil, nil
	}

	invalid := func(reason string) error {
		return &deck.ValidationError{Field: "slide spec", Value: spec, Reason: reason}
	}

	filter := deck.SlideFilter{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, invalid("empty entry")
		}

		lo, hi, isRange := strings.Cut(part, "-")
		start, ok := slideIndex(lo)
		if !ok {
			return nil, invalid(fmt.Sprintf("%q is not a number", part))
		}
		end := start
		if isRange {
			if end, ok = slideIndex(hi); !ok {
				return nil, invalid(fmt.Sprintf("%q is not a range", part))
			}
		}
		if start < 1 {
			return nil, invalid("slide indexes start at 1")
		}
		if end > maxSlideIndex {
			return nil, invalid(fmt.Sprintf("slide indexes stop at %d", maxSlideIndex))
		}
		if start > end {
			return nil, invalid(fmt.Sprintf("range %q is inverted", part))
		}
		for i := start; i <= end; i++ {
			filter[i] = struct{}{}
		}
	}
	return filter, nil
}

// slideIndex accepts plain decimal digits only.
func slideIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 18 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Decode reads CSV manifest content. Rows may have any number of fields.
func Decode(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &deck.ValidationError{Field: "manifest", Reason: err.Error()}
	}
	return rows, nil
}

// Load downloads the manifest file and parses it.
func Load(ctx context.Context, drive gapi.Drive, fileID string) ([]deck.Entity, error) {
	data, err := drive.Download(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download manifest: %w", err)
	}
	rows, err := Decode(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if err != nil {
		return nil, err
	}
	return Parse(rows)
}
