package merge

import (
	"math"
	"strconv"
	"strings"
)

// Coerce converts a CSV cell to the value written to Sheets, so numbers and
// booleans land typed instead of as quoted text.
func Coerce(cell string) interface{} {
	s := strings.TrimSpace(cell)
	if s == "" {
		return ""
	}
	if isInteger(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CoerceRows applies Coerce to every cell, keeping row and column order.
func CoerceRows(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = make([]interface{}, len(row))
		for j, cell := range row {
			out[i][j] = Coerce(cell)
		}
	}
	return out
}
