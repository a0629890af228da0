package merge

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook returns one Sheet per worksheet in an xlsx file, in workbook order.
func ReadWorkbook(data []byte, name string) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var out []Sheet
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		out = append(out, Sheet{Tab: sheet, Source: name + "#" + sheet, Rows: rows})
	}
	return out, nil
}
