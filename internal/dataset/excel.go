package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// parseExcel reads every sheet of a workbook into its own Dataset. Sheets
// without any rows still yield a Dataset with no columns; the sheet order of
// the workbook is preserved.
func parseExcel(path string) ([]Source, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = book.Close() }()

	sheets := book.GetSheetList()
	sources := make([]Source, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		var ds Dataset
		if len(rows) > 0 {
			ds.Columns = normalizeHeader(rows[0])
			for _, cells := range rows[1:] {
				ds.Rows = append(ds.Rows, padRow(cells, len(ds.Columns)))
			}
		}
		sources = append(sources, Source{Name: sheet, Data: ds})
	}
	return sources, nil
}
