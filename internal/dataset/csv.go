package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

func parseCSV(path string) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return Dataset{}, fmt.Errorf("source file is empty")
		}
		return Dataset{}, fmt.Errorf("read header: %w", err)
	}

	ds := Dataset{Columns: normalizeHeader(header)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read record: %w", err)
		}
		ds.Rows = append(ds.Rows, padRow(record, len(ds.Columns)))
	}
	return ds, nil
}
