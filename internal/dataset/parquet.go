package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parseParquet reads a flat parquet file into a single Dataset. Column order
// follows the file schema; nested schemas are not supported for tabular
// ingestion.
func parseParquet(path string) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return Dataset{}, fmt.Errorf("stat source file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return Dataset{}, fmt.Errorf("open parquet: %w", err)
	}

	fields := pf.Schema().Fields()
	ds := Dataset{Columns: make([]string, len(fields))}
	for i, field := range fields {
		if !field.Leaf() {
			return Dataset{}, fmt.Errorf("nested parquet column %q is not supported", field.Name())
		}
		ds.Columns[i] = field.Name()
	}

	buf := make([]parquet.Row, 128)
	for _, group := range pf.RowGroups() {
		rows := group.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				values := make([]any, len(fields))
				for _, value := range row {
					column := value.Column()
					if column < 0 || column >= len(values) {
						continue
					}
					values[column] = parquetValue(value)
				}
				ds.Rows = append(ds.Rows, values)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = rows.Close()
				return Dataset{}, fmt.Errorf("read parquet rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return Dataset{}, fmt.Errorf("close parquet row reader: %w", err)
		}
	}
	return ds, nil
}

func parquetValue(value parquet.Value) any {
	if value.IsNull() {
		return nil
	}
	switch value.Kind() {
	case parquet.Boolean:
		return value.Boolean()
	case parquet.Int32:
		return int64(value.Int32())
	case parquet.Int64:
		return value.Int64()
	case parquet.Float:
		return float64(value.Float())
	case parquet.Double:
		return value.Double()
	default:
		return value.String()
	}
}
