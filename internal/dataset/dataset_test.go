package dataset

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	contents := "name,age,score\nalice,30,9.5\nbob,,7\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	sources, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "data" {
		t.Fatalf("sources = %+v", sources)
	}

	ds := sources[0].Data
	if !reflect.DeepEqual(ds.Columns, []string{"name", "age", "score"}) {
		t.Fatalf("Columns = %v", ds.Columns)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d", len(ds.Rows))
	}
	if !reflect.DeepEqual(ds.Rows[0], []any{"alice", int64(30), 9.5}) {
		t.Fatalf("row 0 = %#v", ds.Rows[0])
	}
	if ds.Rows[1][1] != nil {
		t.Fatalf("empty cell = %#v, want nil", ds.Rows[1][1])
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	if err := os.WriteFile(path, []byte("a,b,c\n1,2\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	sources, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	row := sources[0].Data.Rows[0]
	if len(row) != 3 || row[2] != nil {
		t.Fatalf("row = %#v", row)
	}
}

func TestParseFileRejectsUnknownExtension(t *testing.T) {
	if _, err := ParseFile("report.pdf"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestParseExcelKeepsSheetOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	book := excelize.NewFile()
	if err := book.SetSheetName("Sheet1", "2023 Sales"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for cell, value := range map[string]any{"A1": "region", "B1": "total", "A2": "north", "B2": 120} {
		if err := book.SetCellValue("2023 Sales", cell, value); err != nil {
			t.Fatalf("set cell: %v", err)
		}
	}
	if _, err := book.NewSheet("Notes"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	sources, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d", len(sources))
	}
	if sources[0].Name != "2023 Sales" || sources[1].Name != "Notes" {
		t.Fatalf("sheet order = %q, %q", sources[0].Name, sources[1].Name)
	}

	ds := sources[0].Data
	if !reflect.DeepEqual(ds.Columns, []string{"region", "total"}) {
		t.Fatalf("Columns = %v", ds.Columns)
	}
	if len(ds.Rows) != 1 || ds.Rows[0][0] != "north" || ds.Rows[0][1] != int64(120) {
		t.Fatalf("rows = %#v", ds.Rows)
	}
}

func TestParseParquet(t *testing.T) {
	type event struct {
		ID    int64   `parquet:"id"`
		Name  string  `parquet:"name"`
		Score float64 `parquet:"score"`
	}

	path := filepath.Join(t.TempDir(), "events.parquet")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	writer := parquet.NewGenericWriter[event](file)
	if _, err := writer.Write([]event{
		{ID: 1, Name: "first", Score: 0.5},
		{ID: 2, Name: "second", Score: 1.25},
	}); err != nil {
		t.Fatalf("write parquet rows: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	sources, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	ds := sources[0].Data
	if !reflect.DeepEqual(ds.Columns, []string{"id", "name", "score"}) {
		t.Fatalf("Columns = %v", ds.Columns)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("rows = %d", len(ds.Rows))
	}
	if ds.Rows[1][0] != int64(2) || ds.Rows[1][1] != "second" || ds.Rows[1][2] != 1.25 {
		t.Fatalf("row 1 = %#v", ds.Rows[1])
	}
}

func TestNormalizeHeader(t *testing.T) {
	got := normalizeHeader([]string{"name", "", "name", "name"})
	want := []string{"name", "column_2", "name_1", "name_2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeHeader() = %v, want %v", got, want)
	}
}

func TestNormalizeHeaderAvoidsSynthesizedCollision(t *testing.T) {
	got := normalizeHeader([]string{"a", "a", "a_1"})
	want := []string{"a", "a_1", "a_1_1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeHeader() = %v, want %v", got, want)
	}
	unique := make(map[string]struct{}, len(got))
	for _, name := range got {
		if _, dup := unique[name]; dup {
			t.Fatalf("duplicate column %q in %v", name, got)
		}
		unique[name] = struct{}{}
	}
}
