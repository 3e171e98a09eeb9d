package postgres

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/sheetql/sheetql/internal/catalog"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestRecordRun(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO ingest_run (source_file, base_name, tables, total_rows, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING run_id, created_at`)).
		WithArgs("sales.xlsx", "sales", 2, int64(340), "api").
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "created_at"}).AddRow(int64(7), now))

	run, err := repo.RecordRun(t.Context(), catalog.RecordRunInput{
		SourceFile: "sales.xlsx",
		BaseName:   "sales",
		Tables:     2,
		TotalRows:  340,
		CreatedBy:  "api",
	})
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if run.RunID != 7 {
		t.Fatalf("RunID = %d", run.RunID)
	}
	if !run.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", run.CreatedAt, now)
	}
	assertSQLMock(t, mock)
}

func TestListRunsAppliesDefaultLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT run_id, source_file, base_name, tables, total_rows, created_by, created_at
FROM ingest_run
ORDER BY run_id DESC
LIMIT $1`)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "source_file", "base_name", "tables", "total_rows", "created_by", "created_at"}).
			AddRow(int64(2), "b.csv", "b", 1, int64(10), "api", now).
			AddRow(int64(1), "a.csv", "a", 1, int64(5), "api", now))

	runs, err := repo.ListRuns(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != 2 || runs[1].BaseName != "a" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	assertSQLMock(t, mock)
}

func TestRecordRunWrapsErrors(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery("INSERT INTO ingest_run").
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.RecordRun(t.Context(), catalog.RecordRunInput{SourceFile: "x.csv", BaseName: "x"}); err == nil {
		t.Fatal("expected error")
	}
	assertSQLMock(t, mock)
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ingest_run").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	assertSQLMock(t, mock)
}
