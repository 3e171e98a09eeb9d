package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	return ws
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"report.csv", "report.csv"},
		{"../../etc/passwd", "passwd"},
		{"..\\..\\evil.xlsx", "evil.xlsx"},
		{"q3 sales (final).xlsx", "q3_sales_final_.xlsx"},
		{".hidden.csv", "hidden.csv"},
		{"données.csv", "donn_es.csv"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.input); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSaveUploadAndResolve(t *testing.T) {
	ws := newTestWorkspace(t)

	stored, size, err := ws.SaveUpload("q3 sales.csv", strings.NewReader("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("save upload: %v", err)
	}
	if stored != "q3_sales.csv" {
		t.Fatalf("stored name %q", stored)
	}
	if size != 8 {
		t.Fatalf("size = %d, want 8", size)
	}

	path, err := ws.Resolve(stored)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Fatalf("content mismatch: %q", data)
	}
}

func TestSaveUploadRejectsUnsupportedExtension(t *testing.T) {
	ws := newTestWorkspace(t)

	if _, _, err := ws.SaveUpload("script.sh", strings.NewReader("#!")); !errors.Is(err, ErrUnsupportedExtension) {
		t.Fatalf("expected ErrUnsupportedExtension, got %v", err)
	}
}

func TestSaveUploadEnforcesSizeLimit(t *testing.T) {
	ws, err := New(t.TempDir(), 16)
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}

	if _, _, err := ws.SaveUpload("big.csv", strings.NewReader(strings.Repeat("x", 64))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(ws.Dir(), "big.csv")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("oversized upload must not be left on disk")
	}
}

func TestResolveMissingFile(t *testing.T) {
	ws := newTestWorkspace(t)

	if _, err := ws.Resolve("absent.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveSanitizesTraversal(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, _, err := ws.SaveUpload("safe.csv", strings.NewReader("a\n")); err != nil {
		t.Fatalf("save upload: %v", err)
	}

	path, err := ws.Resolve("../safe.csv")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if filepath.Dir(path) != ws.Dir() {
		t.Fatalf("resolved path escaped workspace: %q", path)
	}
}

func TestListSortsByName(t *testing.T) {
	ws := newTestWorkspace(t)
	for _, name := range []string{"b.csv", "a.csv"} {
		if _, _, err := ws.SaveUpload(name, strings.NewReader("x\n")); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	files, err := ws.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 || files[0].Name != "a.csv" || files[1].Name != "b.csv" {
		t.Fatalf("unexpected listing %+v", files)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)

	if err := ws.WriteMetadata("sales", "source: sales.csv\n"); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	doc, err := ws.ReadMetadata("sales")
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if doc != "source: sales.csv\n" {
		t.Fatalf("document mismatch: %q", doc)
	}

	if _, err := ws.ReadMetadata("absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBaseNamePairing(t *testing.T) {
	ws := newTestWorkspace(t)

	base := BaseName("sales.xlsx")
	if base != "sales" {
		t.Fatalf("base = %q", base)
	}
	if got := ws.StorePath(base); filepath.Base(got) != "sales.db" {
		t.Fatalf("store path %q", got)
	}
	if got := ws.MetadataPath(base); filepath.Base(got) != "sales.txt" {
		t.Fatalf("metadata path %q", got)
	}
}

func TestSweepOnceDeletesOnlyExpiredFiles(t *testing.T) {
	ws := newTestWorkspace(t)

	oldPath := filepath.Join(ws.Dir(), "old.csv")
	if err := os.WriteFile(oldPath, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write old file: %v", err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("age old file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.Dir(), "fresh.csv"), []byte("y\n"), 0o644); err != nil {
		t.Fatalf("write fresh file: %v", err)
	}

	sweeper := &Sweeper{Workspace: ws, MaxAge: 24 * time.Hour}
	summary, err := sweeper.SweepOnce()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if summary.FilesScanned != 2 || summary.FilesDeleted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(oldPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expired file should be gone")
	}
	if _, err := os.Stat(filepath.Join(ws.Dir(), "fresh.csv")); err != nil {
		t.Fatalf("fresh file should remain: %v", err)
	}
}

func TestSweepOnceDisabledWithoutMaxAge(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, _, err := ws.SaveUpload("keep.csv", strings.NewReader("x\n")); err != nil {
		t.Fatalf("save upload: %v", err)
	}

	sweeper := &Sweeper{Workspace: ws}
	summary, err := sweeper.SweepOnce()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if summary.FilesScanned != 0 || summary.FilesDeleted != 0 {
		t.Fatalf("disabled sweeper must not touch files: %+v", summary)
	}
}
