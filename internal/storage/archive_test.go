package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	puts map[string][]byte
	err  error
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (ObjectInfo, error) {
	if f.err != nil {
		return ObjectInfo{}, f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return ObjectInfo{}, err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = data
	return ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrObjectNotFound
}

func (f *fakeStore) Delete(context.Context, string) error { return nil }

func TestBuildArchivePath(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	key, err := BuildArchivePath("sales", at, "sales.db")
	if err != nil {
		t.Fatalf("build path: %v", err)
	}
	if key != "sales/date=2026-03-14/sales.db" {
		t.Fatalf("unexpected key %q", key)
	}

	if _, err := BuildArchivePath("../evil", at, "x.db"); err == nil {
		t.Fatal("traversal base must be rejected")
	}
	if _, err := BuildArchivePath("sales", at, "a/b.db"); err == nil {
		t.Fatal("filename with separators must be rejected")
	}
}

func TestArchiveRunUploadsBothOutputs(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "sales.db")
	metadataPath := filepath.Join(dir, "sales.txt")
	if err := os.WriteFile(storePath, []byte("db-bytes"), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}
	if err := os.WriteFile(metadataPath, []byte("source: sales.csv\n"), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	store := &fakeStore{}
	archiver := &Archiver{
		Store: store,
		Clock: func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) },
	}
	if err := archiver.ArchiveRun(t.Context(), "sales", storePath, metadataPath); err != nil {
		t.Fatalf("archive run: %v", err)
	}

	if string(store.puts["sales/date=2026-03-14/sales.db"]) != "db-bytes" {
		t.Fatalf("store upload missing: %v", store.puts)
	}
	if string(store.puts["sales/date=2026-03-14/sales.txt"]) != "source: sales.csv\n" {
		t.Fatalf("metadata upload missing: %v", store.puts)
	}
}

func TestArchiveRunSurfacesUploadFailure(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "sales.db")
	if err := os.WriteFile(storePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}

	archiver := &Archiver{Store: &fakeStore{err: io.ErrUnexpectedEOF}}
	err := archiver.ArchiveRun(t.Context(), "sales", storePath, filepath.Join(dir, "sales.txt"))
	if err == nil || !strings.Contains(err.Error(), "archive sales.db") {
		t.Fatalf("expected upload failure, got %v", err)
	}
}
