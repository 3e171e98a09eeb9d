package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"
)

var archiveComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildArchivePath lays out archive keys as <base>/date=YYYY-MM-DD/<file>,
// partitioned by conversion date so retention tooling can prune by prefix.
func BuildArchivePath(base string, convertedAt time.Time, filename string) (string, error) {
	if !archiveComponentPattern.MatchString(base) {
		return "", fmt.Errorf("invalid archive base: %q", base)
	}
	if !archiveComponentPattern.MatchString(filename) {
		return "", fmt.Errorf("invalid archive filename: %q", filename)
	}
	ts := convertedAt.UTC()
	return path.Join(
		base,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		filename,
	), nil
}

// Archiver copies a conversion's outputs into an object store. Archiving is
// best-effort from the caller's perspective; a failed upload must not undo a
// completed conversion.
type Archiver struct {
	Store  ObjectStore
	Logger *slog.Logger
	Clock  func() time.Time
}

// ArchiveRun uploads the store and metadata files of one conversion under a
// date-partitioned prefix keyed by base name.
func (a *Archiver) ArchiveRun(ctx context.Context, base, storePath, metadataPath string) error {
	if a.Store == nil {
		return fmt.Errorf("object store is required")
	}
	clock := a.Clock
	if clock == nil {
		clock = time.Now
	}
	now := clock()

	uploads := []struct {
		localPath   string
		contentType string
	}{
		{storePath, "application/vnd.sqlite3"},
		{metadataPath, "text/plain; charset=utf-8"},
	}
	for _, upload := range uploads {
		key, err := BuildArchivePath(base, now, filepath.Base(upload.localPath))
		if err != nil {
			return err
		}
		if err := a.uploadFile(ctx, key, upload.localPath, upload.contentType); err != nil {
			return fmt.Errorf("archive %s: %w", filepath.Base(upload.localPath), err)
		}
		if a.Logger != nil {
			a.Logger.InfoContext(ctx, "archived conversion output", slog.String("key", key))
		}
	}
	return nil
}

func (a *Archiver) uploadFile(ctx context.Context, key, localPath, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat local file: %w", err)
	}
	if _, err := a.Store.Put(ctx, key, file, stat.Size(), contentType); err != nil {
		return err
	}
	return nil
}
