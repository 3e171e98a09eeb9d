package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionSummary reports one sweep over the workspace.
type RetentionSummary struct {
	FilesScanned int `json:"files_scanned"`
	FilesDeleted int `json:"files_deleted"`
	Failures     int `json:"failures"`
}

// Sweeper deletes workspace files older than MaxAge. A MaxAge of zero
// disables sweeping entirely.
type Sweeper struct {
	Workspace *Workspace
	MaxAge    time.Duration
	Interval  time.Duration
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.ensureDefaults()
	if s.MaxAge <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			summary, err := s.SweepOnce()
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "retention sweep failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil && summary.FilesDeleted > 0 {
				s.Logger.InfoContext(ctx, "retention sweep completed", slog.Any("summary", summary))
			}
		}
	}
}

// SweepOnce removes every regular file whose modification time is older
// than MaxAge and reports what happened. Individual deletion failures do
// not stop the sweep.
func (s *Sweeper) SweepOnce() (RetentionSummary, error) {
	s.ensureDefaults()
	if s.Workspace == nil {
		return RetentionSummary{}, fmt.Errorf("workspace is required")
	}
	if s.MaxAge <= 0 {
		return RetentionSummary{}, nil
	}

	files, err := s.Workspace.List()
	if err != nil {
		return RetentionSummary{}, err
	}

	cutoff := s.Clock().Add(-s.MaxAge)
	summary := RetentionSummary{FilesScanned: len(files)}
	failures := make([]string, 0)

	for _, file := range files {
		if !file.Modified.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Workspace.Dir(), file.Name)); err != nil {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("delete %s: %v", file.Name, err))
			continue
		}
		summary.FilesDeleted++
	}

	if len(failures) > 0 {
		return summary, fmt.Errorf("retention encountered %d failure(s): %s", len(failures), strings.Join(failures, "; "))
	}
	return summary, nil
}

func (s *Sweeper) ensureDefaults() {
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Interval <= 0 {
		s.Interval = 10 * time.Minute
	}
}
