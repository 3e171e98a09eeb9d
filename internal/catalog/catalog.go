// Package catalog records conversion runs in an external database so
// operators can audit what was ingested after workspace retention has
// pruned the files themselves.
package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog record not found")

// IngestRun is one completed conversion: which source file produced which
// store, and how much data it carried.
type IngestRun struct {
	RunID      int64     `json:"run_id"`
	SourceFile string    `json:"source_file"`
	BaseName   string    `json:"base_name"`
	Tables     int       `json:"tables"`
	TotalRows  int64     `json:"total_rows"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type RecordRunInput struct {
	SourceFile string
	BaseName   string
	Tables     int
	TotalRows  int64
	CreatedBy  string
}

// Recorder is the catalog contract the API depends on. A nil Recorder means
// run tracking is disabled.
type Recorder interface {
	HealthCheck(ctx context.Context) error
	RecordRun(ctx context.Context, in RecordRunInput) (IngestRun, error)
	ListRuns(ctx context.Context, limit int) ([]IngestRun, error)
}
