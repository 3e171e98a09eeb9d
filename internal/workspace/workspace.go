// Package workspace manages the on-disk working directory: uploaded source
// files plus the <base>.db store and <base>.txt metadata pairs produced by
// conversion. Concurrent writes to the same base name are last-write-wins.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound marks lookups for files the workspace does not hold.
	ErrNotFound = errors.New("file not found in workspace")

	// ErrUnsupportedExtension marks uploads whose extension is not accepted.
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrTooLarge marks uploads exceeding the configured size limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// uploadExtensions lists what may be uploaded. Conversion support is
// narrower: legacy binary formats are accepted at the door but refused by
// the dataset parsers.
var uploadExtensions = map[string]struct{}{
	".xls":     {},
	".xlsx":    {},
	".xlsm":    {},
	".csv":     {},
	".ods":     {},
	".parquet": {},
}

var unsafeFilenameChars = regexp.MustCompile(`[^0-9A-Za-z_.-]+`)

type Workspace struct {
	dir            string
	maxUploadBytes int64
}

// FileInfo describes one workspace entry.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// New ensures dir exists and returns a workspace rooted there.
func New(dir string, maxUploadBytes int64) (*Workspace, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("workspace directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}
	return &Workspace{dir: dir, maxUploadBytes: maxUploadBytes}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// SanitizeFilename reduces an arbitrary client-supplied filename to a safe
// base name: path components stripped, unsafe characters collapsed to
// underscores, leading dots removed so nothing hides as a dotfile.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.TrimLeft(base, ".")
	return base
}

// SaveUpload stores the reader's content under the sanitized form of name
// and returns the stored filename and byte count. Uploads with an
// unsupported extension or exceeding the size limit are refused.
func (w *Workspace) SaveUpload(name string, r io.Reader) (string, int64, error) {
	stored := SanitizeFilename(name)
	if stored == "" {
		return "", 0, fmt.Errorf("filename %q: %w", name, ErrUnsupportedExtension)
	}
	ext := strings.ToLower(filepath.Ext(stored))
	if _, ok := uploadExtensions[ext]; !ok {
		return "", 0, fmt.Errorf("extension %q: %w", ext, ErrUnsupportedExtension)
	}

	file, err := os.Create(filepath.Join(w.dir, stored))
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	defer func() { _ = file.Close() }()

	limit := w.maxUploadBytes
	if limit <= 0 {
		limit = 64 << 20
	}
	written, err := io.Copy(file, io.LimitReader(r, limit+1))
	if err != nil {
		_ = os.Remove(file.Name())
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	if written > limit {
		_ = os.Remove(file.Name())
		return "", 0, fmt.Errorf("%d bytes: %w", written, ErrTooLarge)
	}
	return stored, written, nil
}

// List returns every regular file in the workspace, name-sorted.
func (w *Workspace) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read workspace directory: %w", err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Resolve maps a client-supplied name to an absolute path inside the
// workspace. The name is re-sanitized so traversal attempts resolve to
// plain base names; missing files return ErrNotFound.
func (w *Workspace) Resolve(name string) (string, error) {
	stored := SanitizeFilename(name)
	if stored == "" {
		return "", fmt.Errorf("filename %q: %w", name, ErrNotFound)
	}
	path := filepath.Join(w.dir, stored)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", stored, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", stored, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", stored, ErrNotFound)
	}
	return path, nil
}

// BaseName strips the extension from a stored filename, yielding the base
// under which the .db and .txt pair is kept.
func BaseName(stored string) string {
	return strings.TrimSuffix(stored, filepath.Ext(stored))
}

// StorePath returns the relational-store path for a base name.
func (w *Workspace) StorePath(base string) string {
	return filepath.Join(w.dir, base+".db")
}

// MetadataPath returns the metadata-document path for a base name.
func (w *Workspace) MetadataPath(base string) string {
	return filepath.Join(w.dir, base+".txt")
}

// WriteMetadata persists a metadata document for a base name.
func (w *Workspace) WriteMetadata(base, document string) error {
	if err := os.WriteFile(w.MetadataPath(base), []byte(document), 0o644); err != nil {
		return fmt.Errorf("write metadata document: %w", err)
	}
	return nil
}

// ReadMetadata loads the metadata document for a base name, or ErrNotFound
// when no document exists.
func (w *Workspace) ReadMetadata(base string) (string, error) {
	data, err := os.ReadFile(w.MetadataPath(base))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s.txt: %w", base, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read metadata document: %w", err)
	}
	return string(data), nil
}
