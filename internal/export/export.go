// Package export moves album files into the export and holding trees.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/llehouerou/crate/internal/rename"
)

// Permission modes applied to exported content.
const (
	DirMode  os.FileMode = 0o755
	FileMode os.FileMode = 0o777
)

// Exporter moves files into one destination directory.
type Exporter struct {
	dir   string
	bytes int64
	files int
}

// NewExporter creates the directory root/rel, with rel sanitized, and
// returns an Exporter moving files into it. root itself is used as is.
func NewExporter(root, rel string) (*Exporter, error) {
	dir := filepath.Join(root, rename.Sanitize(rel, true))
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Dir returns the destination directory.
func (e *Exporter) Dir() string { return e.dir }

// Bytes returns the total size of the files moved so far.
func (e *Exporter) Bytes() int64 { return e.bytes }

// Files returns the number of files moved so far.
func (e *Exporter) Files() int { return e.files }

// Export moves src into the destination directory under its sanitized base
// name and returns the new path.
func (e *Exporter) Export(ctx context.Context, src string) (string, error) {
	return e.ExportAs(ctx, src, filepath.Base(src))
}

// ExportAs moves src into the destination directory as name. The name is
// sanitized as a file name. An existing file with that name is replaced.
// The moved file is made readable, writable and executable by everyone.
func (e *Exporter) ExportAs(ctx context.Context, src, name string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	dst := filepath.Join(e.dir, rename.Sanitize(filepath.Base(name), false))
	if err := retryWithBackoff(ctx, "move "+filepath.Base(src), func() error {
		return moveFile(src, dst)
	}); err != nil {
		return "", err
	}
	if err := os.Chmod(dst, FileMode); err != nil {
		return dst, fmt.Errorf("chmod: %w", err)
	}

	e.bytes += info.Size()
	e.files++
	return dst, nil
}
