package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/bondowe/translationsplus/internal/diff"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

type (
	// Domain names one catalog file: the site code catalog or one plugin
	// translation file for the current locale.
	Domain struct {
		Name string
		Path string
	}

	// WriteStatus describes what Write did with a domain.
	WriteStatus int

	// WriteResult reports the outcome of writing one domain.
	WriteResult struct {
		Domain Domain
		Status WriteStatus
		// Entries is the number of entries in the written catalog.
		Entries int
		// Diff is the unified patch of a dry run.
		Diff string
	}

	// Writer persists merged catalogs.
	Writer struct {
		// DryRun returns a unified diff in WriteResult.Diff instead of
		// touching the disk.
		DryRun bool
		// MaxDiffBytes omits dry-run diffs of larger files. 0 means no limit.
		MaxDiffBytes int
		Logger       *slog.Logger
	}
)

const (
	// StatusWritten means the file was created or replaced.
	StatusWritten WriteStatus = iota
	// StatusUnchanged means the file already held the same content.
	StatusUnchanged
	// StatusSkippedEmpty means the catalog was empty and no file existed.
	StatusSkippedEmpty
	// StatusDryRun means the change was only printed.
	StatusDryRun
)

// String returns the status as printed in summaries and metric labels.
func (s WriteStatus) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusUnchanged:
		return "unchanged"
	case StatusSkippedEmpty:
		return "skipped-empty"
	case StatusDryRun:
		return "dry-run"
	default:
		return "unknown"
	}
}

// Load reads the catalog at path. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Catalog{}, nil
		}
		return nil, fmt.Errorf("error reading catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing catalog %s: %w", path, err)
	}
	return c, nil
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// Write serializes c to the domain path atomically.
func (w *Writer) Write(ctx context.Context, d Domain, c *Catalog) (WriteResult, error) {
	res := WriteResult{Domain: d, Entries: c.Len()}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	old, err := os.ReadFile(d.Path)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return res, fmt.Errorf("error reading %s: %w", d.Path, err)
	}

	if c.Len() == 0 && !exists {
		res.Status = StatusSkippedEmpty
		return res, nil
	}

	data := Marshal(c)
	if exists && sameContent(old, data, w.logger(), d) {
		res.Status = StatusUnchanged
		return res, nil
	}

	if w.DryRun {
		from := d.Path
		if !exists {
			from = "/dev/null"
		}
		patch, omitted := diff.Unified(from, d.Path, old, data, diff.Options{MaxBytes: w.MaxDiffBytes})
		if omitted {
			w.logger().Debug("diff omitted", "domain", d.Name, "path", d.Path, "bytes", len(old)+len(data))
		}
		res.Diff = patch
		res.Status = StatusDryRun
		return res, nil
	}

	if err := WriteFileAtomic(d.Path, data); err != nil {
		return res, err
	}
	res.Status = StatusWritten
	return res, nil
}

// sameContent reports whether old and data decode to the same JSON document.
// Key order is not significant here: Merge preserves on-disk order, so equal
// documents only differ in formatting.
func sameContent(old, data []byte, logger *slog.Logger, d Domain) bool {
	if bytes.Equal(old, data) {
		return true
	}
	patch, err := jsonpatch.CreateMergePatch(old, data)
	if err != nil {
		return false
	}
	if string(bytes.TrimSpace(patch)) == "{}" {
		return true
	}
	logger.Debug("catalog changes", "domain", d.Name, "path", d.Path, "mergePatch", string(patch))
	return false
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partially written catalog.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("error creating temp file in %s: %w", dir, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("error syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp, filePerm); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error renaming %s: %w", path, err)
	}
	return nil
}
