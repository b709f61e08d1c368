package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileWriter publishes the dataset as a CSV file. The file is replaced by
// rename, so readers see either the previous snapshot or the new one.
type FileWriter struct {
	Path string
}

// NewFileWriter creates a file publisher for path
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{Path: path}
}

// Name identifies the publisher in logs and metrics
func (f *FileWriter) Name() string {
	return "file"
}

// Publish writes the CSV next to the target and renames it into place
func (f *FileWriter) Publish(ctx context.Context, ds *Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := ds.WriteCSV(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close dataset: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set dataset permissions: %w", err)
	}

	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.Path, err)
	}

	log.Info().
		Str("path", f.Path).
		Int("rows", len(ds.Rows)).
		Msg("Dataset written")
	return nil
}
