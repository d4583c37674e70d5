package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"LinkScanner/internal/ports"
)

// LocalSink writes reports to the local filesystem.
type LocalSink struct{}

var _ ports.ReportSink = (*LocalSink)(nil)

// NewLocalSink builds a filesystem sink.
func NewLocalSink() *LocalSink {
	return &LocalSink{}
}

// Write stores payload at name via a temp file and rename, so the final path
// either holds the whole document or does not exist.
func (s *LocalSink) Write(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("rename to %s: %w", name, err)
	}
	return nil
}

// Location returns the absolute path when it can be resolved.
func (s *LocalSink) Location(name string) string {
	if abs, err := filepath.Abs(name); err == nil {
		return abs
	}
	return name
}
