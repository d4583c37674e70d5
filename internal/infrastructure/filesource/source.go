package filesource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"LinkScanner/internal/domain"
	"LinkScanner/internal/ports"
)

const maxLineSize = 16 * 1024 * 1024

// Source reads answers from a JSON-lines export, one record per line, and
// applies the same filter, order and limit as the dataset query.
type Source struct {
	path   string
	limit  int
	logger *slog.Logger
}

var _ ports.RecordSource = (*Source)(nil)

// NewSource builds a file-backed record source; limit <= 0 means no limit.
func NewSource(path string, limit int, log *slog.Logger) *Source {
	return &Source{path: path, limit: limit, logger: log}
}

// Fetch emits the top records by score that contain an anchor tag.
func (s *Source) Fetch(ctx context.Context, emit func(domain.SourceRecord) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	records = slices.DeleteFunc(records, func(r domain.SourceRecord) bool {
		return !strings.Contains(r.Body, "<a href=")
	})
	slices.SortStableFunc(records, func(a, b domain.SourceRecord) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if s.limit > 0 && len(records) > s.limit {
		records = records[:s.limit]
	}

	if s.logger != nil {
		s.logger.Debug("file source loaded", "path", s.path, "records", len(records))
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes JSON-lines records, skipping blank lines.
func Read(r io.Reader) ([]domain.SourceRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []domain.SourceRecord
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec domain.SourceRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return records, nil
}
