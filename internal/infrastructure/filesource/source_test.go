package filesource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LinkScanner/internal/domain"
)

const sample = `{"question_title":"low","body":"<a href=\"https://example.com/low\">l</a>","score":1,"answer_id":1}

{"question_title":"no links","body":"plain text","score":500,"answer_id":2}
{"question_title":"high","body":"<a href=\"https://example.com/high\">h</a>","score":90,"answer_id":3}
{"question_title":"mid","body":"<a href=\"https://example.com/mid\">m</a>","score":40,"answer_id":4}
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, src *Source) ([]domain.SourceRecord, error) {
	t.Helper()
	var got []domain.SourceRecord
	err := src.Fetch(context.Background(), func(rec domain.SourceRecord) error {
		got = append(got, rec)
		return nil
	})
	return got, err
}

func TestFetchFiltersSortsAndLimits(t *testing.T) {
	t.Parallel()

	got, err := collect(t, NewSource(writeFile(t, sample), 2, nil))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].Title)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, "mid", got[1].Title)
}

func TestFetchWithoutLimit(t *testing.T) {
	t.Parallel()

	got, err := collect(t, NewSource(writeFile(t, sample), 0, nil))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFetchStopsOnEmitError(t *testing.T) {
	t.Parallel()

	stop := errors.New("stop")
	calls := 0
	err := NewSource(writeFile(t, sample), 0, nil).Fetch(context.Background(), func(domain.SourceRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestFetchMissingFile(t *testing.T) {
	t.Parallel()

	_, err := collect(t, NewSource(filepath.Join(t.TempDir(), "nope.jsonl"), 10, nil))
	assert.Error(t, err)
}

func TestReadReportsBadLine(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader("{\"answer_id\":1}\n{broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
