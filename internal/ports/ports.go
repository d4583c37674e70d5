package ports

import (
	"context"

	"LinkScanner/internal/domain"
)

// RecordSource streams answer records from the upstream dataset.
// Implementations call emit sequentially, once per record, and stop at the
// first emit error.
type RecordSource interface {
	Fetch(ctx context.Context, emit func(domain.SourceRecord) error) error
}

// ReportSink persists a finished report document under a file name.
// A write is all-or-nothing: readers never observe a partial document.
type ReportSink interface {
	Write(ctx context.Context, name string, payload []byte) error
	Location(name string) string
}

// ResultRepository archives the results of each run.
type ResultRepository interface {
	SaveRun(ctx context.Context, run domain.Run, results []domain.CheckResult) error
	RecentRuns(ctx context.Context, limit int) ([]domain.Run, error)
}

// Notifier streams failure digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
