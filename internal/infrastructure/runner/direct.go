package runner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"LinkScanner/internal/domain"
	"LinkScanner/internal/engine"
	"LinkScanner/internal/pipeline"
	"LinkScanner/internal/ports"
)

// DefaultWorkers bounds concurrent extraction and probing when unset.
const DefaultWorkers = 16

// DirectEngine runs the graph in-process with one bounded worker group per stage.
type DirectEngine struct {
	workers int
	logger  *slog.Logger
}

var _ engine.Engine = (*DirectEngine)(nil)

// NewDirectEngine builds a local engine with the given concurrency bound.
func NewDirectEngine(workers int, log *slog.Logger) *DirectEngine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &DirectEngine{workers: workers, logger: log}
}

// Name identifies the engine inside the registry.
func (d *DirectEngine) Name() string {
	return "direct"
}

// Execute extracts and groups every record, then probes each group once.
func (d *DirectEngine) Execute(ctx context.Context, g *pipeline.Graph, src ports.RecordSource) ([]domain.CheckResult, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("record source is not configured")
	}

	groups, records, err := d.extractAndGroup(ctx, g, src)
	if err != nil {
		return nil, err
	}
	d.debug("grouped", "records", records, "urls", len(groups))

	results := make([]domain.CheckResult, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.workers)
	for i, group := range groups {
		eg.Go(func() error {
			results[i] = g.Check(egCtx, group)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("check urls: %w", err)
	}
	d.debug("checked", "results", len(results))
	return results, nil
}

func (d *DirectEngine) extractAndGroup(ctx context.Context, g *pipeline.Graph, src ports.RecordSource) ([]domain.URLGroup, int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pairs := make(chan domain.KeyedReference, d.workers*4)
	type grouped struct {
		groups []domain.URLGroup
		err    error
	}
	done := make(chan grouped, 1)
	go func() {
		groups, err := pipeline.GroupStream(ctx, pairs)
		done <- grouped{groups: groups, err: err}
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.workers)
	records := 0
	fetchErr := src.Fetch(egCtx, func(rec domain.SourceRecord) error {
		records++
		eg.Go(func() error {
			for pair := range g.Extract(rec) {
				select {
				case pairs <- pair:
				case <-egCtx.Done():
					return egCtx.Err()
				}
			}
			return nil
		})
		return egCtx.Err()
	})
	extractErr := eg.Wait()
	if fetchErr != nil {
		cancel()
	}
	close(pairs)
	res := <-done

	switch {
	case fetchErr != nil:
		return nil, records, fmt.Errorf("fetch records: %w", fetchErr)
	case extractErr != nil:
		return nil, records, fmt.Errorf("extract urls: %w", extractErr)
	case res.err != nil:
		return nil, records, fmt.Errorf("group urls: %w", res.err)
	}
	return res.groups, records, nil
}

func (d *DirectEngine) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
