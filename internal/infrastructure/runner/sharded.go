package runner

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"LinkScanner/internal/domain"
	"LinkScanner/internal/engine"
	"LinkScanner/internal/pipeline"
	"LinkScanner/internal/ports"
)

// ShardedEngine partitions URLs by hash across independent shards, the way a
// distributed runner shuffles keys to workers. Each shard groups its own keys
// and probes them on its own worker pool.
type ShardedEngine struct {
	shards          int
	workersPerShard int
	logger          *slog.Logger
}

var _ engine.Engine = (*ShardedEngine)(nil)

// NewShardedEngine builds an engine with the given shard and per-shard worker counts.
func NewShardedEngine(shards, workersPerShard int, log *slog.Logger) *ShardedEngine {
	if shards <= 0 {
		shards = 1
	}
	if workersPerShard <= 0 {
		workersPerShard = 1
	}
	return &ShardedEngine{shards: shards, workersPerShard: workersPerShard, logger: log}
}

// Name identifies the engine inside the registry.
func (s *ShardedEngine) Name() string {
	return "sharded"
}

// ShardFor maps a URL onto one of n shards.
func ShardFor(url string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(url))
	return int(h.Sum32() % uint32(n))
}

// Execute routes extracted pairs to shards and gathers every shard's results.
func (s *ShardedEngine) Execute(ctx context.Context, g *pipeline.Graph, src ports.RecordSource) ([]domain.CheckResult, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("record source is not configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputs := make([]chan domain.KeyedReference, s.shards)
	outputs := make([][]domain.CheckResult, s.shards)
	var wg sync.WaitGroup
	for shard := range s.shards {
		inputs[shard] = make(chan domain.KeyedReference, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			outputs[shard] = s.runShard(ctx, shard, g, inputs[shard])
		}()
	}

	fetchErr := src.Fetch(ctx, func(rec domain.SourceRecord) error {
		for pair := range g.Extract(rec) {
			select {
			case inputs[ShardFor(pair.URL, s.shards)] <- pair:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if fetchErr != nil {
		cancel()
	}
	for _, in := range inputs {
		close(in)
	}
	wg.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch records: %w", fetchErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("check urls: %w", err)
	}

	var results []domain.CheckResult
	for _, out := range outputs {
		results = append(results, out...)
	}
	return results, nil
}

func (s *ShardedEngine) runShard(ctx context.Context, shard int, g *pipeline.Graph, in <-chan domain.KeyedReference) []domain.CheckResult {
	groups, err := pipeline.GroupStream(ctx, in)
	if err != nil {
		return nil
	}
	s.debug("shard grouped", "shard", shard, "urls", len(groups))

	results := make([]domain.CheckResult, len(groups))
	pool := NewWorkerPool(s.workersPerShard, len(groups))
	pool.Start(ctx)
	for i, group := range groups {
		if err := pool.Submit(func(ctx context.Context) {
			results[i] = g.Check(ctx, group)
		}); err != nil {
			break
		}
	}
	pool.Close()
	return results
}

func (s *ShardedEngine) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
