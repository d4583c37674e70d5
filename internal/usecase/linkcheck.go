package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"LinkScanner/internal/domain"
	"LinkScanner/internal/engine"
	"LinkScanner/internal/pipeline"
	"LinkScanner/internal/ports"
	"LinkScanner/internal/report"
)

// TimestampLayout stamps every output file of one run.
const TimestampLayout = "2006-01-02T15:04:05"

const defaultDigestSize = 10

// OutputName builds the single-shard file name for one branch.
func OutputName(prefix, timestamp, branch string) string {
	return fmt.Sprintf("%s-%s-%s-00000-of-00001.json", prefix, timestamp, branch)
}

// LinkCheckDeps wires all driven adapters into the link-check use case.
type LinkCheckDeps struct {
	Engine engine.Engine
	Graph  *pipeline.Graph
	Source ports.RecordSource
	Sink   ports.ReportSink
	// Prefix is the sink-relative name prefix of the output files.
	Prefix string

	Repository ports.ResultRepository
	Notifier   ports.Notifier
	DigestSize int

	Logger   *slog.Logger
	NewRunID func() string
}

// LinkCheck runs the graph once and writes both ranked reports.
type LinkCheck struct {
	engine     engine.Engine
	graph      *pipeline.Graph
	source     ports.RecordSource
	sink       ports.ReportSink
	prefix     string
	repository ports.ResultRepository
	notifier   ports.Notifier
	digestSize int
	logger     *slog.Logger
	newRunID   func() string
}

// Summary describes a finished run.
type Summary struct {
	Run   domain.Run
	Files map[string]string
}

// NewLinkCheck constructs the orchestration component.
func NewLinkCheck(deps LinkCheckDeps) *LinkCheck {
	l := &LinkCheck{
		engine:     deps.Engine,
		graph:      deps.Graph,
		source:     deps.Source,
		sink:       deps.Sink,
		prefix:     deps.Prefix,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		digestSize: deps.DigestSize,
		logger:     deps.Logger,
		newRunID:   deps.NewRunID,
	}
	if l.digestSize <= 0 {
		l.digestSize = defaultDigestSize
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if l.newRunID == nil {
		l.newRunID = uuid.NewString
	}
	return l
}

// Run executes the pipeline stamped with now. Nothing is written when the
// engine fails or the context is canceled.
func (l *LinkCheck) Run(ctx context.Context, now time.Time) (Summary, error) {
	if l.engine == nil || l.graph == nil || l.source == nil || l.sink == nil {
		return Summary{}, errors.New("link check is not fully wired")
	}

	timestamp := now.Format(TimestampLayout)
	run := domain.Run{
		ID:        l.newRunID(),
		StartedAt: now,
		Output:    l.prefix,
		Status:    domain.RunStarted,
	}
	log := l.logger.With("run_id", run.ID, "engine", l.engine.Name())
	log.Info("run started", "timestamp", timestamp)

	results, err := l.engine.Execute(ctx, l.graph, l.source)
	if err != nil {
		return Summary{}, fmt.Errorf("execute %s engine: %w", l.engine.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	run.Status = domain.RunChecked

	outputs := l.graph.Finish(results)
	payloads := make([][]byte, len(outputs))
	for i, out := range outputs {
		payloads[i], err = report.Encode(out.Results)
		if err != nil {
			return Summary{}, fmt.Errorf("encode %s: %w", out.Branch, err)
		}
	}

	summary := Summary{Files: make(map[string]string, len(outputs))}
	var all, failures []domain.CheckResult
	for i, out := range outputs {
		name := OutputName(l.prefix, timestamp, out.Branch)
		if err := l.sink.Write(ctx, name, payloads[i]); err != nil {
			return Summary{}, fmt.Errorf("write %s: %w", out.Branch, err)
		}
		location := l.sink.Location(name)
		summary.Files[out.Branch] = location
		log.Info("report written", "branch", out.Branch, "results", len(out.Results), "location", location)

		switch out.Branch {
		case pipeline.BranchAll:
			all = out.Results
		case pipeline.BranchFailures:
			failures = out.Results
		}
	}

	run.Total = len(all)
	run.Failures = len(failures)
	run.Status = domain.RunWritten

	if l.notifier != nil && len(failures) > 0 {
		if err := l.notifier.PublishDigest(ctx, buildDigestMessage(run, failures, l.digestSize)); err != nil {
			log.Warn("publish digest failed", "error", err)
		} else {
			run.Status = domain.RunNotified
		}
	}

	if l.repository != nil {
		if err := l.repository.SaveRun(ctx, run, all); err != nil {
			log.Warn("save run history failed", "error", err)
		}
	}

	log.Info("run finished", "total", run.Total, "failures", run.Failures)
	summary.Run = run
	return summary, nil
}

func buildDigestMessage(run domain.Run, failures []domain.CheckResult, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d links broken (run %s, %s)\n",
		run.Failures, run.Total, run.ID, run.StartedAt.Format(TimestampLayout))

	for i, res := range failures {
		if i == limit {
			fmt.Fprintf(&b, "\n... and %d more", len(failures)-limit)
			break
		}

		reason := "unknown"
		if res.ErrorKind != nil {
			reason = string(*res.ErrorKind)
		}
		if res.Status != nil {
			reason = fmt.Sprintf("%s %d", reason, *res.Status)
		}
		fmt.Fprintf(&b, "\n%d. %s\n   %s, %d answers, score %d\n",
			i+1, res.URL, reason, res.ReferenceCount(), res.ScoreSum())
	}

	return b.String()
}
