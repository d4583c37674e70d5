package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	"LinkScanner/internal/checker"
	"LinkScanner/internal/config"
	"LinkScanner/internal/engine"
	"LinkScanner/internal/extractor"
	"LinkScanner/internal/infrastructure/bigquery"
	"LinkScanner/internal/infrastructure/filesource"
	"LinkScanner/internal/infrastructure/gcp"
	"LinkScanner/internal/infrastructure/runner"
	"LinkScanner/internal/infrastructure/sink"
	"LinkScanner/internal/infrastructure/storage"
	"LinkScanner/internal/infrastructure/telegram"
	"LinkScanner/internal/logging"
	"LinkScanner/internal/pipeline"
	"LinkScanner/internal/ports"
	"LinkScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	linkCheck *usecase.LinkCheck
	closers   []func() error
}

// New validates cfg and builds every adapter the run needs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) wire(ctx context.Context) error {
	cfg := a.cfg
	log := a.logger

	ex, err := extractor.New(extractor.Options{
		Mode:                  extractor.Mode(cfg.Extractor.Mode),
		ExcludedDomain:        cfg.Extractor.ExcludedDomain,
		PermalinkFormat:       cfg.Extractor.PermalinkFormat,
		CaseInsensitiveScheme: cfg.Extractor.CaseInsensitiveScheme,
	}, log.With("component", "extractor"))
	if err != nil {
		return fmt.Errorf("build extractor: %w", err)
	}

	probe := checker.New(checker.Options{
		ConnectTimeout:       cfg.Checker.ConnectTimeout,
		ReadTimeout:          cfg.Checker.ReadTimeout,
		UserAgent:            cfg.Checker.UserAgent,
		FollowRedirects:      cfg.Checker.FollowRedirects,
		MaxRequestsPerSecond: cfg.Checker.MaxRequestsPerSecond,
	}, log.With("component", "checker"))

	registry := engine.NewRegistry()
	registry.Register(runner.NewDirectEngine(cfg.Runner.DirectNumWorkers, log.With("component", "engine.direct")))
	registry.Register(runner.NewShardedEngine(cfg.Runner.NumWorkers, cfg.Runner.WorkersPerShard, log.With("component", "engine.sharded")))

	eng, err := registry.Resolve(cfg.Runner.Name)
	if err != nil {
		return err
	}
	if cfg.Runner.Region != "" || cfg.Runner.TempLocation != "" {
		log.Info("runner placement settings have no effect on in-process engines",
			"region", cfg.Runner.Region, "temp_location", cfg.Runner.TempLocation)
	}

	creds := &lazyCredentials{}

	source, err := a.buildSource(ctx, creds)
	if err != nil {
		return err
	}

	var sinkOpts []option.ClientOption
	if sink.IsGCS(cfg.Output.Prefix) {
		sinkOpts, err = creds.options(ctx)
		if err != nil {
			return err
		}
	}
	out, prefix, err := sink.Open(ctx, cfg.Output.Prefix, sinkOpts...)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	var repo ports.ResultRepository
	if cfg.History.Path != "" {
		sqlite, err := storage.OpenSQLite(ctx, cfg.History.Path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqlite.Close)
		repo = sqlite
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a.linkCheck = usecase.NewLinkCheck(usecase.LinkCheckDeps{
		Engine:     eng,
		Graph:      pipeline.NewGraph(ex.Extract, probe.Check),
		Source:     source,
		Sink:       out,
		Prefix:     prefix,
		Repository: repo,
		Notifier:   notifier,
		DigestSize: cfg.Notifications.Telegram.TopN,
		Logger:     log.With("component", "linkcheck"),
	})
	return nil
}

func (a *Application) buildSource(ctx context.Context, creds *lazyCredentials) (ports.RecordSource, error) {
	cfg := a.cfg.Source
	if cfg.Input != "" {
		return filesource.NewSource(cfg.Input, cfg.NumAnswers, a.logger.With("component", "source.file")), nil
	}

	opts, err := creds.options(ctx)
	if err != nil {
		return nil, err
	}
	project := cfg.Project
	if project == "" {
		project = creds.projectID
	}
	if project == "" {
		return nil, errors.New("no project configured and none found in the default credentials")
	}

	svc, err := bq.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return bigquery.NewSource(svc, bigquery.Options{
		Project:  project,
		Location: cfg.Location,
		PageSize: cfg.PageSize,
		Query: bigquery.QueryOptions{
			AnswersTable:   cfg.AnswersTable,
			QuestionsTable: cfg.QuestionsTable,
			Limit:          cfg.NumAnswers,
		},
	}, a.logger.With("component", "source.bigquery"))
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (usecase.Summary, error) {
	if a.linkCheck == nil {
		return usecase.Summary{}, errors.New("application is not initialised")
	}
	return a.linkCheck.Run(ctx, time.Now())
}

// Close releases adapters that hold resources.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// lazyCredentials resolves Application Default Credentials on first use, so
// runs that only touch local files never need them.
type lazyCredentials struct {
	resolved  bool
	opts      []option.ClientOption
	projectID string
}

func (l *lazyCredentials) options(ctx context.Context) ([]option.ClientOption, error) {
	if l.resolved {
		return l.opts, nil
	}
	opts, project, err := gcp.ClientOptions(ctx, gcp.ScopeBigQuery, gcp.ScopeStorageWrite)
	if err != nil {
		return nil, err
	}
	l.opts, l.projectID, l.resolved = opts, project, true
	return opts, nil
}
