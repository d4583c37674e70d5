package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"LinkScanner/internal/app"
	"LinkScanner/internal/config"
	"LinkScanner/internal/logging"
	"LinkScanner/internal/pipeline"
)

type rootFlags struct {
	configPath string
	logLevel   string
	historyDB  string

	output           string
	numAnswers       int
	runner           string
	project          string
	region           string
	tempLocation     string
	numWorkers       int
	directNumWorkers int
	input            string
}

// NewRootCommand builds the linkscanner command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "linkscanner",
		Short: "Find broken links in top StackOverflow answers",
		Long: `Reads the highest-scored StackOverflow answers, extracts every outbound link,
probes each distinct URL once and writes two JSON reports ranked by the
summed score of the answers that cite the URL: all responses and failures.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, flags)
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&flags.configPath, "config", "", "YAML config file (default $LINK_SCANNER_CONFIG)")
	persistent.StringVar(&flags.logLevel, "log-level", defaults.Logging.Level, "log level: debug, info, warn, error")
	persistent.StringVar(&flags.historyDB, "history-db", "", "SQLite file archiving every run (default $LINK_SCANNER_HISTORY_DB)")

	f := cmd.Flags()
	f.StringVar(&flags.output, "output", "", "output prefix, local path or gs://bucket/path")
	f.IntVar(&flags.numAnswers, "num_answers", defaults.Source.NumAnswers, "number of top-scored answers to read")
	f.StringVar(&flags.runner, "runner", defaults.Runner.Name, "execution engine: direct or sharded")
	f.StringVar(&flags.project, "project", "", "Google Cloud project for the BigQuery job")
	f.StringVar(&flags.region, "region", "", "runner region")
	f.StringVar(&flags.tempLocation, "temp_location", "", "runner staging location")
	f.IntVar(&flags.numWorkers, "num_workers", defaults.Runner.NumWorkers, "shards used by the sharded runner")
	f.IntVar(&flags.directNumWorkers, "direct_num_workers", defaults.Runner.DirectNumWorkers, "concurrent probes in the direct runner")
	f.StringVar(&flags.input, "input", "", "read answers from a JSON-lines file instead of BigQuery")

	cmd.AddCommand(newHistoryCommand(flags))
	return cmd
}

func runScan(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level)
	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()

	summary, err := application.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, branch := range []string{pipeline.BranchAll, pipeline.BranchFailures} {
		fmt.Fprintf(out, "%s: %s\n", branch, summary.Files[branch])
	}
	fmt.Fprintf(out, "checked %d urls, %d failed\n", summary.Run.Total, summary.Run.Failures)
	return nil
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if changed("history-db") {
		cfg.History.Path = flags.historyDB
	}
	if changed("output") {
		cfg.Output.Prefix = flags.output
	}
	if changed("num_answers") {
		cfg.Source.NumAnswers = flags.numAnswers
	}
	if changed("runner") {
		cfg.Runner.Name = flags.runner
	}
	if changed("project") {
		cfg.Source.Project = flags.project
	}
	if changed("region") {
		cfg.Runner.Region = flags.region
	}
	if changed("temp_location") {
		cfg.Runner.TempLocation = flags.tempLocation
	}
	if changed("num_workers") {
		cfg.Runner.NumWorkers = flags.numWorkers
	}
	if changed("direct_num_workers") {
		cfg.Runner.DirectNumWorkers = flags.directNumWorkers
	}
	if changed("input") {
		cfg.Source.Input = flags.input
	}
	return cfg, nil
}
