package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"LinkScanner/internal/domain"
	"LinkScanner/internal/infrastructure/storage"
)

func newHistoryCommand(flags *rootFlags) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the history database",
		Long: `Lists recent runs from the history database. With --run, prints the
number of failed URLs per error kind for that run instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return errors.New("no history database configured (use --history-db or LINK_SCANNER_HISTORY_DB)")
			}

			repo, err := storage.OpenSQLite(cmd.Context(), cfg.History.Path)
			if err != nil {
				return err
			}
			defer repo.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			if runID != "" {
				counts, err := repo.FailureCounts(cmd.Context(), runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "KIND\tFAILED")
				for _, kind := range domain.ErrorKinds() {
					if n := counts[kind]; n > 0 {
						fmt.Fprintf(w, "%s\t%d\n", kind, n)
					}
				}
				return w.Flush()
			}

			runs, err := repo.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tURLS\tFAILED\tOUTPUT")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status, run.Total, run.Failures, run.Output)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the failure breakdown of one run")
	return cmd
}
