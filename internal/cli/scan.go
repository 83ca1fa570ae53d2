package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/sendersweep/internal/app"
	"github.com/lu-zhengda/sendersweep/internal/tui"
)

func newScanCmd() *cobra.Command {
	var (
		queryFlag    string
		maxFlag      int
		noCacheFlag  bool
		minScoreFlag float64
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the mailbox and rank senders",
		Long: "Fetch message headers, group them by sender and score each sender.\n" +
			"A cached scan for the same query is reused unless --no-cache is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()

			minScore, err := resolveMinScore(cmd, minScoreFlag, 0)
			if err != nil {
				return err
			}
			limit := e.cfg.Scan.MaxMessages
			if cmd.Flags().Changed("max-messages") {
				limit = maxFlag
			}

			stderr := cmd.ErrOrStderr()
			scanner := app.NewScanService(e.lazyProvider(stderr), e.db, e.engine, e.metrics, e.log)
			report, err := scanner.Scan(cmd.Context(), app.ScanOptions{
				Query:       queryFlag,
				MaxMessages: limit,
				UseCache:    !noCacheFlag,
			}, scanProgress(stderr))
			if err != nil {
				return err
			}

			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), toJSONScan(e.engine, report, minScore))
			}
			printScanReport(cmd.OutOrStdout(), e, report, minScore)
			return nil
		},
	}
	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Gmail search query (e.g. \"older_than:1y\")")
	cmd.Flags().IntVarP(&maxFlag, "max-messages", "m", 0, "maximum messages to scan (0 = no limit)")
	cmd.Flags().BoolVar(&noCacheFlag, "no-cache", false, "ignore cached scans and fetch fresh data")
	cmd.Flags().Float64Var(&minScoreFlag, "min-score", 0, "minimum score to display; never below the uncertain threshold")
	return cmd
}

func printScanReport(w io.Writer, e *env, report *app.ScanReport, minScore float64) {
	ranked := e.engine.RankScan(report.Result, minScore)
	fmt.Fprintln(w, tui.RenderScanSummary(report.Result, len(ranked), report.FromCache))
	if report.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d messages that could not be read.\n", report.Skipped)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.RenderSenders(e.engine, ranked))
}

// scanProgress draws a bar while metadata is fetched.
func scanProgress(w io.Writer) app.ScanProgress {
	var (
		bar    *tui.ProgressBar
		listed bool
	)
	return func(stage app.ScanStage, done, total int) {
		switch stage {
		case app.StageList:
			if !listed {
				fmt.Fprintln(w, "Listing messages...")
				listed = true
				return
			}
			fmt.Fprintf(w, "Found %d messages.\n", total)
		case app.StageFetch:
			if bar == nil {
				bar = tui.NewProgressBar(w, "Fetching")
			}
			bar.Update(done, total)
			if done == total {
				bar.Done()
			}
		}
	}
}
