package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/sendersweep/internal/app"
	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
	"github.com/lu-zhengda/sendersweep/internal/store"
	"github.com/lu-zhengda/sendersweep/internal/tui"
)

func newCleanCmd() *cobra.Command {
	var (
		executeFlag  bool
		minScoreFlag float64
		tuiFlag      bool
		queryFlag    string
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Select senders and move their mail to the trash",
		Long: "Pick senders from the latest scan and move their messages to the trash.\n" +
			"Without --execute nothing is changed; the run only reports what would be trashed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()

			minScore, err := resolveMinScore(cmd, minScoreFlag, e.cfg.Clean.MinScore)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			stderr := cmd.ErrOrStderr()
			mail := e.lazyProvider(stderr)
			scanner := app.NewScanService(mail, e.db, e.engine, e.metrics, e.log)

			scan, err := scanner.Latest(ctx)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(stderr, "No cached scan found, scanning first.")
				report, scanErr := scanner.Scan(ctx, app.ScanOptions{
					Query:       queryFlag,
					MaxMessages: e.cfg.Scan.MaxMessages,
				}, scanProgress(stderr))
				if scanErr != nil {
					return scanErr
				}
				scan, err = report.Result, nil
			}
			if err != nil {
				return err
			}

			cleaner := app.NewCleanService(e.engine, e.db, mail, e.auditLog(), app.CleanConfig{
				BatchSize:    e.cfg.Clean.TrashBatchSize,
				ConfirmToken: e.cfg.Clean.ConfirmToken,
			}, e.metrics, e.log)

			// Prompts go to stderr when stdout carries JSON.
			promptOut := cmd.OutOrStdout()
			if jsonFlag {
				promptOut = stderr
			}
			line := newLinePrompter(cmd.InOrStdin(), promptOut, e.engine)
			var prompt app.Prompter = line
			if tuiFlag {
				prompt = &pickerPrompter{linePrompter: line}
			}

			bar := tui.NewProgressBar(stderr, "Trashing")
			drawn := false
			summary, runErr := cleaner.Run(ctx, scan, app.CleanOptions{
				MinScore: minScore,
				Execute:  executeFlag,
				Progress: func(done, total int) {
					drawn = true
					bar.Update(done, total)
				},
			}, prompt)
			if drawn {
				bar.Done()
			}
			if runErr != nil && summary.Outcome != app.OutcomeInvalid {
				if summary.Trashed > 0 {
					fmt.Fprintf(stderr, "Trashed %d of %d messages before the error.\n", summary.Trashed, summary.TotalMessages)
				}
				return runErr
			}

			if jsonFlag {
				if err := fprintJSON(cmd.OutOrStdout(), toJSONCleanSummary(summary, executeFlag)); err != nil {
					return err
				}
				return runErr
			}
			printCleanSummary(cmd.OutOrStdout(), summary)
			return runErr
		},
	}
	cmd.Flags().BoolVar(&executeFlag, "execute", false, "actually move messages to the trash")
	cmd.Flags().Float64Var(&minScoreFlag, "min-score", 0, "minimum score to offer a sender (default from config)")
	cmd.Flags().BoolVar(&tuiFlag, "tui", false, "pick senders in an interactive list")
	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Gmail search query used when no scan is cached")
	return cmd
}

func printCleanSummary(w io.Writer, s app.CleanSummary) {
	switch s.Outcome {
	case app.OutcomeEmpty:
		fmt.Fprintln(w, "Nothing to clean up.")
	case app.OutcomeCancelled:
		fmt.Fprintln(w, "Cancelled.")
	case app.OutcomeInvalid:
		fmt.Fprintln(w, "Nothing was changed.")
	case app.OutcomeAborted:
		fmt.Fprintln(w, "Confirmation did not match. Nothing was changed.")
	case app.OutcomeDryRun:
		fmt.Fprintf(w, "Dry run: %d messages from %d senders would be trashed.\n", s.TotalMessages, s.SelectedSenders)
		fmt.Fprintln(w, "Re-run with --execute to trash them.")
	case app.OutcomeSuccess:
		fmt.Fprintf(w, "Trashed %d messages from %d senders.\n", s.Trashed, s.SelectedSenders)
	}
}

// linePrompter asks for the selection and confirmation on a terminal line.
type linePrompter struct {
	in     *bufio.Reader
	out    io.Writer
	engine *scoring.Engine
}

func newLinePrompter(in io.Reader, out io.Writer, engine *scoring.Engine) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out, engine: engine}
}

func (p *linePrompter) SelectSenders(ctx context.Context, candidates []domain.SenderProfile) (string, error) {
	fmt.Fprintln(p.out, tui.RenderSenders(p.engine, candidates))
	fmt.Fprint(p.out, "Select senders (e.g. 1,3,5), 'all', or 'q' to quit: ")
	return p.readLine(ctx)
}

func (p *linePrompter) Confirm(ctx context.Context, plan app.Plan, token string) (string, error) {
	fmt.Fprintln(p.out, tui.RenderPlan(plan.Senders, len(plan.MessageIDs), false, token))
	fmt.Fprint(p.out, "> ")
	return p.readLine(ctx)
}

// readLine returns one line without its terminator. EOF ends the input
// like an empty answer.
func (p *linePrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// pickerPrompter selects senders in the interactive list and confirms on
// the terminal line.
type pickerPrompter struct {
	*linePrompter
}

func (p *pickerPrompter) SelectSenders(ctx context.Context, candidates []domain.SenderProfile) (string, error) {
	return tui.PickSenders(ctx, p.engine, candidates)
}
