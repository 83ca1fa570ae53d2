package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/sendersweep/internal/export"
	"github.com/lu-zhengda/sendersweep/internal/store"
)

func newExportCmd() *cobra.Command {
	var (
		formatFlag   string
		outputFlag   string
		minScoreFlag float64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export ranked senders from the latest scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()

			minScore, err := resolveMinScore(cmd, minScoreFlag, 0)
			if err != nil {
				return err
			}

			scan, err := e.db.LoadLatestScan(cmd.Context())
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w; run 'sendersweep scan' first", err)
			}
			if err != nil {
				return fmt.Errorf("failed to load scan: %w", err)
			}

			rows := export.Rows(e.engine, scan, minScore)
			f, err := os.Create(outputFlag)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outputFlag, err)
			}
			if err := export.Write(f, format, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputFlag, err)
			}

			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), jsonAction{OK: true, Action: "export", Path: outputFlag, Count: len(rows)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d senders to %s\n", len(rows), outputFlag)
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "csv", "output format (csv, json, yaml)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "output file path")
	cmd.Flags().Float64Var(&minScoreFlag, "min-score", 0, "minimum score to export; never below the uncertain threshold")
	cmd.MarkFlagRequired("output")
	return cmd
}
