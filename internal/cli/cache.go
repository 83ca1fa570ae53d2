package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lu-zhengda/sendersweep/internal/store"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached scans",
	}
	cmd.AddCommand(newCacheInfoCmd())
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location and contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()

			info, err := e.db.Info(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read cache info: %w", err)
			}
			log := e.auditLog()
			entries, err := log.Entries()
			if err != nil {
				return fmt.Errorf("failed to read trash log: %w", err)
			}

			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), toJSONCacheInfo(info, log.Path(), len(entries)))
			}
			printCacheInfo(cmd.OutOrStdout(), info, log.Path(), len(entries))
			return nil
		},
	}
}

func printCacheInfo(w io.Writer, info *store.Info, auditPath string, records int) {
	fmt.Fprintf(w, "Database:  %s (%s)\n", info.Path, humanize.Bytes(uint64(max(info.SizeBytes, 0))))
	fmt.Fprintf(w, "Scans:     %s\n", humanize.Comma(int64(info.Scans)))
	if info.Scans > 0 {
		query := info.LastQuery
		if query == "" {
			query = "(all mail)"
		}
		fmt.Fprintf(w, "Last scan: %s, query %s\n", humanize.Time(info.LastScan), query)
		fmt.Fprintf(w, "Latest:    %s senders, %s messages\n", humanize.Comma(int64(info.Senders)), humanize.Comma(int64(info.Messages)))
	}
	fmt.Fprintf(w, "Trash log: %s (%d operations)\n", auditPath, records)
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.db.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), jsonAction{OK: true, Action: "cache_clear"})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}
}
