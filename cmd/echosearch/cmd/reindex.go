package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <entries.jsonl>",
		Short: "Rebuild the store and lexical index from a JSONL export",
		Long: `Reindex replaces the entry set wholesale from a JSONL file (one echo
entry per line) and rebuilds the lexical index. Aged access log rows and
expired failure records are pruned in the same run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.maintain.ReindexFromJSONL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d entries in %s (pruned %d aged + %d orphaned access rows, %d aged failures)\n",
				stats.Entries, stats.Elapsed.Round(time.Millisecond),
				stats.AgedAccess, stats.OrphanAccess, stats.AgedFailures)
			return nil
		},
	}
	return cmd
}
