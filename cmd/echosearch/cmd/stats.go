package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := a.store.EntryCount(cmd.Context())
			if err != nil {
				return err
			}

			var dbSize int64
			if info, err := os.Stat(a.cfg.StorePath()); err == nil {
				dbSize = info.Size()
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"entries":         count,
					"data_dir":        a.cfg.Store.DataDir,
					"lexical_backend": a.cfg.Store.LexicalBackend,
					"db_size_bytes":   dbSize,
				})
			}

			fmt.Printf("Entries:         %d\n", count)
			fmt.Printf("Data dir:        %s\n", a.cfg.Store.DataDir)
			fmt.Printf("Lexical backend: %s\n", a.cfg.Store.LexicalBackend)
			fmt.Printf("Database size:   %.1f KB\n", float64(dbSize)/1024)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit stats as JSON")
	return cmd
}
