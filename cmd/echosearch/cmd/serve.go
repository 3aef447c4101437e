package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reverb-labs/echosearch/internal/maintain"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run maintenance in the foreground",
		Long: `Serve runs scheduled store pruning and, when a watch path is
configured, watches the JSONL export and reindexes on change. It blocks
until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.maintain.StartSchedule(ctx, a.cfg.Maintenance.Schedule); err != nil {
				return err
			}
			defer a.maintain.StopSchedule()

			if path := a.cfg.Maintenance.WatchPath; path != "" {
				w, err := maintain.NewWatcher(path, func() {
					if _, err := a.maintain.ReindexFromJSONL(ctx, path); err != nil {
						slog.Error("watch_reindex_failed",
							slog.String("path", path),
							slog.String("error", err.Error()))
					}
				})
				if err != nil {
					return err
				}
				defer func() { _ = w.Close() }()
				go w.Run(ctx)
				slog.Info("watching_entries", slog.String("path", path))
			}

			fmt.Println("echosearch maintenance running; Ctrl-C to stop")
			<-ctx.Done()
			return nil
		},
	}
	return cmd
}
