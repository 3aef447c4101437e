// Package cmd provides the CLI commands for echosearch.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/reverb-labs/echosearch/internal/config"
	"github.com/reverb-labs/echosearch/internal/logging"
	"github.com/reverb-labs/echosearch/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the echosearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echosearch",
		Short: "Hybrid retrieval engine over agent memory entries",
		Long: `echosearch ranks and retrieves echo entries: query decomposition,
multi-facet lexical search, frequency/proximity score fusion, retry
re-injection, and optional semantic reranking.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("echosearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.FilePath != "" {
		logCfg.FilePath = cfg.Logging.FilePath
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
