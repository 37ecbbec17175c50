// Package commands defines the bookcatalog command line interface.
package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bookcatalog/internal/config"
)

var configPath string

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookcatalog",
		Short:         "Book catalog service with read-through caching and search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newInitSearchCmd())
	return root
}

// loadConfig reads the configuration and applies the log level before any
// command runs.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{})
	return cfg, nil
}
