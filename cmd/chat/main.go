// Package main provides an interactive terminal front end for the school
// records assistant, plus a student import command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyellow/school-records-go/internal/config"
)

type rootFlags struct {
	envFile  string
	dbPath   string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "school-chat",
		Short:         "Asistente de expedientes escolares en la terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Env file to load instead of ./.env")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides SCHOOL_DATABASE_PATH)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newImportCmd(flags))
	return cmd
}

// load reads the configuration and applies flag overrides.
func (f *rootFlags) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.envFile != "" {
		cfg, err = config.LoadFile(f.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.dbPath != "" {
		cfg.DatabasePath = f.dbPath
	}
	switch {
	case f.logLevel != "":
		cfg.LogLevel = f.logLevel
	case os.Getenv(config.EnvLogLevel) == "":
		// JSON logs share the terminal with the conversation.
		cfg.LogLevel = "warn"
	}
	return cfg, nil
}
