package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/app"
	"github.com/abhisek/learnloop/internal/config"
	"github.com/abhisek/learnloop/internal/logging"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the command logger. The TUI owns the terminal, so it
// only logs to the configured file.
func newLogger(cfg *config.Config, tui bool) (*zap.Logger, error) {
	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}
	if !tui {
		opts.Console = logging.Stderr()
		if opts.Level == "" {
			opts.Level = "warn"
		}
	}
	log, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// openServices loads configuration, resolves the database and opens every
// service. Callers must Close the result.
func openServices(cmd *cobra.Command, tui bool) (*app.Services, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, tui)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := app.Open(cmd.Context(), app.Options{
		Config: cfg,
		DBPath: dbPath,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// requireUser fails when no session is signed in.
func requireUser(s *app.Services) error {
	if s.Progress.UserID() == "" {
		return fmt.Errorf("not signed in: run `learnloop login --token <jwt>` first")
	}
	return nil
}
