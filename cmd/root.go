package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnloop/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "learnloop",
	Short: "Course player with an AI tutor",
	Long:  "LearnLoop is a terminal course player that tracks progress per module, grades quizzes and case studies, and e-mails a summary when a module is finished.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LEARNLOOP_DB and store.path)")
	rootCmd.PersistentFlags().String("config", "", "Path to a learnloop.yaml config file")

	rootCmd.Version = buildVersion()
	rootCmd.AddCommand(
		playCmd,
		progressCmd, resetCmd, syncCmd,
		statsCmd, skillsCmd, llmCmd,
		loginCmd, logoutCmd,
		mailhookCmd,
		versionCmd,
	)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured store path, then LEARNLOOP_DB or the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
