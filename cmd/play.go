package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Open the course player",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

func runPlay(cmd *cobra.Command) error {
	s, err := openServices(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = s.Config.Metrics.Addr
	}
	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: s.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	return app.Run(cmd.Context(), s)
}

func init() {
	playCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while playing")
	rootCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while playing")
}
