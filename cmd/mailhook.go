package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/mail"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/mailer"
	"github.com/abhisek/learnloop/internal/metrics"
)

var mailhookCmd = &cobra.Command{
	Use:   "mailhook",
	Short: "Serve the module summary e-mail endpoint",
	Long:  "Serves POST " + mailer.SendPath + ". Mail goes through SendGrid when mail.sendgrid_api_key is set and is printed to stdout otherwise.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(cfg, false)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Mail.Addr
		}

		var sender mailer.Sender
		if cfg.Mail.SendgridAPIKey != "" {
			sender = mailer.NewSendgridSender(cfg.Mail.SendgridAPIKey, "", cfg.Mail.FromName, cfg.Mail.FromEmail)
		} else {
			sender = mailer.NewConsoleSender(cmd.OutOrStdout(), mail.Address{Name: cfg.Mail.FromName, Address: cfg.Mail.FromEmail})
			log.Warn("no SendGrid key configured; printing e-mails instead of sending them")
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           mailer.NewHandler(sender, log, metrics.New()).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return cmd.Context() },
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("mailhook listening", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve %s: %w", addr, err)
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	mailhookCmd.Flags().String("addr", "", "Listen address (default mail.addr)")
}
