package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an identity token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = os.Getenv("LEARNLOOP_TOKEN")
		}
		if token == "" {
			return fmt.Errorf("a token is required (--token or LEARNLOOP_TOKEN)")
		}

		s, err := openServices(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		sess, err := s.Login(cmd.Context(), token)
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
		if s.Gateway != nil {
			if err := s.Progress.MergeFromRemote(cmd.Context()); err != nil {
				s.Log.Warn("pull progress after sign-in", zap.Error(err))
			}
		}

		name := sess.Name
		if name == "" {
			name = sess.Email
		}
		fmt.Printf("Signed in as %s.\n", name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Push pending progress and sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("token", "", "Signed identity token (JWT)")
}
