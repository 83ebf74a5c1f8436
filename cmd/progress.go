package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Inspect or edit course progress",
}

var progressListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show progress for every course and module",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if s.Progress.UserID() == "" {
			fmt.Println("Not signed in; showing an empty record.")
		}

		for _, c := range s.Catalog.Courses() {
			fmt.Printf("%-40s  %3d%%\n", truncate(c.Title, 40), s.Progress.CourseProgress(c.ID))
			fmt.Println(strings.Repeat("─", 72))

			summary, _ := s.Progress.Course(c.ID)
			last := make(map[string]string, len(summary.Modules))
			for _, m := range summary.Modules {
				if m.LastSlideID != nil {
					last[m.ModuleID] = *m.LastSlideID
				}
			}
			for _, m := range c.Modules {
				fmt.Printf("  %-36s  %3d%%  %s\n",
					truncate(m.Title, 36), s.Progress.ModuleProgress(c.ID, m.ID), last[m.ID])
			}
			fmt.Println()
		}
		return nil
	},
}

var progressSetCmd = &cobra.Command{
	Use:   "set <course> <module> <slide-index>",
	Short: "Record a slide position as if it had been viewed",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid slide index %q: %w", args[2], err)
		}

		s, err := openServices(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := requireUser(s); err != nil {
			return err
		}

		_, mod, err := s.Catalog.Module(args[0], args[1])
		if err != nil {
			return err
		}
		if index < 0 || index >= len(mod.Slides) {
			return fmt.Errorf("slide index %d out of range 0..%d", index, len(mod.Slides)-1)
		}
		slideID := mod.Slides[index].ID
		s.Progress.SetModuleProgressSafe(cmd.Context(), args[0], args[1], index, len(mod.Slides), &slideID)

		fmt.Printf("%s: %d%% (course %d%%)\n",
			mod.Title, s.Progress.ModuleProgress(args[0], args[1]), s.Progress.CourseProgress(args[0]))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <course>",
	Short: "Reset progress, quiz answers and tutor history for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := requireUser(s); err != nil {
			return err
		}

		c, err := s.Catalog.Course(args[0])
		if err != nil {
			return err
		}
		s.Progress.ResetCourseProgress(cmd.Context(), c.ID)
		fmt.Printf("Reset %s.\n", c.Title)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local progress to the remote store, or pull it with --pull",
	RunE: func(cmd *cobra.Command, args []string) error {
		pull, _ := cmd.Flags().GetBool("pull")

		s, err := openServices(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := requireUser(s); err != nil {
			return err
		}
		if s.Gateway == nil {
			return fmt.Errorf("no remote store configured (set remote.driver and remote.dsn)")
		}

		if pull {
			if err := s.Progress.MergeFromRemote(cmd.Context()); err != nil {
				return fmt.Errorf("pull progress: %w", err)
			}
			fmt.Println("Pulled remote progress.")
			return nil
		}
		if err := s.Progress.SyncProgressToDB(cmd.Context()); err != nil {
			return fmt.Errorf("push progress: %w", err)
		}
		fmt.Println("Pushed local progress.")
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("pull", false, "Merge remote progress into this device instead of pushing")

	progressCmd.AddCommand(progressListCmd)
	progressCmd.AddCommand(progressSetCmd)
}
