package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnloop/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Work with skill score records",
}

var skillsMergeCmd = &cobra.Command{
	Use:   "merge [file]",
	Short: "Merge duplicate skill records from a JSON array (stdin when no file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exact, _ := cmd.Flags().GetBool("exact")

		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		var records []skills.SkillScore
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return fmt.Errorf("decode skill records: %w", err)
		}

		merged := skills.Dedupe(records)
		if exact {
			merged = skills.DedupeExact(records)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(merged); err != nil {
			return err
		}
		if avg, ok := skills.Average(merged); ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "average: %.1f / 5\n", avg)
		}
		return nil
	},
}

func init() {
	skillsMergeCmd.Flags().Bool("exact", false, "Average every individual score instead of pairwise")

	skillsCmd.AddCommand(skillsMergeCmd)
}
