package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnloop/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded learning activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		events := s.Store.EventRepo()

		fmt.Println("Events")
		fmt.Println(strings.Repeat("─", 40))
		for _, kind := range []string{store.KindSlideView, store.KindQuizAnswer, store.KindModuleCompleted, store.KindLLMRequest} {
			n, err := events.CountEvents(ctx, kind)
			if err != nil {
				return fmt.Errorf("count %s events: %w", kind, err)
			}
			fmt.Printf("%-20s  %8d\n", kind, n)
		}

		answers, err := events.QueryEvents(ctx, store.KindQuizAnswer, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query quiz answers: %w", err)
		}
		var correct int
		for _, e := range answers {
			var d store.QuizAnswerEventData
			if err := e.Decode(&d); err == nil && d.IsCorrect {
				correct++
			}
		}

		completions, err := events.QueryEvents(ctx, store.KindModuleCompleted, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query completions: %w", err)
		}
		var sent int
		for _, e := range completions {
			var d store.CompletionEventData
			if err := e.Decode(&d); err == nil && d.Dispatched {
				sent++
			}
		}

		fmt.Println()
		if len(answers) > 0 {
			fmt.Printf("Quiz accuracy:       %d/%d (%.0f%%)\n",
				correct, len(answers), float64(correct)*100/float64(len(answers)))
		}
		fmt.Printf("Modules completed:   %d (%d summaries e-mailed)\n", len(completions), sent)
		return nil
	},
}
