package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gigtalk/gigtalk/internal/dispatch"
	"github.com/gigtalk/gigtalk/internal/intent"
)

func init() {
	rootCmd.AddCommand(doCmd)
}

var doCmd = &cobra.Command{
	Use:   "do <command...>",
	Short: "Run one chat command and print the result",
	Long: `Run a single chat command through the same classifier and dispatcher
the TUI uses, then print the response.

Examples:
  gigtalk do "show my orders"
  gigtalk do "update order #482 to delivered"
  gigtalk do "set hourly rate to 50"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		line := strings.Join(args, " ")
		in := intent.NewClassifier().Classify(line)
		if in.Kind == intent.KindUnhandled {
			return fmt.Errorf("not a recognized command: %q", line)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
		defer cancel()

		resp := dispatch.New(newClient()).Dispatch(ctx, in, session)
		saveSession()

		fmt.Println(resp.Text)
		for _, card := range resp.Cards {
			if card.Description != "" {
				fmt.Printf("  [%s] %s: %s\n", card.Target, card.Label, card.Description)
			} else {
				fmt.Printf("  [%s] %s\n", card.Target, card.Label)
			}
		}
		if resp.Navigate != "" {
			fmt.Printf("  → %s\n", resp.Navigate)
		}
		return nil
	},
}
