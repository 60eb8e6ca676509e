package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(session.String())
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session.Clear()
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Println("session cleared")
		return nil
	},
}
