package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gigtalk/gigtalk/internal/api"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

func init() {
	rootCmd.AddCommand(conversationsCmd)
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "List conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
		defer cancel()

		convs, err := newClient().ListConversations(ctx)
		if err != nil {
			if reason := api.ReasonOf(err); reason != "" {
				return fmt.Errorf("list conversations failed: %s", reason)
			}
			return fmt.Errorf("list conversations failed: %w", err)
		}
		if len(convs) == 0 {
			fmt.Println("no conversations")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tUNREAD\tLAST")
		for _, conv := range convs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				conv.ID, conv.Name, conversationType(conv), conv.Unread, conv.LastPreview)
		}
		return w.Flush()
	},
}

func conversationType(conv timeline.Conversation) string {
	if conv.IsGroup() {
		return fmt.Sprintf("group(%d)", conv.MemberCount)
	}
	return "direct"
}
