package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gigtalk/gigtalk/internal/api"
)

var sendReplyTo string

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendReplyTo, "reply-to", "", "message id to reply to")
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> <message...>",
	Short: "Send a message without opening the TUI",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		conversationID := args[0]
		body := strings.Join(args[1:], " ")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
		defer cancel()

		msg, err := newClient().CreateMessage(ctx, api.CreateMessageRequest{
			ConversationID: conversationID,
			Body:           body,
			ReplyToID:      sendReplyTo,
			IdempotencyKey: uuid.NewString(),
		})
		if err != nil {
			if reason := api.ReasonOf(err); reason != "" {
				return fmt.Errorf("send failed: %s", reason)
			}
			return fmt.Errorf("send failed: %w", err)
		}

		fmt.Printf("sent %s\n", msg.ID)
		return nil
	},
}
