package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <session> <message>",
		Short: "Send a message to a running session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := sessionName(args[0])
			prompt := strings.Join(args[1:], " ")

			if err := app.service.SendMessage(cmd.Context(), name, prompt); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", name)
			return nil
		},
	}
}

func newApproveCmd(app *app) *cobra.Command {
	var planID string

	cmd := &cobra.Command{
		Use:   "approve <session>",
		Short: "Approve the session's pending plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := sessionName(args[0])
			if err := app.service.ApprovePlan(cmd.Context(), name, planID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Plan approved for %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&planID, "plan", "", "Specific plan ID to approve (defaults to the latest)")

	return cmd
}
