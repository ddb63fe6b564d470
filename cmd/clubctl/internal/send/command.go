package send

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/techagentng/clubhub/cmd/clubctl/internal"
	"github.com/techagentng/clubhub/models"
)

func NewSendCommand() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:     "send MESSAGE...",
		Short:   "Send a message to a user, category or team",
		Example: "clubctl send --to category:3 Training moved to 18h",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, err := models.ParseThread(to)
			if err != nil {
				return err
			}
			c, err := internal.NewClient()
			if err != nil {
				return err
			}
			content := strings.Join(args, " ")
			msg, err := c.Send(cmd.Context(), thread, content)
			if err != nil {
				return fmt.Errorf("not sent (draft kept: %q): %w", content, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent #%d to %s at %s\n", msg.ID, thread, msg.CreatedAt.Format("15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "thread: direct:<userId>, category:<id> or team:<id>")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
