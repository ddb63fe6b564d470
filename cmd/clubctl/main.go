package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/techagentng/clubhub/cmd/clubctl/internal"
	"github.com/techagentng/clubhub/cmd/clubctl/internal/contacts"
	"github.com/techagentng/clubhub/cmd/clubctl/internal/send"
	"github.com/techagentng/clubhub/cmd/clubctl/internal/token"
	"github.com/techagentng/clubhub/cmd/clubctl/internal/watch"
)

func NewClubctlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clubctl",
		Short:         "Command line client for clubhub messaging",
		Example:       "clubctl watch --thread category:3",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	internal.BindClientFlags(cmd)
	cmd.AddCommand(
		token.NewTokenCommand(),
		contacts.NewContactsCommand(),
		send.NewSendCommand(),
		watch.NewWatchCommand(),
	)
	return cmd
}

func main() {
	if err := NewClubctlCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
