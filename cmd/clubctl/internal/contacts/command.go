package contacts

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/techagentng/clubhub/cmd/clubctl/internal"
	"github.com/techagentng/clubhub/models"
)

func NewContactsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List the parties you can open a thread with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := internal.NewClient()
			if err != nil {
				return err
			}
			contacts, err := c.Contacts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSection(out, "Coaches", contacts.Coaches)
			printSection(out, "Admins", contacts.Admins)
			printSection(out, "Sportifs", contacts.Sportifs)
			printSection(out, "Categories", contacts.Categories)
			printSection(out, "Teams", contacts.Teams)
			return nil
		},
	}
}

func printSection(w io.Writer, title string, list []models.Contact) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, c := range list {
		extra := ""
		if c.CategoryName != "" {
			extra = " (" + c.CategoryName + ")"
		}
		fmt.Fprintf(w, "  %-14s %s%s\n", c.Thread(), c.Name, extra)
	}
}
