package token

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/techagentng/clubhub/services/jwt"
)

func NewTokenCommand() *cobra.Command {
	var (
		userID uint
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == 0 {
				return fmt.Errorf("--user-id is required")
			}
			if secret == "" {
				return fmt.Errorf("--secret is required (or set CLUBHUB_JWT_SECRET)")
			}
			t, err := jwt.GenerateToken(userID, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}

	cmd.Flags().UintVar(&userID, "user-id", 0, "user the token authenticates")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("CLUBHUB_JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
