package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/techagentng/clubhub/client"
)

var (
	serverURL string
	authToken string
	timeout   time.Duration
)

// BindClientFlags registers the connection flags shared by every subcommand.
func BindClientFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CLUBHUB_SERVER", "http://localhost:8080"), "clubhub server base URL")
	cmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CLUBHUB_TOKEN"), "bearer token (defaults to $CLUBHUB_TOKEN)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
}

func NewClient() (*client.Client, error) {
	if authToken == "" {
		return nil, fmt.Errorf("no token: pass --token or set CLUBHUB_TOKEN")
	}
	return client.New(serverURL, authToken, timeout), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
