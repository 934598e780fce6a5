package cmd

import (
	"errors"
	"fmt"
	"os"

	"eventpass/config"
	"eventpass/internal/scanner"

	"github.com/spf13/cobra"
)

// newScanCommand is a gate-side client for a running server, handy when no camera app is at hand.
func newScanCommand(cfg *config.Config) *cobra.Command {
	var (
		server  string
		token   string
		eventID string
	)

	cmd := &cobra.Command{
		Use:          "scan <payload>",
		Short:        "Redeem a scanned ticket code against a running server",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventID == "" {
				return errors.New("--event is required")
			}

			client := scanner.NewClient(scanner.Config{
				BaseURL: server,
				Token:   token,
				Timeout: cfg.ScanTimeout,
			})

			result := client.Scan(cmd.Context(), args[0], eventID)
			fmt.Fprintln(cmd.OutOrStdout(), result.String())
			if result.Status == "ERROR" {
				return errors.New(result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", cfg.AppURL, "server base url")
	cmd.Flags().StringVar(&token, "token", os.Getenv("EVENTPASS_ADMIN_TOKEN"), "admin auth token")
	cmd.Flags().StringVar(&eventID, "event", "", "event the gate is admitting to")

	return cmd
}
