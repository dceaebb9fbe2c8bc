package commands

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"najdisi-sms/client"
	"najdisi-sms/status"
)

var (
	statusJSON      bool
	statusAnonymous bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON.")
	statusCmd.Flags().BoolVar(&statusAnonymous, "anonymous", false, "Read the status without logging in.")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status [--json] [--anonymous]",
	Short: "Logs in and prints the account status as the SMS page shows it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := readStatus(cmd.Context())
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		client.PrintStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func readStatus(ctx context.Context) (status.AccountStatus, error) {
	if !statusAnonymous {
		if err := cfg.ValidateCredentials(); err != nil {
			return status.AccountStatus{}, err
		}
		return client.GetStatusOnce(ctx, cfg.ClientOptions(), cfg.Credentials())
	}
	c, err := client.New(cfg.ClientOptions())
	if err != nil {
		return status.AccountStatus{}, err
	}
	return c.GetStatus(ctx)
}
