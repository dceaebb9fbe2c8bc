package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"najdisi-sms/client"
)

var (
	probeCount int
	probeJSON  bool
)

func init() {
	probeCmd.Flags().IntVarP(&probeCount, "count", "n", 3, "Number of round trips.")
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "Print one JSON object per round trip.")
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe [--count 3] [--json]",
	Short: "Fetches the login page without logging in and reports connection timings.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if probeCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		c, err := client.New(cfg.ClientOptions())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		enc := json.NewEncoder(out)
		for i := 1; i <= probeCount; i++ {
			result, err := c.Probe(cmd.Context())
			if err != nil {
				return err
			}
			if probeJSON {
				if err := enc.Encode(result); err != nil {
					return err
				}
				continue
			}

			timing := result.Timing
			fmt.Fprintf(out, "--- probe %d: %s\n", i, result.URL)
			fmt.Fprintf(out, "status %d %s | total %v | server %v | dns %v | tcp %v | tls %v | reused %v\n",
				timing.StatusCode, timing.Protocol, timing.TotalDuration, timing.ServerTime,
				timing.DNSLookup, timing.TCPHandshake, timing.TLSHandshake, timing.ConnectionReused)
			if result.LoginFormFound {
				color.New(color.FgGreen).Fprintln(out, "login form found")
			} else {
				color.New(color.FgYellow).Fprintln(out, "login form missing, the page layout may have changed")
			}
		}
		return nil
	},
}
