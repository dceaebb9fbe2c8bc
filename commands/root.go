// Package commands is the najdisi-sms command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"najdisi-sms/config"
)

var (
	configPath string
	envFile    string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "najdisi-sms",
	Short:         "najdisi-sms sends free SMS messages through a najdi.si account.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verbose)

		var err error
		cfg, err = config.Load(configPath, envFile)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "The json5 config file; <name>.local.json5 is merged over it.")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "The dotenv file loaded into the environment.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and timings.")
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %s", err))
		os.Exit(1)
	}
}
