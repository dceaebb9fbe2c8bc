package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"najdisi-sms/sitetwin"
)

var twinAccount sitetwin.Account
var twinAddr string

func init() {
	twinCmd.Flags().StringVar(&twinAddr, "addr", ":8089", "Listen address.")
	twinCmd.Flags().StringVar(&twinAccount.Username, "user", "janez", "Username of the simulated account.")
	twinCmd.Flags().StringVar(&twinAccount.Password, "password", "geslo123", "Password of the simulated account.")
	twinCmd.Flags().StringVar(&twinAccount.Name, "name", "Janez Novak", "Display name of the simulated account.")
	twinCmd.Flags().StringVar(&twinAccount.Sender, "sender", "041 / 123456 - 789", "Verified sender label; empty simulates an unverified account.")
	twinCmd.Flags().IntVar(&twinAccount.Limit, "quota", 40, "Daily SMS limit.")
	twinCmd.Flags().IntVar(&twinAccount.Used, "used", 0, "Messages already sent today.")
	rootCmd.AddCommand(twinCmd)
}

var twinCmd = &cobra.Command{
	Use:   "twin [--addr :8089] [--user <name>] [--password <password>] [--sender <label>] [--quota <n>]",
	Short: "Serves an offline simulation of the najdi.si login and SMS pages.",
	Long: `Serves an offline simulation of the najdi.si login and SMS pages.

Point the client at it with NAJDISI_BASE_URL=http://localhost:8089. Sent
messages are listed at /admin/messages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		twin := sitetwin.New(sitetwin.Config{Accounts: []sitetwin.Account{twinAccount}})
		return serve(cmd.Context(), twinAddr, twin)
	},
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("twin listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("twin server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down twin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
