package commands

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"najdisi-sms/client"
	"najdisi-sms/status"
)

var (
	sendAreaCode string
	sendPhone    string
	sendText     string
	sendHistory  string
)

func init() {
	sendCmd.Flags().StringVar(&sendAreaCode, "area-code", "", "Recipient area code, 3 digits (default RECIPIENT_AREA_CODE).")
	sendCmd.Flags().StringVar(&sendPhone, "phone", "", "Recipient phone number, 6 digits (default RECIPIENT_PHONE_NUMBER).")
	sendCmd.Flags().StringVar(&sendText, "text", "", "Message text, at most 160 characters (default SMS_TEXT).")
	sendCmd.Flags().StringVar(&sendHistory, "history", "", "Append the result as a JSON line to this file (default NAJDISI_HISTORY_FILE).")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [--area-code 041] [--phone 123456] [--text <message>] [--history <file>]",
	Short: "Logs in and sends one SMS, printing the account status before and after.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := cfg.SmsRequest()
		if cmd.Flags().Changed("area-code") {
			req.AreaCode = sendAreaCode
		}
		if cmd.Flags().Changed("phone") {
			req.PhoneNumber = sendPhone
		}
		if cmd.Flags().Changed("text") {
			req.Text = sendText
		}
		history := cfg.HistoryFile
		if cmd.Flags().Changed("history") {
			history = sendHistory
		}

		if err := cfg.ValidateCredentials(); err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}

		c, err := client.New(cfg.ClientOptions())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		fmt.Fprintf(out, "Logging in with user %q.\n", cfg.User)
		before, err := c.Login(ctx, cfg.Credentials(), cfg.RememberMe)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(out, "Log in success.")
		client.PrintStatus(out, before)
		if remaining(before) == 0 {
			slog.Warn("sms quota is used up", "used", *before.SmsCount, "max", *before.MaxSmsCount)
		}

		fmt.Fprintf(out, "Sending SMS %q to %s/%s.\n", req.Text, req.AreaCode, req.PhoneNumber)
		sendErr := c.SendSms(ctx, req)

		entry := client.HistoryEntry{
			SentAt:      time.Now(),
			User:        cfg.User,
			AreaCode:    req.AreaCode,
			PhoneNumber: req.PhoneNumber,
			Length:      utf8.RuneCountInString(req.Text),
			Before:      &before,
		}
		if sendErr != nil {
			entry.Error = sendErr.Error()
		} else {
			color.New(color.FgGreen).Fprintln(out, "SMS sent successfully.")
			if after, err := c.GetStatus(ctx); err != nil {
				slog.Warn("failed to read status after sending", "err", err)
			} else {
				entry.After = &after
				client.PrintStatus(out, after)
			}
		}

		if history != "" {
			if err := client.WriteHistory(entry, history); err != nil {
				slog.Warn("failed to write history", "file", history, "err", err)
			}
		}
		return sendErr
	},
}

// remaining is how many messages the quota still allows, or -1 when unknown.
func remaining(st status.AccountStatus) int {
	if st.SmsCount == nil || st.MaxSmsCount == nil {
		return -1
	}
	return *st.MaxSmsCount - *st.SmsCount
}
