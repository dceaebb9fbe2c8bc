package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"najdisi-sms/status"
)

// PrintStatus writes a colored, human readable account summary to w.
func PrintStatus(w io.Writer, st status.AccountStatus) {
	headerColor := color.New(color.FgHiCyan, color.Bold).SprintFunc()
	labelColor := color.New(color.FgWhite).SprintFunc()
	valueColor := color.New(color.FgHiWhite).SprintFunc()
	successColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	warnColor := color.New(color.FgYellow).SprintFunc()
	missing := color.New(color.FgHiBlack).Sprint("-")

	fmt.Fprintln(w, headerColor("[najdi.si account]"))
	if !st.IsLoggedIn {
		fmt.Fprintf(w, "%s    : %s\n", labelColor("Session"), warnColor("anonymous"))
		return
	}
	fmt.Fprintf(w, "%s    : %s\n", labelColor("Session"), successColor("logged in"))

	name := missing
	if st.Name != nil {
		name = valueColor(*st.Name)
	}
	fmt.Fprintf(w, "%s       : %s\n", labelColor("Name"), name)

	quota := missing
	if st.SmsCount != nil && st.MaxSmsCount != nil {
		remaining := *st.MaxSmsCount - *st.SmsCount
		quotaColor := valueColor
		if remaining <= 0 {
			quotaColor = warnColor
		}
		quota = quotaColor(fmt.Sprintf("%d / %d", *st.SmsCount, *st.MaxSmsCount))
	}
	fmt.Fprintf(w, "%s  : %s\n", labelColor("SMS quota"), quota)

	sender := missing
	switch {
	case st.SenderConfigured() && st.PhoneNumberSender != nil:
		sender = valueColor(*st.PhoneNumberSender)
	case st.IsSenderSet != nil:
		sender = warnColor("not configured")
	}
	fmt.Fprintf(w, "%s     : %s\n", labelColor("Sender"), sender)
}

// HistoryEntry is one line of the send history file.
type HistoryEntry struct {
	SentAt      time.Time             `json:"sentAt"`
	User        string                `json:"user"`
	AreaCode    string                `json:"areaCode"`
	PhoneNumber string                `json:"phoneNumber"`
	Length      int                   `json:"length"`
	Error       string                `json:"error,omitempty"`
	Before      *status.AccountStatus `json:"before,omitempty"`
	After       *status.AccountStatus `json:"after,omitempty"`
}

// WriteHistory appends e as a JSON line to filename.
func WriteHistory(e HistoryEntry, filename string) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}
