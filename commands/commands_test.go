package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"najdisi-sms/client"
	"najdisi-sms/sitetwin"
	"najdisi-sms/status"
	"najdisi-sms/validate"
)

func setupTwin(t *testing.T) *sitetwin.Twin {
	t.Helper()
	twin := sitetwin.New(sitetwin.Config{Accounts: []sitetwin.Account{{
		Username: "janez",
		Password: "geslo123",
		Name:     "Janez Novak",
		Sender:   "041 / 123456 - 789",
		Limit:    40,
	}}})
	srv := httptest.NewServer(twin)
	t.Cleanup(srv.Close)

	t.Setenv("NAJDISI_BASE_URL", srv.URL)
	t.Setenv("NAJDISI_USER", "janez")
	t.Setenv("NAJDISI_PASSWORD", "geslo123")
	for _, key := range []string{"NAJDISI_PROXY", "NAJDISI_PROXY_FILE", "NAJDISI_TIMEOUT_SECONDS", "NAJDISI_USER_AGENT_FILE", "NAJDISI_HISTORY_FILE", "RECIPIENT_AREA_CODE", "RECIPIENT_PHONE_NUMBER", "SMS_TEXT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return twin
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	dir := t.TempDir()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "najdisi.json5"),
		"--env-file", filepath.Join(dir, ".env"),
	}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusJSON(t *testing.T) {
	setupTwin(t)

	out, err := execute(t, "status", "--json")
	require.NoError(t, err)

	var st status.AccountStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.IsLoggedIn)
	assert.Equal(t, "Janez Novak", *st.Name)
	assert.Equal(t, 40, *st.MaxSmsCount)
}

func TestStatusAnonymous(t *testing.T) {
	setupTwin(t)

	out, err := execute(t, "status", "--anonymous", "--json")
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"isLoggedIn": false,
		"name": null,
		"smsCount": null,
		"maxSmsCount": null,
		"isSenderSet": null,
		"phoneNumberSender": null
	}`, out)
}

func TestStatusRequiresCredentials(t *testing.T) {
	setupTwin(t)
	require.NoError(t, os.Unsetenv("NAJDISI_PASSWORD"))

	_, err := execute(t, "status")

	require.EqualError(t, err, "NAJDISI_PASSWORD must be set")
}

func TestStatusPrintsSummary(t *testing.T) {
	setupTwin(t)

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Janez Novak")
	assert.Contains(t, out, "0 / 40")
}

func TestSendWritesHistory(t *testing.T) {
	twin := setupTwin(t)
	history := filepath.Join(t.TempDir(), "history.jsonl")

	out, err := execute(t, "send", "--area-code", "041", "--phone", "555123", "--text", "Živjo", "--history", history)

	require.NoError(t, err)
	assert.Contains(t, out, "SMS sent successfully.")
	assert.Contains(t, out, "1 / 40")
	require.Len(t, twin.Store.Messages(), 1)
	assert.Equal(t, "Živjo", twin.Store.Messages()[0].Text)

	data, err := os.ReadFile(history)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry client.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "041", entry.AreaCode)
	assert.Equal(t, 5, entry.Length)
	assert.Empty(t, entry.Error)
	require.NotNil(t, entry.After)
	assert.Equal(t, 1, *entry.After.SmsCount)
}

func TestSendUsesEnvironmentRecipient(t *testing.T) {
	twin := setupTwin(t)
	t.Setenv("RECIPIENT_AREA_CODE", "031")
	t.Setenv("RECIPIENT_PHONE_NUMBER", "000111")
	t.Setenv("SMS_TEXT", "iz okolja")

	_, err := execute(t, "send")

	require.NoError(t, err)
	require.Len(t, twin.Store.Messages(), 1)
	assert.Equal(t, "031", twin.Store.Messages()[0].AreaCode)
	assert.Equal(t, "iz okolja", twin.Store.Messages()[0].Text)
}

func TestSendRejectsInvalidInput(t *testing.T) {
	twin := setupTwin(t)

	_, err := execute(t, "send", "--area-code", "41", "--phone", "555123")

	require.ErrorIs(t, err, validate.ErrValidation)
	assert.Empty(t, twin.Store.Requests())
}

func TestSendRecordsFailure(t *testing.T) {
	twin := setupTwin(t)
	history := filepath.Join(t.TempDir(), "history.jsonl")

	_, err := execute(t, "send", "--area-code", "099", "--phone", "555123", "--history", history)

	require.ErrorIs(t, err, client.ErrInvalidAreaCode)
	assert.Empty(t, twin.Store.Messages())

	data, err := os.ReadFile(history)
	require.NoError(t, err)
	assert.Contains(t, string(data), "area code is not offered")
}

func TestProbe(t *testing.T) {
	setupTwin(t)

	out, err := execute(t, "probe", "--count", "2")

	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "login form found"))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, "127.0.0.1:0", sitetwin.New(sitetwin.Config{}))
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
