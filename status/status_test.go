package status

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

var (
	//go:embed testdata/anonymous.html
	anonymousPage []byte
	//go:embed testdata/sms_page.html
	smsPage []byte
	//go:embed testdata/sms_page_no_sender.html
	smsPageNoSender []byte
	//go:embed testdata/profile_page.html
	profilePage []byte
)

func parse(t *testing.T, page []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestExtractAnonymous(t *testing.T) {
	got := Extract(parse(t, anonymousPage))
	require.Equal(t, AccountStatus{}, got)

	encoded, err := json.Marshal(got)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"isLoggedIn": false,
		"name": null,
		"smsCount": null,
		"maxSmsCount": null,
		"isSenderSet": null,
		"phoneNumberSender": null
	}`, string(encoded))
}

func TestExtractLoggedIn(t *testing.T) {
	got := Extract(parse(t, smsPage))

	require.True(t, got.IsLoggedIn)
	require.NotNil(t, got.Name)
	require.Equal(t, "Janez Novak", *got.Name)
	require.NotNil(t, got.SmsCount)
	require.Equal(t, 7, *got.SmsCount)
	require.NotNil(t, got.MaxSmsCount)
	require.Equal(t, 50, *got.MaxSmsCount)
	require.True(t, got.SenderConfigured())
	require.NotNil(t, got.PhoneNumberSender)
	require.Equal(t, "041 / 123456 - 789", *got.PhoneNumberSender)
}

func TestExtractWithoutSender(t *testing.T) {
	got := Extract(parse(t, smsPageNoSender))

	require.True(t, got.IsLoggedIn)
	require.Equal(t, "Janez", *got.Name)
	require.Equal(t, 0, *got.SmsCount)
	require.Equal(t, 40, *got.MaxSmsCount)
	require.NotNil(t, got.IsSenderSet)
	require.False(t, *got.IsSenderSet)
	require.False(t, got.SenderConfigured())
	require.Nil(t, got.PhoneNumberSender)
}

func TestExtractWithoutSmsForm(t *testing.T) {
	got := Extract(parse(t, profilePage))

	require.True(t, got.IsLoggedIn)
	require.Nil(t, got.Name)
	require.Nil(t, got.IsSenderSet)
	require.Nil(t, got.SmsCount)
	require.Nil(t, got.MaxSmsCount)
	require.Nil(t, got.PhoneNumberSender)
}

func TestExtractLabelsFallBackToForm(t *testing.T) {
	doc := parse(t, []byte(`<html><body>
		<span>9 / 9</span>
		<form id="smsForm" action="/send" method="post">
			<span>12 /100</span>
			<span>040/555666-1</span>
		</form>
	</body></html>`))

	got := Extract(doc)
	require.True(t, got.IsLoggedIn)
	require.Equal(t, 12, *got.SmsCount)
	require.Equal(t, 100, *got.MaxSmsCount)
	require.Equal(t, "040/555666-1", *got.PhoneNumberSender)
	require.True(t, got.SenderConfigured())
}

func TestExtractWithCustomSelectors(t *testing.T) {
	doc := parse(t, []byte(`<html><body>
		<a class="login" href="/login">Log in</a>
	</body></html>`))

	require.True(t, Extract(doc).IsLoggedIn, "default selectors do not know this login link")

	sel := DefaultSelectors
	sel.LoginLink = "a.login"
	require.False(t, ExtractWith(doc, sel).IsLoggedIn)
}
