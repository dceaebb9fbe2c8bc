package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"najdisi-sms/form"
)

func TestSmsRequest(t *testing.T) {
	cases := []struct {
		Label       string
		AreaCode    string
		PhoneNumber string
		Text        string
		WantField   string
	}{
		{Label: "valid", AreaCode: "041", PhoneNumber: "123456", Text: "Živjo!"},
		{Label: "empty text is allowed", AreaCode: "051", PhoneNumber: "000000", Text: ""},
		{Label: "160 multibyte characters", AreaCode: "031", PhoneNumber: "654321", Text: strings.Repeat("č", 160)},
		{Label: "short area code", AreaCode: "41", PhoneNumber: "123456", WantField: "area code"},
		{Label: "long area code", AreaCode: "0411", PhoneNumber: "123456", WantField: "area code"},
		{Label: "non digit area code", AreaCode: "04a", PhoneNumber: "123456", WantField: "area code"},
		{Label: "unicode digit area code", AreaCode: "04٣", PhoneNumber: "123456", WantField: "area code"},
		{Label: "short phone number", AreaCode: "041", PhoneNumber: "12345", WantField: "phone number"},
		{Label: "spaced phone number", AreaCode: "041", PhoneNumber: "123 45", WantField: "phone number"},
		{Label: "text too long", AreaCode: "041", PhoneNumber: "123456", Text: strings.Repeat("a", 161), WantField: "text"},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			err := SmsRequest(c.AreaCode, c.PhoneNumber, c.Text)
			if c.WantField == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, c.WantField, verr.Field)
		})
	}
}

func TestCredentials(t *testing.T) {
	require.NoError(t, Credentials("janez", "Geslo123"))
	require.NoError(t, Credentials(" ", " "), "blank credentials are passed through")

	err := Credentials("", "secret")
	require.ErrorIs(t, err, ErrValidation)
	require.EqualError(t, err, "invalid username: must not be empty")

	err = Credentials("janez", "")
	require.ErrorIs(t, err, ErrValidation)
	require.EqualError(t, err, "invalid password: must not be empty")
}

type fields map[string]bool

func (f fields) Has(name string) bool { return f[name] }

func TestFormFields(t *testing.T) {
	have := fields{"jsecLogin": true, "jsecPassword": true}

	require.NoError(t, FormFields("jsecLoginForm", have, "jsecLogin", "jsecPassword"))

	err := FormFields("jsecLoginForm", have, "jsecLogin", "jsecRememberMe")
	require.ErrorIs(t, err, form.ErrInvalidForm)
	require.NotErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), `"jsecRememberMe"`)
}
