package client

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"najdisi-sms/form"
	"najdisi-sms/status"
	"najdisi-sms/validate"
)

const (
	loginFormID   = "jsecLoginForm"
	loginField    = "jsecLogin"
	passwordField = "jsecPassword"
	rememberField = "jsecRememberMe"
	formDataField = "t:formdata"

	smsFormID        = "smsForm"
	areaCodeField    = "areaCodeRecipient"
	phoneNumberField = "phoneNumberRecipient"
	textField        = "text"
	submitField      = "t:submit"
	zoneField        = "t:zoneid"

	submitSend = `["send","send"]`
	smsZone    = "smsZone"
)

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Validate() error {
	return validate.Credentials(c.Username, c.Password)
}

type SmsRequest struct {
	AreaCode    string
	PhoneNumber string
	Text        string
}

func (r SmsRequest) Validate() error {
	return validate.SmsRequest(r.AreaCode, r.PhoneNumber, r.Text)
}

// Login submits the login form with creds. The client is Authenticating while
// the attempt runs and ends up Authenticated or Anonymous. rememberMe ticks the
// login form's "remember me" box.
func (c *Client) Login(ctx context.Context, creds Credentials, rememberMe bool) (status.AccountStatus, error) {
	if err := creds.Validate(); err != nil {
		return status.AccountStatus{}, err
	}

	ctx, span := tracer.Start(ctx, "client.Login")
	defer span.End()

	c.setState(Authenticating)
	st, err := c.login(ctx, creds, rememberMe)
	if err != nil {
		c.setState(Anonymous)
		return status.AccountStatus{}, failSpan(span, err)
	}
	c.setState(Authenticated)
	c.logCookies(ctx)

	slog.InfoContext(ctx, "logged in", "user", creds.Username)
	return st, nil
}

func (c *Client) login(ctx context.Context, creds Credentials, rememberMe bool) (status.AccountStatus, error) {
	loginPage, err := c.get(ctx, c.opts.LoginPath)
	if err != nil {
		return status.AccountStatus{}, err
	}
	snapshot, err := form.Extract(loginPage.doc, loginFormID)
	if err != nil {
		return status.AccountStatus{}, err
	}
	if err := validate.FormFields(loginFormID, snapshot, loginField, passwordField, formDataField); err != nil {
		return status.AccountStatus{}, err
	}

	snapshot.Set(loginField, creds.Username)
	snapshot.Set(passwordField, creds.Password)
	if rememberMe {
		snapshot.Set(rememberField, "on")
	} else {
		snapshot.Del(rememberField)
	}

	action, err := c.resolve(loginPage, snapshot.Action)
	if err != nil {
		return status.AccountStatus{}, err
	}
	res, err := c.postForm(ctx, action, snapshot.Encode(), map[string]string{
		"Referer": pageURL(loginPage, c.baseURL.String()),
	})
	if err != nil {
		return status.AccountStatus{}, err
	}
	landing, err := parsePage(res)
	if err != nil {
		return status.AccountStatus{}, err
	}

	st := status.ExtractWith(landing.doc, c.opts.Selectors)
	if !st.IsLoggedIn {
		return status.AccountStatus{}, fmt.Errorf("%w: user %q", ErrLoginFailed, creds.Username)
	}
	return st, nil
}

// GetStatus reads the account status from the SMS page. It works in any
// state and does not change it.
func (c *Client) GetStatus(ctx context.Context) (status.AccountStatus, error) {
	ctx, span := tracer.Start(ctx, "client.GetStatus")
	defer span.End()

	smsPage, err := c.get(ctx, c.opts.SmsPath)
	if err != nil {
		return status.AccountStatus{}, failSpan(span, err)
	}
	st := status.ExtractWith(smsPage.doc, c.opts.Selectors)
	span.SetAttributes(attribute.Bool("najdisi.logged_in", st.IsLoggedIn))
	return st, nil
}

// SendSms sends req through the free SMS form. It requires an Authenticated
// client and checks the site agrees before submitting anything.
func (c *Client) SendSms(ctx context.Context, req SmsRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !c.IsLoggedIn() {
		return ErrNotLoggedIn
	}

	ctx, span := tracer.Start(ctx, "client.SendSms", trace.WithAttributes(
		attribute.String("najdisi.area_code", req.AreaCode),
	))
	defer span.End()

	if err := c.sendSms(ctx, req); err != nil {
		return failSpan(span, err)
	}
	slog.InfoContext(ctx, "sms sent", "area_code", req.AreaCode, "phone_number", req.PhoneNumber, "length", len([]rune(req.Text)))
	return nil
}

func (c *Client) sendSms(ctx context.Context, req SmsRequest) error {
	smsPage, err := c.get(ctx, c.opts.SmsPath)
	if err != nil {
		return err
	}

	st := status.ExtractWith(smsPage.doc, c.opts.Selectors)
	if !st.IsLoggedIn {
		slog.WarnContext(ctx, "site reports the session as anonymous")
		return fmt.Errorf("%w: session expired on the site", ErrNotLoggedIn)
	}
	if !st.SenderConfigured() {
		return ErrSenderNotConfigured
	}

	snapshot, err := form.Extract(smsPage.doc, smsFormID)
	if err != nil {
		return err
	}
	if err := validate.FormFields(smsFormID, snapshot, areaCodeField, phoneNumberField, textField); err != nil {
		return err
	}
	areaCodes := offeredAreaCodes(snapshot.SelectOptions(areaCodeField))
	if !slices.Contains(areaCodes, req.AreaCode) {
		return fmt.Errorf("%w: %s not in %v", ErrInvalidAreaCode, req.AreaCode, areaCodes)
	}

	snapshot.Set(areaCodeField, req.AreaCode)
	snapshot.Set(phoneNumberField, req.PhoneNumber)
	snapshot.Set(textField, req.Text)
	snapshot.Set(submitField, submitSend)
	snapshot.Set(zoneField, smsZone)

	action, err := c.resolve(smsPage, snapshot.Action)
	if err != nil {
		return err
	}
	_, err = c.postForm(ctx, action, snapshot.Encode(), map[string]string{
		"X-Requested-With": "XMLHttpRequest",
		"Referer":          pageURL(smsPage, c.baseURL.String()),
	})
	return err
}

// offeredAreaCodes trims the select options and drops the empty placeholder.
func offeredAreaCodes(options []string) []string {
	codes := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			codes = append(codes, o)
		}
	}
	return codes
}

func pageURL(p *page, fallback string) string {
	if p.url == nil {
		return fallback
	}
	return p.url.String()
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
