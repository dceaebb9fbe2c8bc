package client

import (
	"context"

	"najdisi-sms/status"
)

// The Once helpers run a single action on a throwaway session: build a
// client, log in, act, discard.

func LoginOnce(ctx context.Context, opts Options, creds Credentials) (status.AccountStatus, error) {
	c, err := New(opts)
	if err != nil {
		return status.AccountStatus{}, err
	}
	return c.Login(ctx, creds, false)
}

func GetStatusOnce(ctx context.Context, opts Options, creds Credentials) (status.AccountStatus, error) {
	c, err := loggedIn(ctx, opts, creds)
	if err != nil {
		return status.AccountStatus{}, err
	}
	return c.GetStatus(ctx)
}

// SendSmsOnce validates req before logging in so bad input never costs a
// login.
func SendSmsOnce(ctx context.Context, opts Options, creds Credentials, req SmsRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	c, err := loggedIn(ctx, opts, creds)
	if err != nil {
		return err
	}
	return c.SendSms(ctx, req)
}

func loggedIn(ctx context.Context, opts Options, creds Credentials) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, creds, false); err != nil {
		return nil, err
	}
	return c, nil
}
