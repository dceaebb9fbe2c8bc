package client

import (
	"context"
	"errors"
	"net/http"

	"najdisi-sms/form"
	"najdisi-sms/status"
)

// ProbeResult describes one anonymous round trip to the login page.
type ProbeResult struct {
	URL            string               `json:"url"`
	Timing         RequestTiming        `json:"timing"`
	LoginFormFound bool                 `json:"loginFormFound"`
	Status         status.AccountStatus `json:"status"`
}

// Probe fetches the login page without logging in. It exercises the proxy,
// the TLS fingerprint and the page markup the login relies on.
func (c *Client) Probe(ctx context.Context) (ProbeResult, error) {
	ctx, span := tracer.Start(ctx, "client.Probe")
	defer span.End()

	res, err := c.do(ctx, http.MethodGet, c.opts.LoginPath, "", nil)
	if err != nil {
		return ProbeResult{}, failSpan(span, err)
	}
	p, err := parsePage(res)
	if err != nil {
		return ProbeResult{}, failSpan(span, err)
	}

	result := ProbeResult{
		URL:    pageURL(p, c.baseURL.String()),
		Timing: timingOf(res),
		Status: status.ExtractWith(p.doc, c.opts.Selectors),
	}
	_, err = form.Extract(p.doc, loginFormID)
	switch {
	case err == nil:
		result.LoginFormFound = true
	case !errors.Is(err, form.ErrFormNotFound):
		return result, failSpan(span, err)
	}
	return result, nil
}
