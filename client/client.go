// Package client drives a najdi.si session: it logs in through the HTML login
// form, reads the account status and submits the free SMS form.
package client

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/publicsuffix"

	"najdisi-sms/status"
)

var tracer = otel.Tracer("najdisi-sms/client")

const (
	DefaultBaseURL   = "https://www.najdi.si"
	DefaultLoginPath = "/prijava"
	DefaultSmsPath   = "/najdi/sms"
	DefaultTimeout   = 30 * time.Second

	formContentType = "application/x-www-form-urlencoded; charset=UTF-8"
)

type Options struct {
	BaseURL   string
	LoginPath string
	SmsPath   string
	// Timeout bounds every request, including redirects.
	Timeout time.Duration

	// UserAgent wins over UserAgentFile. With neither set a default desktop
	// browser is used.
	UserAgent     string
	UserAgentFile string

	// ProxyURL is a socks5:// or http(s):// proxy. When empty and ProxyFile
	// is set, one proxy from the file is picked for the session.
	ProxyURL  string
	ProxyFile string
	// Fingerprint makes TLS handshakes look like a browser's.
	Fingerprint bool

	// Selectors overrides status.DefaultSelectors when LoginLink is set.
	Selectors status.Selectors
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.LoginPath == "" {
		o.LoginPath = DefaultLoginPath
	}
	if o.SmsPath == "" {
		o.SmsPath = DefaultSmsPath
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Selectors.LoginLink == "" {
		o.Selectors = status.DefaultSelectors
	}
	return o
}

// State is where a Client is in the login lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Client owns one cookie-bearing session. Calls on a Client are sequential;
// separate Clients share nothing.
type Client struct {
	baseURL *url.URL
	opts    Options
	http    *resty.Client
	guard   *guard

	mu    sync.RWMutex
	state State
}

func New(opts Options) (*Client, error) {
	opts = opts.withDefaults()

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	agents := NewUserAgentPool()
	if opts.UserAgentFile != "" {
		if err := agents.LoadFile(opts.UserAgentFile); err != nil {
			return nil, fmt.Errorf("failed to load user agents: %w", err)
		}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = agents.Pick()
	}

	rc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetCookieJar(jar).
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname())).
		SetHeaders(agents.Headers()).
		SetHeader("User-Agent", userAgent).
		EnableTrace()
	proxyURL := opts.ProxyURL
	if proxyURL == "" && opts.ProxyFile != "" {
		proxies := NewProxyList()
		if err := proxies.LoadFile(opts.ProxyFile); err != nil {
			return nil, fmt.Errorf("failed to load proxies: %w", err)
		}
		proxyURL = proxies.Pick()
	}
	if proxyURL != "" || opts.Fingerprint {
		transport, err := newTransport(proxyURL, opts.Fingerprint)
		if err != nil {
			return nil, err
		}
		rc.SetTransport(transport)
	}
	instrument(rc)
	slog.Debug("session created", "base_url", opts.BaseURL, "proxy", describeProxy(proxyURL), "fingerprint", opts.Fingerprint)

	return &Client{
		baseURL: baseURL,
		opts:    opts,
		http:    rc,
		guard:   newGuard(),
	}, nil
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) IsLoggedIn() bool {
	return c.State() == Authenticated
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Client) CookieJar() http.CookieJar {
	return c.http.GetClient().Jar
}

// SafetyDetails reports whether the safety guard halted this session, when,
// and why.
func (c *Client) SafetyDetails() (bool, time.Time, string) {
	return c.guard.details()
}

// page is a fetched and parsed HTML response.
type page struct {
	doc *goquery.Document
	url *url.URL
}

func (c *Client) get(ctx context.Context, target string) (*page, error) {
	res, err := c.do(ctx, http.MethodGet, target, "", nil)
	if err != nil {
		return nil, err
	}
	return parsePage(res)
}

func (c *Client) postForm(ctx context.Context, target, body string, headers map[string]string) (*resty.Response, error) {
	return c.do(ctx, http.MethodPost, target, body, headers)
}

func (c *Client) do(ctx context.Context, method, target, body string, headers map[string]string) (*resty.Response, error) {
	if err := c.guard.check(); err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}

	req := c.http.R().SetContext(ctx).SetHeaders(headers)
	if method == http.MethodPost {
		req.SetHeader("Content-Type", formContentType).SetBody(body)
	}
	res, err := req.Execute(method, target)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}

	c.guard.observe(res.StatusCode())
	if res.StatusCode() >= 400 {
		return nil, &TransportError{Method: method, URL: target, StatusCode: res.StatusCode()}
	}
	return res, nil
}

func parsePage(res *resty.Response) (*page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	p := &page{doc: doc}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		p.url = res.RawResponse.Request.URL
	}
	return p, nil
}

// resolve turns a form action into an absolute URL relative to the page that
// contained the form.
func (c *Client) resolve(p *page, action string) (string, error) {
	ref, err := url.Parse(action)
	if err != nil {
		return "", fmt.Errorf("invalid form action %q: %w", action, err)
	}
	base := p.url
	if base == nil {
		base = c.baseURL
	}
	return base.ResolveReference(ref).String(), nil
}

// logCookies lists the session cookie names at debug level. Values are
// credentials and are never logged.
func (c *Client) logCookies(ctx context.Context) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}
	var names []string
	for _, ck := range c.CookieJar().Cookies(c.baseURL) {
		names = append(names, ck.Name)
	}
	slog.DebugContext(ctx, "session cookies", "url", c.baseURL.String(), "names", names)
}
