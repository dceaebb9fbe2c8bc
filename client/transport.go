package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
)

// newTransport builds the round tripper for a session. proxyURL may be a
// socks5:// or http(s):// URL. With fingerprint set, TLS handshakes mimic
// Firefox instead of Go's crypto/tls.
func newTransport(proxyURL string, fingerprint bool) (http.RoundTripper, error) {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   !fingerprint,
	}

	dial := dialer.DialContext
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		switch u.Scheme {
		case "socks5", "socks5h":
			dial, err = socksDialer(u, dialer)
			if err != nil {
				return nil, err
			}
			transport.DialContext = dial
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}

	if fingerprint {
		transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return fingerprintHandshake(conn, addr)
		}
	}
	return transport, nil
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func socksDialer(u *url.URL, forward *net.Dialer) (dialFunc, error) {
	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{
			User:     u.User.Username(),
			Password: password,
		}
	}
	d, err := proxy.SOCKS5("tcp", u.Host, auth, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// fingerprintHandshake runs a uTLS handshake with a Firefox ClientHello,
// restricted to HTTP/1.1 since the transport cannot speak h2 over a uTLS conn.
func fingerprintHandshake(conn net.Conn, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	uConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		NextProtos: []string{"http/1.1"},
	}, utls.HelloCustom)

	hello, err := utls.UTLSIdToSpec(utls.HelloFirefox_Auto)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get utls client hello: %w", err)
	}
	for i, ext := range hello.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			hello.Extensions[i] = alpn
		}
	}
	if err := uConn.ApplyPreset(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply preset: %w", err)
	}
	if err := uConn.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return uConn, nil
}
