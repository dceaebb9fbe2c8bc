package client

import (
	"bufio"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ProxyList is a set of proxy URLs a new session picks from. The pick is
// sticky: a Client keeps its proxy for its whole lifetime so the cookie
// session stays on one exit address.
type ProxyList struct {
	proxies []string
	mu      sync.Mutex
	random  *rand.Rand
}

func NewProxyList(proxies ...string) *ProxyList {
	return &ProxyList{
		proxies: proxies,
		random:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadFile reads one proxy per line. Blank lines and # comments are skipped;
// a line that is not a socks5/http(s) URL is an error.
func (l *ProxyList) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var loaded []string
	scanner := bufio.NewScanner(file)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := checkProxyURL(line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
		loaded = append(loaded, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.proxies = loaded
	slog.Debug("loaded proxies", "count", len(loaded), "path", path)
	return nil
}

func (l *ProxyList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.proxies)
}

// Pick returns a random proxy, or "" for a direct connection when the list
// is empty.
func (l *ProxyList) Pick() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.proxies) == 0 {
		return ""
	}
	return l.proxies[l.random.Intn(len(l.proxies))]
}

// describeProxy is a log-safe label for proxyURL with credentials removed.
func describeProxy(proxyURL string) string {
	if proxyURL == "" {
		return "direct"
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return "invalid"
	}
	return u.Scheme + "://" + u.Host
}

func checkProxyURL(proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy url: %w", err)
	}
	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("proxy url %q has no host", describeProxy(proxyURL))
	}
	return nil
}
