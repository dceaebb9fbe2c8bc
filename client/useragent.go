package client

import (
	"bufio"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// UserAgentPool hands out browser identities for new sessions.
type UserAgentPool struct {
	userAgents []string
	mu         sync.Mutex
	random     *rand.Rand
}

func NewUserAgentPool() *UserAgentPool {
	return &UserAgentPool{
		userAgents: []string{defaultUserAgent},
		random:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadFile replaces the pool with the user agents in path, one per line.
// Blank lines and lines starting with # are ignored. An empty file leaves the
// pool unchanged.
func (p *UserAgentPool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var loaded []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		loaded = append(loaded, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(loaded) > 0 {
		p.mu.Lock()
		p.userAgents = loaded
		p.mu.Unlock()
		slog.Debug("loaded user agents", "count", len(loaded), "path", path)
	}
	return nil
}

func (p *UserAgentPool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userAgents[p.random.Intn(len(p.userAgents))]
}

// Headers returns the headers a browser sends alongside a page navigation.
func (p *UserAgentPool) Headers() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	languages := []string{
		"sl-SI,sl;q=0.9,en-US;q=0.8,en;q=0.7",
		"sl,en-US;q=0.7,en;q=0.3",
		"en-US,en;q=0.9,sl;q=0.8",
	}
	return map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": languages[p.random.Intn(len(languages))],
	}
}
