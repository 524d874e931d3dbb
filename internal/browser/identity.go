package browser

import (
	"sync"
)

// Identity is one simulated client configuration. The fetch policy
// rotates identities between retry attempts.
type Identity struct {
	UserAgent string
	Locale    string
	ViewportW int
	ViewportH int
	ProxyURL  string
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
}

var locales = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"de-DE,de;q=0.9,en;q=0.7",
}

var viewports = [][2]int{
	{1280, 800},
	{1440, 900},
	{1920, 1080},
}

// IdentityPool hands out identities round-robin. Proxies, when
// configured, rotate independently of the user-agent/locale pairing so
// a retry changes both dimensions.
type IdentityPool struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

// NewIdentityPool creates a pool over the configured egress proxies.
// An empty proxy list means direct egress.
func NewIdentityPool(proxies []string) *IdentityPool {
	return &IdentityPool{proxies: proxies}
}

// Next returns the next identity in rotation.
func (p *IdentityPool) Next() Identity {
	p.mu.Lock()
	n := p.next
	p.next++
	p.mu.Unlock()

	vp := viewports[n%len(viewports)]
	ident := Identity{
		UserAgent: userAgents[n%len(userAgents)],
		Locale:    locales[n%len(locales)],
		ViewportW: vp[0],
		ViewportH: vp[1],
	}
	if len(p.proxies) > 0 {
		ident.ProxyURL = p.proxies[n%len(p.proxies)]
	}
	return ident
}
