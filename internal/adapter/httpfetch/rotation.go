package httpfetch

import (
	"math/rand"
	"sync"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

// Rotator hands out proxies round-robin and user agents at random.
type Rotator struct {
	mu         sync.Mutex
	proxies    []string
	proxyIndex int
	userAgents []string
	rnd        *rand.Rand
}

// NewRotator builds a rotator over proxies; an empty list means direct connections.
func NewRotator(proxies []string) *Rotator {
	return &Rotator{
		proxies:    proxies,
		userAgents: defaultUserAgents,
		rnd:        rand.New(rand.NewSource(rand.Int63())),
	}
}

// NextProxy returns the next proxy index, or -1 when no proxies are configured.
func (r *Rotator) NextProxy() int {
	if len(r.proxies) == 0 {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.proxyIndex
	r.proxyIndex = (r.proxyIndex + 1) % len(r.proxies)
	return i
}

func (r *Rotator) UserAgent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userAgents[r.rnd.Intn(len(r.userAgents))]
}
