package checker

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"
)

// Connectivity reports whether the client itself can reach the network.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// AlwaysOnline assumes the network is reachable.
type AlwaysOnline struct{}

func (AlwaysOnline) Online(context.Context) bool { return true }

// StaticConnectivity is a switchable Connectivity, used by tests and by
// callers that learn the state from elsewhere.
type StaticConnectivity struct {
	mu     sync.RWMutex
	online bool
}

// NewStaticConnectivity returns a StaticConnectivity in the given state.
func NewStaticConnectivity(online bool) *StaticConnectivity {
	return &StaticConnectivity{online: online}
}

func (s *StaticConnectivity) Online(context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// Set changes the reported state.
func (s *StaticConnectivity) Set(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}

// ProbeConnectivity dials the proxy host and caches the answer for TTL.
type ProbeConnectivity struct {
	addr    string
	timeout time.Duration
	ttl     time.Duration
	dialer  net.Dialer

	mu      sync.Mutex
	checked time.Time
	online  bool
}

// NewProbeConnectivity probes the host of proxyURL.
func NewProbeConnectivity(proxyURL string) (*ProbeConnectivity, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, err
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return &ProbeConnectivity{
		addr:    net.JoinHostPort(u.Hostname(), port),
		timeout: 3 * time.Second,
		ttl:     10 * time.Second,
	}, nil
}

func (p *ProbeConnectivity) Online(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checked.IsZero() && time.Since(p.checked) < p.ttl {
		return p.online
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err == nil {
		_ = conn.Close()
	}
	p.online = err == nil
	p.checked = time.Now()
	return p.online
}
