package api

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"
)

// DialProbe reports the API host reachable when a TCP connection to it can be
// opened. A successful dial is remembered for a short while so bursts of
// requests do not each pay for a connection.
type DialProbe struct {
	addr    string
	timeout time.Duration
	ttl     time.Duration
	dialer  net.Dialer

	mu        sync.Mutex
	reachedAt time.Time
}

// NewDialProbe creates a probe for the host of baseURL
func NewDialProbe(baseURL string, timeout time.Duration) (*DialProbe, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid api url %q: missing host", baseURL)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DialProbe{
		addr:    net.JoinHostPort(u.Hostname(), port),
		timeout: timeout,
		ttl:     5 * time.Second,
	}, nil
}

// Reachable dials the API host
func (p *DialProbe) Reachable(ctx context.Context) error {
	p.mu.Lock()
	fresh := !p.reachedAt.IsZero() && time.Since(p.reachedAt) < p.ttl
	p.mu.Unlock()
	if fresh {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		p.mu.Lock()
		p.reachedAt = time.Time{}
		p.mu.Unlock()
		return fmt.Errorf("no connection to %s: %w", p.addr, err)
	}
	_ = conn.Close()

	p.mu.Lock()
	p.reachedAt = time.Now()
	p.mu.Unlock()
	return nil
}
