package api

import (
	"net"
	"net/http"
	"time"
)

// DefaultTransport returns an HTTP transport with connection limits and
// bounded dial and handshake times
func DefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		MaxConnsPerHost:     16,
		MaxIdleConnsPerHost: 4,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
