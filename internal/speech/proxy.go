package speech

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// DialFunc opens a network connection, possibly through a proxy.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

const cloudTimeout = 120 * time.Second

// DialContext returns a dialer that goes through the SOCKS5 proxy at
// socksAddr, or nil for a direct connection when socksAddr is empty.
func DialContext(socksAddr string) (DialFunc, error) {
	if socksAddr == "" {
		return nil, nil
	}
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", socksAddr, err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

// NewHTTPClient returns the client used for cloud TTS requests.
func NewHTTPClient(socksAddr string) (*http.Client, error) {
	dial, err := DialContext(socksAddr)
	if err != nil {
		return nil, err
	}
	if dial == nil {
		return &http.Client{Timeout: cloudTimeout}, nil
	}
	return &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   cloudTimeout,
	}, nil
}
