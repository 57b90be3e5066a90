package llm

import (
	"context"
	"eleven/app/config"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/proxy"
)

func newHTTPClient(cfg config.LLM) (*http.Client, error) {
	if cfg.Proxy == "" {
		return &http.Client{Timeout: cfg.Timeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", cfg.Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create socks dialer: %w", err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}
