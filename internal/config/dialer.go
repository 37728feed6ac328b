package config

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

// ContextDialer is satisfied by every dialer returned by Dialer.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Dialer builds the dialer shared by the chat and transfer connections.
// With no proxy configured, ALL_PROXY and NO_PROXY from the environment
// apply.
func (c *Config) Dialer() (ContextDialer, error) {
	direct := &net.Dialer{Timeout: c.DialTimeout}

	var d proxy.Dialer
	if c.Proxy == "" {
		d = proxy.FromEnvironmentUsing(direct)
	} else {
		u, err := url.Parse(c.Proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: proxy %q: %w", ErrInvalidConfiguration, c.Proxy, err)
		}
		d, err = proxy.FromURL(u, direct)
		if err != nil {
			return nil, fmt.Errorf("%w: proxy %q: %w", ErrInvalidConfiguration, c.Proxy, err)
		}
	}

	cd, ok := d.(ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: proxy %q does not support contexts", ErrInvalidConfiguration, c.Proxy)
	}
	return cd, nil
}
