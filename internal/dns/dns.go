// Package dns resolves the signaling host with a public-resolver fallback,
// so a broken local DNS configuration does not strand the client.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Queried directly when the system resolver fails.
var publicDNS = []string{
	"1.1.1.1",        // Cloudflare
	"8.8.8.8",        // Google
	"9.9.9.9",        // Quad9
	"208.67.222.222", // Cisco OpenDNS
}

// Lookup resolves a hostname to an IP address, preferring IPv4. The
// system resolver is tried first; on failure the public resolvers are
// raced and the first answer wins.
func Lookup(host string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	ip, err := lookupWith(ctx, &net.Resolver{}, host)
	cancel()
	if err == nil {
		return ip, nil
	}

	return raceLookup(host)
}

func raceLookup(host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results := make(chan result, len(publicDNS))
	for _, server := range publicDNS {
		go func(server string) {
			ip, err := lookupWith(ctx, resolverFor(server), host)
			results <- result{ip: ip, err: err}
		}(server)
	}

	for range publicDNS {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("dns fallback timed out resolving %s", host)
		}
	}

	return "", fmt.Errorf("failed to resolve %s: all public resolvers failed", host)
}

// resolverFor forces queries to one specific DNS server on port 53.
func resolverFor(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := new(net.Dialer)
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
}

func lookupWith(ctx context.Context, r *net.Resolver, host string) (string, error) {
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no IP addresses found")
	}

	// Prefer IPv4.
	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
