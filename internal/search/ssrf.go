package search

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Hosts that are always rejected for outbound fetches.
var blockedHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
	"0.0.0.0":   {},
}

var blockedSuffixes = []string{".local", ".internal", ".localhost", ".localdomain"}

// ValidateTargetURL rejects URLs that could reach internal infrastructure.
// It checks the scheme, known-bad hostnames, internal domain suffixes, and
// private/reserved/loopback/link-local addresses, resolving hostnames so a
// public name pointing at an internal IP is caught too.
func ValidateTargetURL(ctx context.Context, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("only http and https URLs are supported")
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return fmt.Errorf("URL has no hostname")
	}

	if _, blocked := blockedHosts[hostname]; blocked {
		return fmt.Errorf("localhost URLs are not allowed")
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return fmt.Errorf("internal network domains are not allowed")
		}
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return checkIP(ip, hostname)
	}

	// Resolve and verify each address. Resolution failures are left to the
	// actual request, which will fail with a clearer error.
	resolveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupIPAddr(resolveCtx, hostname)
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if err := checkIP(addr.IP, addr.IP.String()); err != nil {
			return fmt.Errorf("hostname resolves to a blocked address: %w", err)
		}
	}
	return nil
}

func checkIP(ip net.IP, display string) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("loopback address %s is not allowed", display)
	case ip.IsPrivate():
		return fmt.Errorf("private address %s is not allowed", display)
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return fmt.Errorf("link-local address %s is not allowed", display)
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified address %s is not allowed", display)
	}
	return nil
}
