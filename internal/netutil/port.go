// Package netutil picks the control API listen address.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Listen binds the preferred address, falling back to the first candidate
// that can be bound when autoFallback is set. Blank and repeated candidates
// are skipped.
func Listen(preferred string, candidates []string, autoFallback bool) (net.Listener, error) {
	preferred = strings.TrimSpace(preferred)
	if preferred != "" {
		ln, err := net.Listen("tcp", preferred)
		if err == nil {
			return ln, nil
		}
		if !autoFallback {
			return nil, fmt.Errorf("preferred bind address unavailable: %s: %w", preferred, err)
		}
	}

	tried := map[string]bool{preferred: true}
	for _, addr := range candidates {
		addr = strings.TrimSpace(addr)
		if addr == "" || tried[addr] {
			continue
		}
		tried[addr] = true
		if ln, err := net.Listen("tcp", addr); err == nil {
			return ln, nil
		}
	}
	return nil, errors.New("no available controller bind addresses")
}

// SplitAddrs parses a comma-separated address list.
func SplitAddrs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
