package domain

import "strings"

// NormalizeHostname lowercases a host and strips any port and trailing dot.
func NormalizeHostname(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}
