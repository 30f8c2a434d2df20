// Package policy decides which upstream hosts the proxy may contact
// and which responses it stores.
package policy

import "strings"

// Allowlist is an immutable set of permitted upstream hosts.
// A request for any host outside the set is rejected before the cache
// or the network is touched.
type Allowlist struct {
	hosts map[string]struct{}
}

// NewAllowlist builds the allowlist from exact host names. Hosts are
// normalized (trimmed, lowercased); no wildcard or subdomain matching.
func NewAllowlist(hosts []string) Allowlist {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		set[h] = struct{}{}
	}
	return Allowlist{hosts: set}
}

// Permits reports whether host is in the allowlist. Matching is exact:
// "api.evil.com" does not match "evil.com" and vice versa.
func (a Allowlist) Permits(host string) bool {
	_, ok := a.hosts[strings.ToLower(strings.TrimSpace(host))]
	return ok
}

// Len returns the number of allowed hosts.
func (a Allowlist) Len() int {
	return len(a.hosts)
}
