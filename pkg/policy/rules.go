package policy

import (
	"encoding/json"
	"strings"
)

// Rule marks a host/path prefix as cacheable and configures how
// responses under it are vetted before storing.
type Rule struct {
	// Prefix matches against "<host><escaped-path>", e.g.
	// "api.twelvedata.com/eod".
	Prefix string

	// CheckBodyCode inspects 200 bodies for an embedded error code.
	// Some APIs report rate limits and outages inside a 200 envelope;
	// those responses must not be cached.
	CheckBodyCode bool
}

// Rules evaluates cacheability and store decisions. Rules are checked
// in order; the first matching prefix wins.
type Rules struct {
	rules []Rule
}

// NewRules compiles the rule list. Prefix hosts are lowercased so
// matching lines up with normalized request hosts.
func NewRules(rules []Rule) *Rules {
	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.Prefix = normalizePrefix(r.Prefix)
		if r.Prefix == "" {
			continue
		}
		compiled = append(compiled, r)
	}
	return &Rules{rules: compiled}
}

// normalizePrefix trims slashes and spaces and lowercases the host part.
func normalizePrefix(prefix string) string {
	prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "/")
	if i := strings.IndexByte(prefix, '/'); i >= 0 {
		return strings.ToLower(prefix[:i]) + prefix[i:]
	}
	return strings.ToLower(prefix)
}

// Cacheable reports whether responses for host+path participate in the
// cache at all. Non-cacheable requests are proxied straight through.
func (r *Rules) Cacheable(host, path string) bool {
	_, ok := r.match(host, path)
	return ok
}

// ShouldStore decides whether a fetched response is written to the
// cache:
//
//   - the request must match a cacheable prefix,
//   - only 200 responses are stored,
//   - under a body-checked rule, a JSON body carrying an embedded
//     error code (429 or 5xx) is not stored.
//
// Bodies that do not parse as a JSON object are stored; the upstream
// answered with data, not an error envelope.
func (r *Rules) ShouldStore(host, path string, statusCode int, body []byte) bool {
	rule, ok := r.match(host, path)
	if !ok {
		return false
	}

	if statusCode != 200 {
		return false
	}

	if rule.CheckBodyCode {
		if code, ok := embeddedErrorCode(body); ok && isErrorCode(code) {
			return false
		}
	}

	return true
}

// match returns the first rule whose prefix matches host+path.
func (r *Rules) match(host, path string) (Rule, bool) {
	target := strings.ToLower(host) + path
	for _, rule := range r.rules {
		if strings.HasPrefix(target, rule.Prefix) {
			return rule, true
		}
	}
	return Rule{}, false
}

// errorEnvelope is the error shape used by APIs that wrap failures in
// 200 responses, e.g. {"code": 429, "message": "...", "status": "error"}.
type errorEnvelope struct {
	Code int `json:"code"`
}

// embeddedErrorCode extracts the top-level "code" field from a JSON
// body. The second return is false when the body is not a JSON object
// or carries no code.
func embeddedErrorCode(body []byte) (int, bool) {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, false
	}
	if env.Code == 0 {
		return 0, false
	}
	return env.Code, true
}

// isErrorCode reports whether an embedded code marks a transient API
// error (rate limit or server-side failure).
func isErrorCode(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}
