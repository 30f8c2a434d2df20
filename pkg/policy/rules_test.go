package policy

import "testing"

// defaultRules mirrors the stock configuration: historical exchange
// rates cached plainly, twelvedata end-of-day data with body checking.
func defaultRules() *Rules {
	return NewRules([]Rule{
		{Prefix: "openexchangerates.org/api/historical"},
		{Prefix: "api.twelvedata.com/eod", CheckBodyCode: true},
	})
}

func TestRules_Cacheable(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name string
		host string
		path string
		want bool
	}{
		{
			name: "historical rates",
			host: "openexchangerates.org",
			path: "/api/historical/2024-01-15.json",
			want: true,
		},
		{
			name: "eod endpoint",
			host: "api.twelvedata.com",
			path: "/eod",
			want: true,
		},
		{
			name: "latest rates not cacheable",
			host: "openexchangerates.org",
			path: "/api/latest.json",
			want: false,
		},
		{
			name: "quote endpoint not cacheable",
			host: "api.twelvedata.com",
			path: "/quote",
			want: false,
		},
		{
			name: "uppercase host still matches",
			host: "API.TWELVEDATA.COM",
			path: "/eod",
			want: true,
		},
		{
			name: "unknown host",
			host: "example.com",
			path: "/api/historical/2024-01-15.json",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.Cacheable(tt.host, tt.path); got != tt.want {
				t.Errorf("Cacheable(%q, %q) = %v, want %v", tt.host, tt.path, got, tt.want)
			}
		})
	}
}

func TestRules_ShouldStore(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name       string
		host       string
		path       string
		statusCode int
		body       string
		want       bool
	}{
		{
			name:       "plain rule stores 200",
			host:       "openexchangerates.org",
			path:       "/api/historical/2024-01-15.json",
			statusCode: 200,
			body:       `{"rates": {"EUR": 0.92}}`,
			want:       true,
		},
		{
			name:       "non-200 not stored",
			host:       "openexchangerates.org",
			path:       "/api/historical/2024-01-15.json",
			statusCode: 404,
			body:       `{"error": true}`,
			want:       false,
		},
		{
			name:       "server error not stored",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 502,
			body:       "bad gateway",
			want:       false,
		},
		{
			name:       "non-cacheable path not stored",
			host:       "api.twelvedata.com",
			path:       "/quote",
			statusCode: 200,
			body:       `{"symbol": "AAPL"}`,
			want:       false,
		},
		{
			name:       "checked rule stores clean body",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 200,
			body:       `{"symbol": "AAPL", "close": "189.84"}`,
			want:       true,
		},
		{
			name:       "embedded rate limit not stored",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 200,
			body:       `{"code": 429, "message": "You have run out of API credits", "status": "error"}`,
			want:       false,
		},
		{
			name:       "embedded server error not stored",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 200,
			body:       `{"code": 500, "message": "internal error", "status": "error"}`,
			want:       false,
		},
		{
			name:       "embedded 599 not stored",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 200,
			body:       `{"code": 599, "message": "network error"}`,
			want:       false,
		},
		{
			name:       "embedded client error is stored",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 200,
			body:       `{"code": 404, "message": "symbol not found"}`,
			want:       true,
		},
		{
			name:       "unparseable body is stored",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 200,
			body:       `not json at all`,
			want:       true,
		},
		{
			name:       "array body is stored",
			host:       "api.twelvedata.com",
			path:       "/eod",
			statusCode: 200,
			body:       `[{"symbol": "AAPL"}]`,
			want:       true,
		},
		{
			name:       "plain rule ignores embedded code",
			host:       "openexchangerates.org",
			path:       "/api/historical/2024-01-15.json",
			statusCode: 200,
			body:       `{"code": 429}`,
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.ShouldStore(tt.host, tt.path, tt.statusCode, []byte(tt.body))
			if got != tt.want {
				t.Errorf("ShouldStore(%q, %q, %d) = %v, want %v",
					tt.host, tt.path, tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestRules_FirstMatchWins(t *testing.T) {
	rules := NewRules([]Rule{
		{Prefix: "api.example.com/data/special", CheckBodyCode: false},
		{Prefix: "api.example.com/data", CheckBodyCode: true},
	})

	// The special prefix matches first, so the embedded code is ignored.
	stored := rules.ShouldStore("api.example.com", "/data/special", 200, []byte(`{"code": 429}`))
	if !stored {
		t.Error("Expected first matching rule (no body check) to win")
	}

	// The general prefix applies body checking.
	stored = rules.ShouldStore("api.example.com", "/data/other", 200, []byte(`{"code": 429}`))
	if stored {
		t.Error("Expected body-checked rule to reject embedded 429")
	}
}

func TestNewRules_Normalizes(t *testing.T) {
	rules := NewRules([]Rule{
		{Prefix: " /API.Example.com/Rates "},
		{Prefix: ""},
	})

	if !rules.Cacheable("api.example.com", "/Rates/today") {
		t.Error("Expected normalized prefix to match")
	}
	if rules.Cacheable("api.example.com", "/rates/today") {
		t.Error("Path matching is case-sensitive; only the host is folded")
	}
}

func TestEmbeddedErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantOK   bool
	}{
		{"object with code", `{"code": 429}`, 429, true},
		{"object without code", `{"message": "hi"}`, 0, false},
		{"zero code", `{"code": 0}`, 0, false},
		{"array", `[1, 2, 3]`, 0, false},
		{"plain text", `hello`, 0, false},
		{"empty body", ``, 0, false},
		{"string code", `{"code": "429"}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := embeddedErrorCode([]byte(tt.body))
			if code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("embeddedErrorCode(%q) = (%d, %v), want (%d, %v)",
					tt.body, code, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}
