package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "path without query",
			key: CacheKey{
				Host: "openexchangerates.org",
				Path: "/api/historical/2024-01-15.json",
			},
			want: "openexchangerates.org|/api/historical/2024-01-15.json|",
		},
		{
			name: "single parameter",
			key: CacheKey{
				Host:  "api.twelvedata.com",
				Path:  "/eod",
				Query: url.Values{"symbol": []string{"AAPL"}},
			},
			want: "api.twelvedata.com|/eod|symbol=AAPL",
		},
		{
			name: "parameters sorted by name",
			key: CacheKey{
				Host: "api.twelvedata.com",
				Path: "/eod",
				Query: url.Values{
					"symbol": []string{"AAPL"},
					"apikey": []string{"k1"},
				},
			},
			want: "api.twelvedata.com|/eod|apikey=k1&symbol=AAPL",
		},
		{
			name: "values percent-encoded",
			key: CacheKey{
				Host:  "api.twelvedata.com",
				Path:  "/eod",
				Query: url.Values{"symbol": []string{"BRK/A|x"}},
			},
			want: "api.twelvedata.com|/eod|symbol=BRK%2FA%7Cx",
		},
		{
			name: "repeated parameter keeps value order",
			key: CacheKey{
				Host:  "api.twelvedata.com",
				Path:  "/eod",
				Query: url.Values{"symbol": []string{"MSFT", "AAPL"}},
			},
			want: "api.twelvedata.com|/eod|symbol=MSFT&symbol=AAPL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey("API.TwelveData.com", "/eod", "symbol=AAPL&apikey=k1")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}

	if key.Host != "api.twelvedata.com" {
		t.Errorf("Expected lowercased host, got %q", key.Host)
	}
	if key.Path != "/eod" {
		t.Errorf("Unexpected path: %q", key.Path)
	}
	if key.Query.Get("symbol") != "AAPL" {
		t.Errorf("Expected symbol=AAPL, got %q", key.Query.Get("symbol"))
	}
}

func TestParseKey_AddsLeadingSlash(t *testing.T) {
	key, err := ParseKey("example.com", "rates", "")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if key.Path != "/rates" {
		t.Errorf("Expected /rates, got %q", key.Path)
	}
}

func TestParseKey_EmptyHost(t *testing.T) {
	_, err := ParseKey("", "/eod", "")
	if err == nil {
		t.Error("Expected error for empty host")
	}
}

func TestParseKey_MalformedQuery(t *testing.T) {
	_, err := ParseKey("example.com", "/rates", "a=%zz")
	if err == nil {
		t.Error("Expected error for malformed query encoding")
	}
}

// TestCacheKey_OrderInsensitive ensures two requests that differ only in
// parameter order produce the same key.
func TestCacheKey_OrderInsensitive(t *testing.T) {
	a, err := ParseKey("api.twelvedata.com", "/eod", "symbol=AAPL&apikey=k1&interval=1day")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	b, err := ParseKey("api.twelvedata.com", "/eod", "interval=1day&apikey=k1&symbol=AAPL")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}

	if a.String() != b.String() {
		t.Errorf("Keys differ under parameter reordering:\n  %s\n  %s", a.String(), b.String())
	}
}

// TestCacheKey_ValueSensitive ensures any differing parameter value
// produces a different key.
func TestCacheKey_ValueSensitive(t *testing.T) {
	base, _ := ParseKey("api.twelvedata.com", "/eod", "symbol=AAPL&apikey=k1")

	tests := []struct {
		name     string
		rawQuery string
	}{
		{"changed_value", "symbol=MSFT&apikey=k1"},
		{"extra_param", "symbol=AAPL&apikey=k1&interval=1day"},
		{"removed_param", "symbol=AAPL"},
		{"duplicated_param", "symbol=AAPL&symbol=AAPL&apikey=k1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := ParseKey("api.twelvedata.com", "/eod", tt.rawQuery)
			if err != nil {
				t.Fatalf("ParseKey failed: %v", err)
			}
			if other.String() == base.String() {
				t.Errorf("Expected distinct key for %q, both map to %s", tt.rawQuery, base.String())
			}
		})
	}
}

// TestCacheKey_EmptyQueryEqualsAbsent ensures a request without a query
// string and one with an empty query string map to the same key.
func TestCacheKey_EmptyQueryEqualsAbsent(t *testing.T) {
	absent, _ := ParseKey("openexchangerates.org", "/api/historical/2024-01-15.json", "")
	empty := CacheKey{
		Host:  "openexchangerates.org",
		Path:  "/api/historical/2024-01-15.json",
		Query: url.Values{},
	}

	if absent.String() != empty.String() {
		t.Errorf("Absent and empty query produce different keys:\n  %s\n  %s",
			absent.String(), empty.String())
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key, err := ParseKey("api.twelvedata.com", "/eod", "symbol=AAPL&apikey=k1&symbol=MSFT")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}

	// Generate key multiple times
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = key.String()
	}

	// All results should be identical
	first := results[0]
	for i, result := range results {
		if result != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, result, first)
		}
	}
}
