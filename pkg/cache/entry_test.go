package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_Age(t *testing.T) {
	entry := &CacheEntry{
		StoredAt: time.Now().Add(-2 * time.Hour),
	}

	age := entry.Age()
	if age < 2*time.Hour || age > 2*time.Hour+time.Minute {
		t.Errorf("Expected age around 2h, got %s", age)
	}
}

func TestCacheEntry_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		storedAt time.Time
		ttl      time.Duration
		want     bool
	}{
		{
			name:     "fresh entry",
			storedAt: time.Now().Add(-1 * time.Minute),
			ttl:      1 * time.Hour,
			want:     false,
		},
		{
			name:     "stale entry",
			storedAt: time.Now().Add(-2 * time.Hour),
			ttl:      1 * time.Hour,
			want:     true,
		},
		{
			name:     "just within ttl",
			storedAt: time.Now().Add(-59 * time.Minute),
			ttl:      1 * time.Hour,
			want:     false,
		},
		{
			name:     "zero ttl never stale",
			storedAt: time.Now().Add(-365 * 24 * time.Hour),
			ttl:      0,
			want:     false,
		},
		{
			name:     "negative ttl never stale",
			storedAt: time.Now().Add(-24 * time.Hour),
			ttl:      -1 * time.Second,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{StoredAt: tt.storedAt}
			if got := entry.IsStale(tt.ttl); got != tt.want {
				t.Errorf("IsStale(%v) = %v, want %v", tt.ttl, got, tt.want)
			}
		})
	}
}
