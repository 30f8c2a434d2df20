package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/justin8/apicache/pkg/cache"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestCacheFamiliesRegistered(t *testing.T) {
	// Touch a cache counter so the family is certain to be gatherable.
	cache.CacheMisses.Add(0)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "apicache_cache_misses_total" {
			found = true
			break
		}
	}

	if !found {
		t.Error("Expected apicache_cache_misses_total to be registered")
	}
}
