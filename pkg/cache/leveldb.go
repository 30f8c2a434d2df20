package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// syncWrites forces every commit through to disk, so an acknowledged
// Put survives a crash of the process or the machine.
var syncWrites = &opt.WriteOptions{Sync: true}

// LevelDBStore persists cache entries in an embedded LevelDB database.
// It is the default backend: a single directory on a mounted volume,
// no external service. LevelDB serializes writers internally and reads
// are snapshot-consistent, which gives Put its atomicity.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) the database directory at path.
func OpenLevelDB(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (s *LevelDBStore) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := s.db.Get([]byte(key.String()), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("leveldb get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("leveldb").Inc()
	return &entry, nil
}

// Put stores a cache entry with a synchronous write.
func (s *LevelDBStore) Put(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.db.Put([]byte(key.String()), data, syncWrites); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("leveldb put: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
