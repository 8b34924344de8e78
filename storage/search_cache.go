package storage

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// DefaultSearchCacheTTL keeps search responses for a week.
const DefaultSearchCacheTTL = 7 * 24 * time.Hour

// SearchCache is a badger-backed cache of raw places-search responses, so
// repeated runs do not spend the search budget on the same queries.
type SearchCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenSearchCache opens (or creates) the cache in dir. An empty dir keeps
// the cache in memory.
func OpenSearchCache(dir string, ttl time.Duration) (*SearchCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("search cache: open %q: %w", dir, err)
	}
	if ttl <= 0 {
		ttl = DefaultSearchCacheTTL
	}
	return &SearchCache{db: db, ttl: ttl}, nil
}

// Get returns the cached value for key.
func (c *SearchCache) Get(key string) ([]byte, bool) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return out, true
}

// Set stores value under key for the cache TTL.
func (c *SearchCache) Set(key string, value []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(c.ttl))
	})
}

func (c *SearchCache) Close() error {
	return c.db.Close()
}
