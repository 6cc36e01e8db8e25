package cache

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// HashCache records the last indexed content hash per file, so
// unchanged files can be skipped on re-scans.
type HashCache interface {
	// GetHash returns the stored hash for a path, or "" when unknown.
	GetHash(path string) (string, error)

	// SetHash records the hash for a path.
	SetHash(path, hash string) error

	// DeleteHash forgets a path.
	DeleteHash(path string) error

	// AllHashes returns every known path-to-hash mapping.
	AllHashes() (map[string]string, error)

	// Clear drops every entry.
	Clear() error

	// Close releases the underlying store.
	Close() error
}

// BadgerCache implements HashCache on an embedded Badger database.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache opens (creating if necessary) a cache at dir. An
// empty dir opens an in-memory cache, useful for testing.
func NewBadgerCache(dir string) (*BadgerCache, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	// Badger's own logging is noisy at Info; silence it.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open hash cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// GetHash returns the stored hash for a path, or "" when unknown.
func (c *BadgerCache) GetHash(path string) (string, error) {
	var hash string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			hash = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read hash for %s: %w", path, err)
	}
	return hash, nil
}

// SetHash records the hash for a path.
func (c *BadgerCache) SetHash(path, hash string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), []byte(hash))
	})
	if err != nil {
		return fmt.Errorf("failed to store hash for %s: %w", path, err)
	}
	return nil
}

// DeleteHash forgets a path.
func (c *BadgerCache) DeleteHash(path string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(path))
	})
	if err != nil {
		return fmt.Errorf("failed to delete hash for %s: %w", path, err)
	}
	return nil
}

// AllHashes returns every known path-to-hash mapping.
func (c *BadgerCache) AllHashes() (map[string]string, error) {
	out := make(map[string]string)
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				out[key] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate hashes: %w", err)
	}
	return out, nil
}

// Clear drops every entry.
func (c *BadgerCache) Clear() error {
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("failed to clear hash cache: %w", err)
	}
	return nil
}

// Close releases the underlying store.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
