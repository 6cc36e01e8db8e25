// Package cache persists per-file content hashes between indexing
// runs in an embedded Badger database. A file whose current hash
// matches the cached one is skipped instead of re-parsed.
package cache
