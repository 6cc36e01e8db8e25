// Package vectorstore persists embedded code blocks in SQLite and
// serves cosine-similarity queries over them.
//
// Two build modes are supported: with the sqlite_vec tag (CGO,
// mattn/go-sqlite3) similarity ranking happens inside SQLite via the
// sqlite-vec extension; the default purego build (modernc.org/sqlite)
// scores candidates in Go. Vectors are stored as little-endian float32
// blobs either way, so databases are portable between modes.
package vectorstore
