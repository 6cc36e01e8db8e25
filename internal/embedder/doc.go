// Package embedder generates vector embeddings for code blocks.
//
// The default provider talks to the OpenAI embeddings API (or any
// API-compatible endpoint via BaseURL) with exponential-backoff retry.
// An in-memory LRU cache keyed on content hash keeps re-indexing runs
// from paying for unchanged blocks twice.
package embedder
