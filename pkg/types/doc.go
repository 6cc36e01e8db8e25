// Package types defines the shared value types and sentinel errors
// used across the indexing pipeline.
//
// The core exchange types are:
//
//   - Task / TaskResult: the request/response unit exchanged with a
//     pool worker. A worker receives exactly one Task and must reply
//     with exactly one TaskResult.
//   - CodeBlock: a parsed, indexable unit of source content; the unit
//     upserted into the vector store.
//   - ScanResult: the immutable output of one directory scan.
//   - PoolStatus: an observational snapshot of worker pool state.
//   - IndexingState / ProgressStatus: the state machine vocabulary of
//     the progress reporter.
//
// Sentinel errors in errors.go form the pipeline's failure taxonomy.
// Use errors.Is to classify them; several carry messages that external
// observers match on verbatim.
package types
