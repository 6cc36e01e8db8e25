package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// CodeBlock is a parsed, indexable unit of source content with
// location metadata. Hash is the SHA-256 of Content and is used
// for deduplication and incremental re-indexing.
type CodeBlock struct {
	Content   string
	FilePath  string
	StartLine int
	EndLine   int
	Hash      string
}

// ScanStats counts the outcome of one scan invocation.
type ScanStats struct {
	Processed int
	Skipped   int
}

// ScanResult is the final output of one directory scan.
// It is immutable once returned.
type ScanResult struct {
	CodeBlocks []CodeBlock
	Stats      ScanStats
}

// ComputeHash fills in the block's content hash.
func (b *CodeBlock) ComputeHash() {
	sum := sha256.Sum256([]byte(b.Content))
	b.Hash = hex.EncodeToString(sum[:])
}

// Validate checks that the block is well formed.
func (b *CodeBlock) Validate() error {
	if b.Content == "" {
		return errors.New("block content cannot be empty")
	}
	if b.FilePath == "" {
		return errors.New("block file path is required")
	}
	if b.StartLine <= 0 || b.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if b.StartLine > b.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	return nil
}
