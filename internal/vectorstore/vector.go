package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vectors are persisted as packed little-endian float32 words. The
// sqlite-vec extension reads the same layout, so one blob column
// serves both build modes.

func encodeVector(v []float32) []byte {
	blob := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(blob[4*i:], math.Float32bits(f))
	}
	return blob
}

func decodeVector(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v
}

// cosineSimilarity scores two vectors in [-1, 1]. Accumulation is in
// float64 to keep long vectors from losing precision. A width mismatch
// means the index was built with a different embedding model than the
// query and is reported as ErrDimensionMismatch.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / math.Sqrt(normA*normB), nil
}
