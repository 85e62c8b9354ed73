package embedding

import (
	"context"
	"math"
)

type EmbeddingRequest struct {
	Inputs []string `json:"inputs"`
}

type EmbeddingResponse [][]float32

type Client interface {
	// If you send 3 texts, you’ll get 3 vectors.
	// If you send 1 text, you’ll still get 1 vector — but wrapped in a list.
	// Input: ["this is a text"] → list of strings
	// Output: [ [0.12, -0.33, 0.57, ...] ]
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is fixed for the lifetime of an index; changing it
	// invalidates existing snapshots and requires a rebuild.
	Dimension() int
}

// CosineSimilarity returns dot(a,b)/(|a|*|b|). Mismatched lengths and
// zero vectors yield 0 rather than an error.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
