package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"Opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"Orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"ZeroVector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"BothZero", []float32{0, 0}, []float32{0, 0}, 0},
		{"LengthMismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"Scaled", []float32{1, 1}, []float32{5, 5}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			assert.InDelta(t, tc.want, got, 1e-6)
		})
	}
}
