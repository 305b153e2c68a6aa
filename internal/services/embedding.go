package services

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/yoockh/screencopilot/internal/models"
)

// Embedder turns text into a vector of models.EmbeddingDims floats. Every
// row of one database must come from the same Embedder, or distances between
// rows are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashEmbedder is the local Embedder used when no embedding model is
// configured.
type HashEmbedder struct{}

func (HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return HashEmbedding(text), nil
}

// HashEmbedding maps text to a unit-length bag-of-words vector using the
// hashing trick. It is lexical only: rows that share words land close
// together, synonyms do not.
func HashEmbedding(text string) []float32 {
	vec := make([]float32, models.EmbeddingDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return nil
	}

	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum32()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[(sum>>1)%models.EmbeddingDims] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
