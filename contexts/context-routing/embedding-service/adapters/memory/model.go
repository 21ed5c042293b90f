package memory

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// HashModel is a deterministic, referentially transparent stand-in for the
// real embedding model (a sentence-transformer network in the original
// implementation). The engine treats encode(text) as an opaque function;
// nothing downstream depends on the vectors carrying real semantic meaning
// beyond "identical input text maps to an identical vector, and similar
// bag-of-words inputs produce correlated vectors" — which a hashed,
// token-bucketed projection gives cheaply without pulling in a model runtime.
type HashModel struct {
	Dimensions int
}

func NewHashModel() *HashModel {
	return &HashModel{Dimensions: 384}
}

func (m *HashModel) Encode(_ context.Context, text string) ([]float32, error) {
	dims := m.Dimensions
	if dims <= 0 {
		dims = 384
	}
	vector := make([]float32, dims)

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	for _, tok := range tokens {
		sum := sha256.Sum256([]byte(tok))
		for i := 0; i < dims; i++ {
			byteIdx := (i * 8) % len(sum)
			seed := binary.LittleEndian.Uint64(padTo8(sum[byteIdx:]))
			// map the seed into [-1, 1) and accumulate per token so the
			// vector reflects the whole bag of words, not just the last one
			vector[i] += float32(int64(seed%2000001)-1000000) / 1_000_000
		}
	}

	normalize(vector)
	return vector, nil
}

func padTo8(b []byte) []byte {
	if len(b) >= 8 {
		return b[:8]
	}
	padded := make([]byte, 8)
	copy(padded, b)
	return padded
}

func normalize(vector []float32) {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}
	for i, v := range vector {
		vector[i] = float32(float64(v) / norm)
	}
}
