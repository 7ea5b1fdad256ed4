package matching

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"math/rand/v2"
	"strconv"
)

const EmbeddingDimension = 512

// Seed is the first 8 hex digits of md5(text) read as an integer.
func Seed(text string) uint64 {
	sum := md5.Sum([]byte(text))
	seed, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 64)
	return seed
}

// Embed turns text into a deterministic unit vector of dim standard normal
// draws. It stands in for a learned image/text encoder.
func Embed(text string, dim int) []float64 {
	if dim <= 0 {
		dim = EmbeddingDimension
	}
	rng := rand.New(rand.NewPCG(Seed(text), 0))

	vec := make([]float64, dim)
	var norm float64
	for i := range vec {
		vec[i] = rng.NormFloat64()
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func ItemText(category string) string {
	return category + " furniture"
}

func ProductText(category, name, brand string) string {
	return category + " " + name + " " + brand
}

// Cosine returns 0 for empty, mismatched or zero-norm vectors.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
