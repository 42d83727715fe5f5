package rag

import (
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Dimensions is the fixed width of every vector this package produces and
// indexes. sqlite-vec's vec0 virtual table requires a fixed dimension per
// column, so embeddings and queries must agree on this up front.
const Dimensions = 256

// hashEmbed turns text into a Dimensions-wide unit vector via the hashing
// trick: each token is hashed into a bucket and a sign, and the resulting
// bag is L2-normalized. This is the stand-in embedding used when no
// learned embedding model is wired in (spec §6.6 leaves embed's algorithm
// to the provider) — deterministic, dependency-free beyond the xxhash
// already used by pkg/engine's DiffSnapshot pre-check, and stable across runs so
// fingerprints and search results never drift with process restarts.
func hashEmbed(text string) []float32 {
	vec := make([]float64, Dimensions)
	for _, tok := range tokenize(text) {
		h := xxhash.Sum64String(tok)
		bucket := h % uint64(Dimensions)
		sign := float64(1)
		if (h>>63)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, Dimensions)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// tokenize lowercases and splits on anything that isn't a letter or digit,
// dropping empty fields.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return fields
}

// cosineFromL2 recovers cosine similarity from the L2 distance between two
// unit vectors: for unit a, b, |a-b|^2 = 2 - 2*cos(a,b).
func cosineFromL2(distance float64) float64 {
	sim := 1 - (distance*distance)/2
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}
