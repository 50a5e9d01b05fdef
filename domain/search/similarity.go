// Package search provides vector similarity primitives shared by the
// in-process chunk ranking and the embedding stores.
package search

import (
	"math"
	"slices"
)

// StoredVector is a vector with the id of whatever it embeds.
type StoredVector struct {
	id     string
	vector []float64
}

// NewStoredVector creates a StoredVector. The vector is copied.
func NewStoredVector(id string, vector []float64) StoredVector {
	return StoredVector{id: id, vector: slices.Clone(vector)}
}

// ID returns the id of the embedded item.
func (v StoredVector) ID() string { return v.id }

// Vector returns a copy of the vector.
func (v StoredVector) Vector() []float64 { return slices.Clone(v.vector) }

// Match is a scored similarity hit.
type Match struct {
	id         string
	similarity float64
}

// NewMatch creates a Match.
func NewMatch(id string, similarity float64) Match {
	return Match{id: id, similarity: similarity}
}

// ID returns the matched item's id.
func (m Match) ID() string { return m.id }

// Similarity returns the cosine similarity in [-1, 1].
func (m Match) Similarity() float64 { return m.similarity }

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths, empty vectors and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// TopK returns the k vectors most similar to query, most similar first.
// Ties keep their input order.
func TopK(query []float64, vectors []StoredVector, k int) []Match {
	if len(vectors) == 0 || k <= 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(vectors))
	for _, v := range vectors {
		matches = append(matches, NewMatch(v.id, CosineSimilarity(query, v.vector)))
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.similarity > b.similarity:
			return -1
		case a.similarity < b.similarity:
			return 1
		default:
			return 0
		}
	})

	return matches[:min(k, len(matches))]
}
