package memory

import "fmt"

// Hit is a single similarity-search result: the dense insertion position of
// the matched vector and its inner-product score against the query.
type Hit struct {
	Position int
	Score    float32
}

// VectorIndex is a flat in-memory inner-product index. Positions are dense,
// zero-based, and assigned in insertion order; there is no deletion or
// update, so a position is valid for the lifetime of the index.
//
// Search is a brute-force scan; one session stores at most a few dozen
// vectors. The index is not synchronised; the owning Memory serialises
// access.
type VectorIndex struct {
	dim     int
	vectors [][]float32
}

// NewVectorIndex creates an index for vectors of the given dimensionality.
// The dimension must match the configured embedding model's output.
func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{dim: dim}
}

// Len returns the number of stored vectors.
func (ix *VectorIndex) Len() int {
	return len(ix.vectors)
}

// Add appends a vector and returns its position. The vector is stored by
// reference; callers must not mutate it afterwards. A dimension mismatch is
// an error and leaves the index unchanged.
func (ix *VectorIndex) Add(vec []float32) (int, error) {
	if len(vec) != ix.dim {
		return 0, fmt.Errorf("vector index: dimension mismatch: got %d, want %d", len(vec), ix.dim)
	}
	ix.vectors = append(ix.vectors, vec)
	return len(ix.vectors) - 1, nil
}

// Search returns the top-k most similar vectors by inner product, highest
// score first. k is clamped to the index size. An empty index or a
// non-positive k yields nil without scanning.
func (ix *VectorIndex) Search(query []float32, k int) []Hit {
	if len(ix.vectors) == 0 || k <= 0 || len(query) != ix.dim {
		return nil
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	hits := make([]Hit, 0, len(ix.vectors))
	for pos, vec := range ix.vectors {
		hits = append(hits, Hit{Position: pos, Score: innerProduct(query, vec)})
	}

	sortHits(hits)
	return hits[:k]
}

// innerProduct computes the dot product of two equal-length vectors.
// Embeddings are unit-norm, so this equals cosine similarity.
func innerProduct(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// sortHits sorts hits by descending score. Insertion sort is stable, so
// ties keep insertion order.
func sortHits(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		key := hits[i]
		j := i - 1
		for j >= 0 && hits[j].Score < key.Score {
			hits[j+1] = hits[j]
			j--
		}
		hits[j+1] = key
	}
}
