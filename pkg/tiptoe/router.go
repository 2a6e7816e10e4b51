package tiptoe

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SelectCluster picks the top-1 centroid by dot-product similarity against
// query (both assumed L2-normalized, so dot product is cosine similarity),
// per spec.md §4.4 step 2. Ties are broken by lowest index.
//
// A zero query vector scores 0 against every centroid, so the tie-break
// rule alone resolves it to cluster 0 — spec.md's Open Question 3 answer
// falls directly out of this rule without a special case.
func SelectCluster(centroids *mat.Dense, query []float64) int {
	k, _ := centroids.Dims()
	best, bestScore := 0, negInf
	for c := 0; c < k; c++ {
		row := mat.Row(nil, c, centroids)
		score := dot(row, query)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

const negInf = -1e300

func dot(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// NormalizeVector L2-normalizes v in place and returns it, for query-time
// embeddings that corpus.L2Normalize (matrix-oriented) doesn't directly
// cover.
func NormalizeVector(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] /= norm
	}
	return v
}
