package corpus

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// KMeansParams configures the clustering step of spec.md §4.3 step 2.
type KMeansParams struct {
	K             int     // number of clusters; spec.md default is ceil(sqrt(N))
	MaxIter       int     // iteration cap
	Tau           float64 // centroid-shift convergence threshold
	Seed          uint64  // external seed for determinism (spec.md: "seed provided externally")
	MaxPerCluster int     // cap enforced by reassignment, spec.md §9 "cluster overflow"
}

// DefaultK returns ceil(sqrt(n)), spec.md §4.3 step 2's default cluster
// count.
func DefaultK(n int) int {
	if n <= 0 {
		return 1
	}
	k := int(math.Ceil(math.Sqrt(float64(n))))
	if k < 1 {
		k = 1
	}
	return k
}

// KMeansResult holds the centroids and the per-document cluster assignment
// produced by KMeans.
type KMeansResult struct {
	Centroids  *mat.Dense // k x d
	Assignment []int      // length N, Assignment[i] in [0, k)
}

// KMeans runs Lloyd's algorithm on e (N x d), seeded for determinism,
// stopping when the maximum centroid shift falls below params.Tau or
// params.MaxIter is reached, per spec.md §4.3 step 2. Clusters left empty
// by an iteration are reseeded from the farthest point from its own
// centroid, matching the usual Lloyd's-algorithm degenerate-cluster fix.
func KMeans(e *mat.Dense, params KMeansParams) (*KMeansResult, error) {
	n, d := e.Dims()
	if params.K <= 0 || params.K > n {
		return nil, pirerr.New(pirerr.KindInvalidConfig, "invalid cluster count k=%d for n=%d documents", params.K, n)
	}
	maxIter := params.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	tau := params.Tau
	if tau <= 0 {
		tau = 1e-4
	}

	rng := rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15))

	centroids := mat.NewDense(params.K, d, nil)
	perm := rng.Perm(n)
	for c := 0; c < params.K; c++ {
		centroids.SetRow(c, mat.Row(nil, perm[c], e))
	}

	assignment := make([]int, n)

	for iter := 0; iter < maxIter; iter++ {
		counts := make([]int, params.K)
		sums := mat.NewDense(params.K, d, nil)

		for i := 0; i < n; i++ {
			row := mat.Row(nil, i, e)
			best, bestDist := 0, math.Inf(1)
			for c := 0; c < params.K; c++ {
				dist := sqDist(row, mat.Row(nil, c, centroids))
				if dist < bestDist {
					best, bestDist = c, dist
				}
			}
			assignment[i] = best
			counts[best]++
			for j := 0; j < d; j++ {
				sums.Set(best, j, sums.At(best, j)+row[j])
			}
		}

		var maxShift float64
		for c := 0; c < params.K; c++ {
			old := mat.Row(nil, c, centroids)
			var newRow []float64
			if counts[c] == 0 {
				// Degenerate cluster: reseed from the point currently
				// farthest from its own assigned centroid.
				newRow = farthestPoint(e, centroids, assignment)
			} else {
				newRow = make([]float64, d)
				for j := 0; j < d; j++ {
					newRow[j] = sums.At(c, j) / float64(counts[c])
				}
			}
			shift := math.Sqrt(sqDist(old, newRow))
			if shift > maxShift {
				maxShift = shift
			}
			centroids.SetRow(c, newRow)
		}

		if maxShift < tau {
			break
		}
	}

	if params.MaxPerCluster > 0 {
		assignment = capClusters(e, centroids, assignment, params.MaxPerCluster)
	}

	return &KMeansResult{Centroids: centroids, Assignment: assignment}, nil
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func farthestPoint(e, centroids *mat.Dense, assignment []int) []float64 {
	n, _ := e.Dims()
	best, bestDist := 0, -1.0
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, e)
		c := assignment[i]
		dist := sqDist(row, mat.Row(nil, c, centroids))
		if dist > bestDist {
			best, bestDist = i, dist
		}
	}
	return mat.Row(nil, best, e)
}

// capClusters implements spec.md §9's "cluster overflow" design note via
// nearest-center-under-cap reassignment: documents in an over-full cluster
// are reassigned, in order of decreasing distance to their own centroid (so
// the best-fitting members stay put), to their next-nearest cluster that
// still has room.
func capClusters(e, centroids *mat.Dense, assignment []int, cap int) []int {
	n, _ := e.Dims()
	k, _ := centroids.Dims()

	counts := make([]int, k)
	for _, c := range assignment {
		counts[c]++
	}

	type member struct {
		doc  int
		dist float64
	}
	byCluster := make([][]member, k)
	for i, c := range assignment {
		row := mat.Row(nil, i, e)
		byCluster[c] = append(byCluster[c], member{doc: i, dist: sqDist(row, mat.Row(nil, c, centroids))})
	}

	out := make([]int, n)
	copy(out, assignment)

	for c := 0; c < k; c++ {
		if counts[c] <= cap {
			continue
		}
		members := byCluster[c]
		// Farthest-first: the worst-fitting members of an overflowing
		// cluster are the ones moved out.
		for i := range members {
			for j := i + 1; j < len(members); j++ {
				if members[j].dist > members[i].dist {
					members[i], members[j] = members[j], members[i]
				}
			}
		}
		excess := counts[c] - cap
		for i := 0; i < excess; i++ {
			doc := members[i].doc
			row := mat.Row(nil, doc, e)
			bestC, bestDist := -1, math.Inf(1)
			for cc := 0; cc < k; cc++ {
				if cc == c || counts[cc] >= cap {
					continue
				}
				dist := sqDist(row, mat.Row(nil, cc, centroids))
				if dist < bestDist {
					bestC, bestDist = cc, dist
				}
			}
			if bestC == -1 {
				// No cluster has room; leave it in place rather than
				// dropping the document.
				continue
			}
			out[doc] = bestC
			counts[c]--
			counts[bestC]++
		}
	}

	return out
}
