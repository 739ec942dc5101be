package quant

import (
	"math/rand"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/vecmath"
)

// KMeansPlusPlus clusters vectors into k centroids using k-means++
// initialization followed by Lloyd's-algorithm refinement. Unlike a naive
// implementation, a cluster that goes empty during refinement is not left
// with its stale centroid: the largest cluster is split in two so every
// centroid keeps doing useful work.
// KMeansPlusPlus returns the trained centroids and the number of empty
// clusters that had to be split across all refinement iterations.
func KMeansPlusPlus(vectors [][]float32, k int, cfg TrainConfig) ([][]float32, int, error) {
	if len(vectors) < k {
		return nil, 0, &ivferrors.InsufficientTrainingDataError{Have: len(vectors), Need: k}
	}
	dim := len(vectors[0])
	r := rand.New(rand.NewSource(cfg.RandomSeed))

	centroids := make([][]float32, k)
	first := r.Intn(len(vectors))
	centroids[0] = append([]float32(nil), vectors[first]...)

	for c := 1; c < k; c++ {
		distances := make([]float32, len(vectors))
		var total float32
		for i, v := range vectors {
			minDist := nearestCentroidDist(v, centroids[:c])
			distances[i] = minDist * minDist
			total += distances[i]
		}
		if total > 0 {
			target := r.Float32() * total
			var cumulative float32
			chosen := len(vectors) - 1
			for i, d := range distances {
				cumulative += d
				if cumulative >= target {
					chosen = i
					break
				}
			}
			centroids[c] = append([]float32(nil), vectors[chosen]...)
		} else {
			centroids[c] = append([]float32(nil), vectors[r.Intn(len(vectors))]...)
		}
	}

	assign := make([]int, len(vectors))
	totalSplits := 0
	for iter := 0; iter < cfg.NumIterations; iter++ {
		clusters := make([][]int, k)
		for i, v := range vectors {
			cluster := nearestCentroidIdx(v, centroids)
			assign[i] = cluster
			clusters[cluster] = append(clusters[cluster], i)
		}

		totalSplits += splitEmptyClusters(vectors, clusters)

		converged := true
		for c := range centroids {
			if len(clusters[c]) == 0 {
				continue
			}
			newCentroid := make([]float32, dim)
			for _, vi := range clusters[c] {
				vecmath.AddInto(newCentroid, vectors[vi])
			}
			inv := 1.0 / float32(len(clusters[c]))
			for d := 0; d < dim; d++ {
				newCentroid[d] *= inv
			}
			if vecmath.L2(centroids[c], newCentroid) > 1e-6 {
				converged = false
			}
			centroids[c] = newCentroid
		}

		if converged {
			break
		}
	}

	return centroids, totalSplits, nil
}

// splitEmptyClusters reassigns one member of the largest cluster to each
// empty cluster, so every centroid in the next refinement pass has at
// least one point to recompute its mean from. Returns the number of
// clusters it split.
func splitEmptyClusters(vectors [][]float32, clusters [][]int) int {
	splits := 0
	for c := range clusters {
		if len(clusters[c]) != 0 {
			continue
		}
		largest := 0
		for i := range clusters {
			if len(clusters[i]) > len(clusters[largest]) {
				largest = i
			}
		}
		if len(clusters[largest]) < 2 {
			continue
		}
		moved := clusters[largest][len(clusters[largest])-1]
		clusters[largest] = clusters[largest][:len(clusters[largest])-1]
		clusters[c] = []int{moved}
		splits++
	}
	return splits
}

func nearestCentroidDist(v []float32, centroids [][]float32) float32 {
	_, dist := nearestCentroid(v, centroids)
	return dist
}

func nearestCentroidIdx(v []float32, centroids [][]float32) int {
	idx, _ := nearestCentroid(v, centroids)
	return idx
}

func nearestCentroid(v []float32, centroids [][]float32) (int, float32) {
	best := 0
	bestDist := vecmath.L2(v, centroids[0])
	for i := 1; i < len(centroids); i++ {
		d := vecmath.L2(v, centroids[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, bestDist
}
