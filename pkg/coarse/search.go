package coarse

// Result pairs a coarse-cell id with its squared distance to the query.
type Result struct {
	ID   uint32
	Dist float32
}

// Search descends greedily from the top layer to layer 0, then runs an
// ef-limited best-first search at layer 0, and returns up to k results in
// ascending-distance order. Searching an empty graph returns an empty,
// non-error result. Visited sets are local to each call and never leak
// across concurrent queries.
func (g *Graph) Search(query []float32, k int, ef int) []Result {
	g.mu.RLock()
	entryPoint := g.entryPoint
	maxLayer := g.maxLayer
	g.mu.RUnlock()

	if entryPoint == nil {
		return nil
	}
	if ef < k {
		ef = k
	}

	ep := entryPoint
	currentDist := distance(query, ep.vector)
	for lc := maxLayer; lc > 0; lc-- {
		changed := true
		for changed {
			changed = false
			for _, nbID := range ep.getNeighbors(lc) {
				nb := g.getNode(nbID)
				if nb == nil {
					continue
				}
				d := distance(query, nb.vector)
				if d < currentDist {
					currentDist = d
					ep = nb
					changed = true
				}
			}
		}
	}

	candidates := g.searchLayer(query, ep, ef, 0)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{ID: c.id, Dist: c.dist}
	}
	return out
}

// NearestAssignment runs a single-candidate search (ef=1, k=1): the
// greedy descent IndexCore uses to assign a sample to its nearest coarse
// centroid during PQ training. Returns false if the graph is empty.
func (g *Graph) NearestAssignment(query []float32) (Result, bool) {
	results := g.Search(query, 1, 1)
	if len(results) == 0 {
		return Result{}, false
	}
	return results[0], true
}
