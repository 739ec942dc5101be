package coarse

import (
	"container/heap"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
)

// Insert adds vec under id. It is idempotent: if id already exists the
// call returns without effect, matching the duplicate-id failure
// semantics spec.md requires.
func (g *Graph) Insert(id uint32, vec []float32) error {
	g.mu.Lock()
	if g.dimension == 0 {
		g.dimension = len(vec)
	} else if len(vec) != g.dimension {
		g.mu.Unlock()
		return &ivferrors.DimensionMismatchError{Expected: g.dimension, Got: len(vec)}
	}
	if _, exists := g.nodes[id]; exists {
		g.mu.Unlock()
		return nil
	}

	level := g.randomLevel()
	node := newNode(id, vec, level)
	g.nodes[id] = node

	if g.entryPoint == nil {
		g.entryPoint = node
		g.maxLayer = level
		g.mu.Unlock()
		return nil
	}

	entryPoint := g.entryPoint
	currentMaxLayer := g.maxLayer
	g.mu.Unlock()

	ep := entryPoint
	currentDist := distance(vec, ep.vector)
	for lc := currentMaxLayer; lc > level; lc-- {
		changed := true
		for changed {
			changed = false
			for _, nbID := range ep.getNeighbors(lc) {
				nb := g.getNode(nbID)
				if nb == nil {
					continue
				}
				d := distance(vec, nb.vector)
				if d < currentDist {
					currentDist = d
					ep = nb
					changed = true
				}
			}
		}
	}

	top := level
	if currentMaxLayer < top {
		top = currentMaxLayer
	}
	for lc := top; lc >= 0; lc-- {
		candidates := g.searchLayer(vec, ep, g.efConstruction, lc)

		m := g.m
		if lc == 0 {
			m = g.m0
		}
		neighborIDs := g.selectNeighborsHeuristic(vec, candidates, m)

		for _, nbID := range neighborIDs {
			nb := g.getNode(nbID)
			if nb == nil {
				continue
			}
			node.addNeighbor(lc, nbID)
			nb.addNeighbor(lc, id)
			g.pruneNeighbor(nb, lc)
		}

		if len(candidates) > 0 {
			if next := g.getNode(candidates[0].id); next != nil {
				ep = next
			}
		}
	}

	g.mu.Lock()
	if level > g.maxLayer {
		g.maxLayer = level
		g.entryPoint = node
	}
	g.mu.Unlock()

	return nil
}

// searchLayer runs ef-limited best-first search from entryPoint at layer,
// returning candidates sorted closest-first.
func (g *Graph) searchLayer(query []float32, entryPoint *Node, ef int, layer int) []candidate {
	visited := map[uint32]bool{entryPoint.ID(): true}
	frontier := &minHeap{}
	results := &maxHeap{}

	d0 := distance(query, entryPoint.vector)
	heap.Push(frontier, candidate{id: entryPoint.ID(), dist: d0})
	heap.Push(results, candidate{id: entryPoint.ID(), dist: d0})

	for frontier.Len() > 0 {
		cur := heap.Pop(frontier).(candidate)
		if cur.dist > results.peek().dist && results.Len() >= ef {
			break
		}

		curNode := g.getNode(cur.id)
		if curNode == nil {
			continue
		}
		for _, nbID := range curNode.getNeighbors(layer) {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true

			nb := g.getNode(nbID)
			if nb == nil {
				continue
			}
			d := distance(query, nb.vector)
			if results.Len() < ef || d < results.peek().dist {
				heap.Push(frontier, candidate{id: nbID, dist: d})
				heap.Push(results, candidate{id: nbID, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

// selectNeighborsHeuristic implements the angular-separation selector:
// a candidate c is kept only if no already-chosen neighbour is strictly
// closer to c than c is to q. Candidates must arrive sorted closest-first
// to q so the greedy pass favors nearer points first.
func (g *Graph) selectNeighborsHeuristic(q []float32, candidates []candidate, m int) []uint32 {
	chosen := make([]candidate, 0, m)
	for _, cand := range candidates {
		if len(chosen) >= m {
			break
		}
		candNode := g.getNode(cand.id)
		if candNode == nil {
			continue
		}
		keep := true
		for _, ch := range chosen {
			chNode := g.getNode(ch.id)
			if chNode == nil {
				continue
			}
			if distance(chNode.vector, candNode.vector) < cand.dist {
				keep = false
				break
			}
		}
		if keep {
			chosen = append(chosen, cand)
		}
	}

	ids := make([]uint32, len(chosen))
	for i, c := range chosen {
		ids[i] = c.id
	}
	return ids
}

// pruneNeighbor reapplies the angular-separation selector to node's own
// neighbour list at layer whenever it has grown past the layer's degree
// bound, using node's own vector as the query. Every neighbour it drops
// also loses its edge back to node, so adjacency stays symmetric.
func (g *Graph) pruneNeighbor(node *Node, layer int) {
	m := g.m
	if layer == 0 {
		m = g.m0
	}
	neighborIDs := node.getNeighbors(layer)
	if len(neighborIDs) <= m {
		return
	}

	cands := make([]candidate, 0, len(neighborIDs))
	for _, nbID := range neighborIDs {
		nb := g.getNode(nbID)
		if nb == nil {
			continue
		}
		cands = append(cands, candidate{id: nbID, dist: distance(node.vector, nb.vector)})
	}
	sortByDistAsc(cands)

	kept := g.selectNeighborsHeuristic(node.vector, cands, m)
	node.setNeighbors(layer, kept)

	for _, nbID := range neighborIDs {
		dropped := true
		for _, k := range kept {
			dropped = dropped && k != nbID
		}
		if nb := g.getNode(nbID); nb != nil && dropped {
			rest := make([]uint32, 0, m)
			for _, x := range nb.getNeighbors(layer) {
				if x != node.id {
					rest = append(rest, x)
				}
			}
			nb.setNeighbors(layer, rest)
		}
	}
}

func sortByDistAsc(c []candidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].dist < c[j-1].dist; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}
