package coarse

import "sort"

// NodeSnapshot is a read-only view of one node's state, used by the
// persistence layer to serialize and reconstruct a graph without
// replaying inserts.
type NodeSnapshot struct {
	ID        uint32
	Vector    []float32
	Level     int
	Neighbors [][]uint32 // one slice per layer, 0..Level
}

// M returns the graph's layer>=1 degree bound.
func (g *Graph) M() int { return g.m }

// M0 returns the graph's layer-0 degree bound.
func (g *Graph) M0() int { return g.m0 }

// EfConstruction returns the candidate width used during insertion.
func (g *Graph) EfConstruction() int { return g.efConstruction }

// MaxLayer returns the highest populated layer, or -1 if the graph is
// empty.
func (g *Graph) MaxLayer() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.maxLayer
}

// EntryPointID returns the current entry point's id, or ok=false if the
// graph is empty.
func (g *Graph) EntryPointID() (id uint32, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.entryPoint == nil {
		return 0, false
	}
	return g.entryPoint.id, true
}

// Snapshot returns every node's id, vector, level, and per-layer
// neighbour lists, sorted ascending by id. Used by the persistence layer
// to write the coarse-graph sidecars; the sort keeps repeated writes of
// an unchanged graph byte-identical despite Go's randomized map
// iteration order.
func (g *Graph) Snapshot() []NodeSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]uint32, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]NodeSnapshot, 0, len(ids))
	for _, id := range ids {
		n := g.nodes[id]
		neighbors := make([][]uint32, n.level+1)
		for layer := 0; layer <= n.level; layer++ {
			neighbors[layer] = n.getNeighbors(layer)
		}
		vec := make([]float32, len(n.vector))
		copy(vec, n.vector)
		out = append(out, NodeSnapshot{ID: n.id, Vector: vec, Level: n.level, Neighbors: neighbors})
	}
	return out
}

// LoadFromSnapshot reconstructs a graph directly from a prior Snapshot,
// bypassing Insert so the exact topology (including neighbour order) is
// reproduced rather than replayed.
func LoadFromSnapshot(cfg Config, dimension int, snapshots []NodeSnapshot, entryID uint32, hasEntry bool, maxLayer int) *Graph {
	g := New(cfg)
	g.dimension = dimension
	for _, s := range snapshots {
		n := newNode(s.ID, s.Vector, s.Level)
		for layer, neighbors := range s.Neighbors {
			n.neighbors[layer] = append([]uint32(nil), neighbors...)
		}
		g.nodes[s.ID] = n
	}
	if hasEntry {
		g.entryPoint = g.nodes[entryID]
	}
	g.maxLayer = maxLayer
	return g
}
