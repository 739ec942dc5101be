// Package coarse implements the HNSW coarse quantizer: a multi-layer
// proximity graph over a fixed set of centroids, used both to partition
// the corpus at build time and to prune the candidate cells at query
// time.
package coarse

import (
	"math"
	"math/rand"
	"sync"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/vecmath"
)

// Config holds the graph's construction parameters.
type Config struct {
	M              int // layer>=1 degree; default 16
	EfConstruction int // candidate width during insertion; default 240
	Seed           int64
}

// DefaultConfig returns the defaults named in spec §6.
func DefaultConfig() Config {
	return Config{M: 16, EfConstruction: 240, Seed: 42}
}

// Graph is a read-many, insert-many HNSW index over externally-identified
// centroids. Search is safe to call concurrently with itself once
// construction has finished; insert is safe to call concurrently with
// other inserts.
type Graph struct {
	m              int
	m0             int
	efConstruction int
	ml             float64

	mu         sync.RWMutex
	nodes      map[uint32]*Node
	entryPoint *Node
	maxLayer   int
	dimension  int

	randMu sync.Mutex
	rand   *rand.Rand
}

// New creates an empty graph. The PRNG is seeded explicitly so that a
// given sequence of inserts yields a reproducible graph — no ambient
// process-wide random source.
func New(cfg Config) *Graph {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfConstruction == 0 {
		cfg.EfConstruction = 240
	}
	return &Graph{
		m:              cfg.M,
		m0:             cfg.M * 2,
		efConstruction: cfg.EfConstruction,
		ml:             1.0 / math.Log(float64(cfg.M)),
		nodes:          make(map[uint32]*Node),
		maxLayer:       -1,
		rand:           rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Len returns the number of nodes currently in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dimension returns the vector dimension, set on the first insert.
func (g *Graph) Dimension() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dimension
}

// GetVector returns a copy of the node's centroid, or nil if id is absent.
func (g *Graph) GetVector(id uint32) []float32 {
	g.mu.RLock()
	node := g.nodes[id]
	g.mu.RUnlock()
	if node == nil {
		return nil
	}
	out := make([]float32, len(node.vector))
	copy(out, node.vector)
	return out
}

func (g *Graph) getNode(id uint32) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

func (g *Graph) randomLevel() int {
	g.randMu.Lock()
	u := g.rand.Float64()
	g.randMu.Unlock()
	// avoid log(0)
	for u == 0 {
		g.randMu.Lock()
		u = g.rand.Float64()
		g.randMu.Unlock()
	}
	return int(math.Floor(-math.Log(u) * g.ml))
}

func distance(a, b []float32) float32 {
	return vecmath.L2Sqr(a, b)
}
