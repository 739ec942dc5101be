package coarse

import (
	"math/rand"
	"testing"
)

func gridVectors() (ids []uint32, vecs [][]float32) {
	id := uint32(0)
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			ids = append(ids, id)
			vecs = append(vecs, []float32{float32(x), float32(y)})
			id++
		}
	}
	return
}

func TestInsertAndSearchFindsExactMatch(t *testing.T) {
	g := New(DefaultConfig())
	ids, vecs := gridVectors()
	for i, v := range vecs {
		if err := g.Insert(ids[i], v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	results := g.Search([]float32{2, 2}, 1, 64)
	if len(results) != 1 {
		t.Fatalf("Search returned %d results, want 1", len(results))
	}
	if results[0].Dist != 0 {
		t.Fatalf("Search did not find exact match: got dist %v", results[0].Dist)
	}
}

func TestInsertIsIdempotentOnDuplicateID(t *testing.T) {
	g := New(DefaultConfig())
	if err := g.Insert(1, []float32{1, 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := g.Insert(1, []float32{99, 99}); err != nil {
		t.Fatalf("Insert (duplicate): %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}
	v := g.GetVector(1)
	if v[0] != 1 || v[1] != 1 {
		t.Fatalf("duplicate insert mutated the stored vector: %v", v)
	}
}

func TestSearchOnEmptyGraphReturnsEmpty(t *testing.T) {
	g := New(DefaultConfig())
	results := g.Search([]float32{0, 0}, 5, 10)
	if len(results) != 0 {
		t.Fatalf("Search on empty graph returned %d results, want 0", len(results))
	}
}

func TestGraphEdgesAreBidirectional(t *testing.T) {
	g := New(Config{M: 4, EfConstruction: 32, Seed: 7})
	r := rand.New(rand.NewSource(1))
	ids := make([]uint32, 50)
	for i := 0; i < 50; i++ {
		v := []float32{r.Float32() * 10, r.Float32() * 10}
		ids[i] = uint32(i)
		if err := g.Insert(ids[i], v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	for _, id := range ids {
		node := g.getNode(id)
		if node == nil {
			continue
		}
		for layer := 0; layer <= node.Level(); layer++ {
			for _, nbID := range node.getNeighbors(layer) {
				nb := g.getNode(nbID)
				if nb == nil {
					t.Fatalf("node %d references missing neighbor %d", id, nbID)
				}
				if !containsID(nb.getNeighbors(layer), id) {
					t.Fatalf("edge (%d,%d) at layer %d is not bidirectional", id, nbID, layer)
				}
			}
		}
	}
}

func containsID(ids []uint32, target uint32) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func TestInsertRejectsWrongDimension(t *testing.T) {
	g := New(DefaultConfig())
	if err := g.Insert(1, []float32{1, 2, 3}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := g.Insert(2, []float32{1, 2}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}
