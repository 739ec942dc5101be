package assign

import (
	"context"
	"math/rand"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/coarse"
)

// testEf matches spec §4.E step 4's ef_search >= 220 requirement for
// precomputed assignment.
const testEf = 220

func buildGraph(t *testing.T) *coarse.Graph {
	t.Helper()
	g := coarse.New(coarse.DefaultConfig())
	r := rand.New(rand.NewSource(3))
	for i := uint32(0); i < 16; i++ {
		v := make([]float32, 4)
		for x := range v {
			v[x] = float32(r.NormFloat64())
		}
		if err := g.Insert(i, v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return g
}

func randomVectors(n, dim int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for x := range v {
			v[x] = float32(r.NormFloat64())
		}
		out[i] = v
	}
	return out
}

func TestPrecomputeThenReadRoundTrip(t *testing.T) {
	g := buildGraph(t)
	vectors := randomVectors(50, 4, 11)
	path := filepath.Join(t.TempDir(), "assign.bin")

	if err := Precompute(context.Background(), path, vectors, g, testEf, nil, nil); err != nil {
		t.Fatalf("Precompute: %v", err)
	}
	ids, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ids) != len(vectors) {
		t.Fatalf("expected %d ids, got %d", len(vectors), len(ids))
	}

	for i, v := range vectors {
		want := g.Search(v, 1, testEf)
		if len(want) == 0 || ids[i] != want[0].ID {
			t.Fatalf("id %d: want %v, got %d", i, want, ids[i])
		}
	}
}

func TestPrecomputeSkipsIfOutputExists(t *testing.T) {
	g := buildGraph(t)
	vectors := randomVectors(5, 4, 12)
	path := filepath.Join(t.TempDir(), "assign.bin")

	if err := Precompute(context.Background(), path, vectors, g, testEf, nil, nil); err != nil {
		t.Fatalf("first Precompute: %v", err)
	}
	before, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if err := Precompute(context.Background(), path, randomVectors(9, 4, 99), g, testEf, nil, nil); err != nil {
		t.Fatalf("second Precompute: %v", err)
	}
	after, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("expected second Precompute call to be a no-op when output already exists")
	}
}

func TestAssignmentIsStableAcrossConcurrentReaders(t *testing.T) {
	g := buildGraph(t)
	vectors := randomVectors(100, 4, 21)

	var wg sync.WaitGroup
	results := make([][]uint32, 8)
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]uint32, len(vectors))
			for i, v := range vectors {
				result, _ := g.NearestAssignment(v)
				ids[i] = result.ID
			}
			results[w] = ids
		}()
	}
	wg.Wait()

	for w := 1; w < 8; w++ {
		if !reflect.DeepEqual(results[0], results[w]) {
			t.Fatalf("assignment differs across concurrent goroutines: worker 0 %v vs worker %d %v", results[0], w, results[w])
		}
	}
}
