package persist

import (
	"path/filepath"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivfconfig"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivfhnswpq"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/observability"
)

// Filenames used within a bundle directory. Not part of the on-disk
// contract — callers passing explicit paths may lay files out however
// they choose; this is only the convention cmd/ivfhnswpq uses.
const (
	IndexFileName  = "index.bin"
	ResidualPQFile = "residual_pq.bin"
	NormPQFile     = "norm_pq.bin"
	GraphInfoFile  = "graph_info.bin"
	GraphEdgesFile = "graph_edges.bin"
)

// SaveIndex writes every file a built Index needs to be reloaded: the
// main index file, the two PQ sidecars, and the two coarse-graph
// sidecars, all under dir. Must only be called after Add has populated
// the index; persisting mid-build is undefined per spec.
func SaveIndex(dir string, idx *ivfhnswpq.Index) error {
	cfg := idx.Config()

	if err := WriteIndexFile(filepath.Join(dir, IndexFileName), cfg.Build.Dim, cfg.Runtime.NProbe, cfg.Runtime.MaxCodes, idx.Lists()); err != nil {
		return err
	}
	if err := WritePQSidecar(filepath.Join(dir, ResidualPQFile), idx.ResidualPQ()); err != nil {
		return err
	}
	if err := WritePQSidecar(filepath.Join(dir, NormPQFile), idx.NormPQ()); err != nil {
		return err
	}
	if err := WriteGraphSidecars(filepath.Join(dir, GraphInfoFile), filepath.Join(dir, GraphEdgesFile), idx.Graph()); err != nil {
		return err
	}
	return nil
}

// LoadIndex reads the files SaveIndex wrote and returns a ready-to-query
// Index. cfg supplies the seed used to reconstruct the graph's PRNG (the
// seed isn't part of the on-disk format since it's never consulted after
// construction finishes) and the values logged/used for diagnostics.
func LoadIndex(dir string, cfg ivfconfig.Config, log *observability.Logger, metrics *observability.Metrics) (*ivfhnswpq.Index, error) {
	residualPQ, err := ReadPQSidecar(filepath.Join(dir, ResidualPQFile))
	if err != nil {
		return nil, err
	}
	normPQ, err := ReadPQSidecar(filepath.Join(dir, NormPQFile))
	if err != nil {
		return nil, err
	}

	graph, err := ReadGraphSidecars(filepath.Join(dir, GraphInfoFile), filepath.Join(dir, GraphEdgesFile), cfg.Build.Seed)
	if err != nil {
		return nil, err
	}

	codeSize := residualPQ.NumSlots() + 1
	_, lists, err := ReadIndexFile(filepath.Join(dir, IndexFileName), codeSize)
	if err != nil {
		return nil, err
	}

	cNorm := make([]float32, lists.NumCells())
	for i := range cNorm {
		v := graph.GetVector(uint32(i))
		var sum float32
		for _, x := range v {
			sum += x * x
		}
		cNorm[i] = sum
	}

	idx := ivfhnswpq.New(cfg, log, metrics)
	idx.LoadFromComponents(graph, residualPQ, normPQ, lists, cNorm)
	return idx, nil
}
