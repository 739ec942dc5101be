// Package ivfhnswpq orchestrates the IVF-HNSW-PQ pipeline: loading the
// coarse quantizer, training the residual and norm product quantizers,
// populating inverted lists, and answering top-k queries with the fused
// asymmetric scoring identity.
package ivfhnswpq

import (
	"container/heap"
	"time"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/coarse"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/invlists"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivfconfig"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/observability"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/quant"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/vecmath"
)

// Index is the top-level runtime state: {d, C, code_size, nprobe,
// max_codes, pq, norm_pq, graph, lists, c_norm} from spec §3, plus the
// logger/metrics this codebase's ambient stack always carries.
type Index struct {
	cfg ivfconfig.Config

	graph  *coarse.Graph
	pq     *quant.ProductQuantizer
	normPQ *quant.ProductQuantizer
	lists  *invlists.Lists
	cNorm  []float32

	builtCoarse bool
	trainedPQ   bool
	populated   bool

	log     *observability.Logger
	metrics *observability.Metrics
}

// New creates an index from config. log and metrics may be nil, in which
// case a default logger is used and metrics are disabled.
func New(cfg ivfconfig.Config, log *observability.Logger, metrics *observability.Metrics) *Index {
	if log == nil {
		log = observability.NewDefaultLogger()
	}
	return &Index{
		cfg:     cfg,
		pq:      quant.New(cfg.Build.NumSubvectors, cfg.Build.NumBitsPerSlot, quant.TrainConfig{NumIterations: 25, RandomSeed: cfg.Build.Seed}),
		normPQ:  quant.New(1, 8, quant.TrainConfig{NumIterations: 25, RandomSeed: cfg.Build.Seed + 1}),
		log:     log,
		metrics: metrics,
	}
}

// LoadOrBuildCoarse constructs the coarse graph from a slice of C
// centroid vectors (ids are their index in the slice) and derives the
// centroid-norm table. Step 1 of the build pipeline.
func (idx *Index) LoadOrBuildCoarse(centroids [][]float32) error {
	g := coarse.New(coarse.Config{M: idx.cfg.Runtime.M, EfConstruction: idx.cfg.Runtime.EfConstruction, Seed: idx.cfg.Build.Seed})
	for i, c := range centroids {
		if err := g.Insert(uint32(i), c); err != nil {
			return err
		}
	}
	idx.graph = g

	cNorm := make([]float32, len(centroids))
	for i, c := range centroids {
		cNorm[i] = vecmath.NormSqr(c)
	}
	idx.cNorm = cNorm
	idx.lists = invlists.New(len(centroids), idx.cfg.Build.NumSubvectors, 0)
	idx.builtCoarse = true
	idx.log.Info("coarse graph built", map[string]interface{}{"centroids": len(centroids)})
	return nil
}

// assign finds the nearest coarse centroid for v using the graph's
// single-candidate search, per spec 4.E step 2/3 ("ef=1 on the top layer,
// then greedy descent").
func (idx *Index) assign(v []float32) (uint32, error) {
	if idx.graph == nil {
		return 0, &ivferrors.NotReadyError{Reason: "coarse graph not built"}
	}
	result, ok := idx.graph.NearestAssignment(v)
	if !ok {
		return 0, &ivferrors.NotReadyError{Reason: "coarse graph is empty"}
	}
	return result.ID, nil
}

// TrainResidualPQ is step 2 of the build pipeline: assign each sample to
// its nearest centroid, form residuals, and train the residual PQ.
func (idx *Index) TrainResidualPQ(samples [][]float32) error {
	if !idx.builtCoarse {
		return &ivferrors.NotReadyError{Reason: "coarse graph not built"}
	}
	residuals := make([][]float32, 0, len(samples))
	for _, v := range samples {
		cell, err := idx.assign(v)
		if err != nil {
			return err
		}
		centroid := idx.graph.GetVector(cell)
		residuals = append(residuals, vecmath.Sub(v, centroid))
	}
	if err := idx.pq.Train(residuals); err != nil {
		return err
	}
	if idx.metrics != nil {
		idx.metrics.BuildClusterSplits.Add(float64(idx.pq.LastTrainSplits()))
	}
	idx.log.Info("residual PQ trained", map[string]interface{}{"samples": len(samples), "cluster_splits": idx.pq.LastTrainSplits()})
	return nil
}

// TrainNormPQ is step 3: recompute assignments, encode+decode residuals,
// reconstruct each sample, and train the norm PQ on squared norms. Must
// run after TrainResidualPQ since it depends on the residual PQ's
// reconstructions.
func (idx *Index) TrainNormPQ(samples [][]float32) error {
	if idx.pq.SubvectorDim() == 0 {
		return &ivferrors.NotReadyError{Reason: "residual PQ not trained"}
	}
	norms := make([][]float32, 0, len(samples))
	for _, v := range samples {
		cell, err := idx.assign(v)
		if err != nil {
			return err
		}
		centroid := idx.graph.GetVector(cell)
		residual := vecmath.Sub(v, centroid)
		code := idx.pq.Encode(residual)
		reconstructedResidual := idx.pq.Decode(code)
		vHat := vecmath.Add(centroid, reconstructedResidual)
		norms = append(norms, []float32{vecmath.NormSqr(vHat)})
	}
	if err := idx.normPQ.Train(norms); err != nil {
		return err
	}
	if idx.metrics != nil {
		idx.metrics.BuildClusterSplits.Add(float64(idx.normPQ.LastTrainSplits()))
	}
	idx.trainedPQ = true
	idx.log.Info("norm PQ trained", map[string]interface{}{"samples": len(samples), "cluster_splits": idx.normPQ.LastTrainSplits()})
	return nil
}

// Add is step 4: encode each (vector, assignment) pair and append it to
// its assigned inverted list. Callers supply assignments computed
// up-front via the PrecomputedAssignment pipeline (§6).
func (idx *Index) Add(vectors [][]float32, ids []uint32, assignments []uint32) error {
	if !idx.trainedPQ {
		return &ivferrors.NotReadyError{Reason: "quantizers not trained"}
	}
	if len(vectors) != len(ids) || len(vectors) != len(assignments) {
		return &ivferrors.InvariantViolationError{Invariant: "Add", Detail: "vectors/ids/assignments length mismatch"}
	}

	for i, v := range vectors {
		cell := assignments[i]
		centroid := idx.graph.GetVector(cell)
		if centroid == nil {
			return &ivferrors.InvariantViolationError{Invariant: "Add", Detail: "assignment references unknown coarse cell"}
		}
		residual := vecmath.Sub(v, centroid)
		code := idx.pq.Encode(residual)

		reconstructedResidual := idx.pq.Decode(code)
		vHat := vecmath.Add(centroid, reconstructedResidual)
		norm := vecmath.NormSqr(vHat)
		normCode := idx.normPQ.Encode([]float32{norm})

		idx.lists.Append(cell, ids[i], code, normCode[0])
	}
	idx.populated = true
	if idx.metrics != nil {
		idx.metrics.BuildVectorsAdded.Add(float64(len(vectors)))
		idx.metrics.IndexMemoryBytes.Set(float64(idx.lists.MemoryBytes()))
	}
	return nil
}

// MeanAssignmentDistance is a read-only diagnostic, not on the query hot
// path: the mean squared distance between each sample and its assigned
// centroid, useful for sanity-checking coarse-quantizer quality before
// shipping an index.
func (idx *Index) MeanAssignmentDistance(samples [][]float32) (float32, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	var total float32
	for _, v := range samples {
		cell, err := idx.assign(v)
		if err != nil {
			return 0, err
		}
		total += vecmath.L2Sqr(v, idx.graph.GetVector(cell))
	}
	return total / float32(len(samples)), nil
}

const sentinelID = ^uint32(0)

// scored pairs a candidate id with its fused distance score.
type scored struct {
	id   uint32
	dist float32
}

type scoredMaxHeap []scored

func (h scoredMaxHeap) Len() int            { return len(h) }
func (h scoredMaxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h scoredMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredMaxHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *scoredMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Search answers a top-k query using the fused asymmetric scoring
// identity from spec 4.E: graph-prune to nprobe cells, build one
// inner-product table for q, then score every candidate code against it
// without ever decompressing a stored vector.
func (idx *Index) Search(q []float32, k int) ([]uint32, error) {
	if !idx.populated {
		return nil, &ivferrors.NotReadyError{Reason: "index not populated"}
	}
	start := time.Now()

	cells := idx.graph.Search(q, idx.cfg.Runtime.NProbe, idx.cfg.Runtime.EfSearch)
	table := idx.pq.InnerProductTable(q)
	pqK := idx.pq.K()

	results := &scoredMaxHeap{}
	examined := 0

	for _, cell := range cells {
		term1 := cell.Dist - idx.cNorm[cell.ID]

		entries := idx.lists.Scan(cell.ID)
		for _, e := range entries {
			qr := quant.InnerProductSum(table, pqK, e.ResidualCode)
			norm := idx.normPQ.Decode([]byte{e.NormCode})[0]
			dist := term1 - 2*qr + norm

			heap.Push(results, scored{id: e.ID, dist: dist})
			if results.Len() > k {
				heap.Pop(results)
			}
		}
		examined += len(entries)
		if examined > idx.cfg.Runtime.MaxCodes {
			break
		}
	}

	out := make([]uint32, k)
	for i := range out {
		out[i] = sentinelID
	}
	filled := results.Len()
	for i := filled - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(scored).id
	}
	if filled < k {
		idx.log.Warn("search returned fewer than k results", map[string]interface{}{"k": k, "found": filled})
		if idx.metrics != nil {
			idx.metrics.SearchResultsPadded.Inc()
		}
	}
	if idx.metrics != nil {
		idx.metrics.SearchCandidatesExamined.Observe(float64(examined))
		idx.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	}
	return out, nil
}

// Graph exposes the coarse graph for persistence and diagnostics.
func (idx *Index) Graph() *coarse.Graph { return idx.graph }

// ResidualPQ exposes the residual product quantizer for persistence.
func (idx *Index) ResidualPQ() *quant.ProductQuantizer { return idx.pq }

// NormPQ exposes the norm product quantizer for persistence.
func (idx *Index) NormPQ() *quant.ProductQuantizer { return idx.normPQ }

// Lists exposes the inverted lists for persistence.
func (idx *Index) Lists() *invlists.Lists { return idx.lists }

// CentroidNormTable exposes the per-cell centroid norms for persistence.
func (idx *Index) CentroidNormTable() []float32 { return idx.cNorm }

// Config returns the runtime/build configuration.
func (idx *Index) Config() ivfconfig.Config { return idx.cfg }

// LoadFromComponents installs a previously-persisted graph, quantizers,
// inverted lists, and centroid-norm table, marking the index ready for
// Search. Used by the persistence layer when reconstructing an index from
// its on-disk sidecars.
func (idx *Index) LoadFromComponents(graph *coarse.Graph, pq, normPQ *quant.ProductQuantizer, lists *invlists.Lists, cNorm []float32) {
	idx.graph = graph
	idx.pq = pq
	idx.normPQ = normPQ
	idx.lists = lists
	idx.cNorm = cNorm
	idx.builtCoarse = true
	idx.trainedPQ = true
	idx.populated = true
	if idx.metrics != nil {
		idx.metrics.IndexMemoryBytes.Set(float64(idx.lists.MemoryBytes()))
	}
}
