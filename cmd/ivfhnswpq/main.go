// Command ivfhnswpq builds, persists, and queries an IVF-HNSW-PQ index
// from the command line. Exit behaviour is intentionally minimal: errors
// are printed and surfaced as a non-zero exit code, with no retry logic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/assign"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/coarse"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivfconfig"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivfhnswpq"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/observability"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/persist"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/vecfile"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	log := observability.NewDefaultLogger()

	var err error
	switch os.Args[1] {
	case "build":
		err = handleBuild(log, os.Args[2:])
	case "precompute":
		err = handlePrecompute(log, os.Args[2:])
	case "search":
		err = handleSearch(log, os.Args[2:])
	case "version":
		fmt.Printf("ivfhnswpq version %s\n", version)
		return
	case "help", "-h", "--help":
		showUsage()
		return
	default:
		fmt.Printf("unknown command: %s\n", os.Args[1])
		showUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Error("command failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`ivfhnswpq - IVF-HNSW-PQ approximate nearest neighbour index

Usage:
  ivfhnswpq build -centroids FILE -train FILE -base FILE -assignments FILE -out DIR -dim D [flags]
  ivfhnswpq precompute -centroids FILE -base FILE -out FILE -dim D [flags]
  ivfhnswpq search -index DIR -query FILE -dim D -k N
  ivfhnswpq version`)
}

func handleBuild(log *observability.Logger, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		centroidsPath   = fs.String("centroids", "", "coarse centroid vector file (required)")
		trainPath       = fs.String("train", "", "PQ training sample file (required)")
		basePath        = fs.String("base", "", "base vector file to index (required)")
		assignmentsPath = fs.String("assignments", "", "precomputed assignment file (required)")
		outDir          = fs.String("out", "", "output directory for the persisted index (required)")
		dim             = fs.Int("dim", 0, "vector dimension (required)")
		numSubvectors   = fs.Int("subvectors", 16, "PQ subvector count M")
	)
	fs.Parse(args)

	if *centroidsPath == "" || *trainPath == "" || *basePath == "" || *assignmentsPath == "" || *outDir == "" || *dim == 0 {
		return fmt.Errorf("build requires -centroids, -train, -base, -assignments, -out, -dim")
	}

	centroids, err := vecfile.ReadFloat32Vectors(*centroidsPath, *dim)
	if err != nil {
		return err
	}
	cfg := ivfconfig.Default()
	cfg.Build.Dim = *dim
	cfg.Build.NumCentroids = len(centroids)
	cfg.Build.NumSubvectors = *numSubvectors
	if err := cfg.Validate(); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	idx := ivfhnswpq.New(cfg, log, metrics)
	if err := idx.LoadOrBuildCoarse(centroids); err != nil {
		return err
	}

	train, err := vecfile.ReadFloat32Vectors(*trainPath, *dim)
	if err != nil {
		return err
	}
	if err := idx.TrainResidualPQ(train); err != nil {
		return err
	}
	if err := idx.TrainNormPQ(train); err != nil {
		return err
	}

	base, err := vecfile.ReadFloat32Vectors(*basePath, *dim)
	if err != nil {
		return err
	}
	assignments, err := assign.Read(*assignmentsPath)
	if err != nil {
		return err
	}
	ids := make([]uint32, len(base))
	for i := range ids {
		ids[i] = uint32(i)
	}
	if err := idx.Add(base, ids, assignments); err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	if err := persist.SaveIndex(*outDir, idx); err != nil {
		return err
	}
	log.Info("index built and saved", map[string]interface{}{"out": *outDir, "vectors": len(base)})
	return nil
}

func handlePrecompute(log *observability.Logger, args []string) error {
	fs := flag.NewFlagSet("precompute", flag.ExitOnError)
	var (
		centroidsPath = fs.String("centroids", "", "coarse centroid vector file (required)")
		basePath      = fs.String("base", "", "base vector file (required)")
		outPath       = fs.String("out", "", "output assignment file (required)")
		dim           = fs.Int("dim", 0, "vector dimension (required)")
		batchesPerSec = fs.Float64("rate", 0, "max batches/sec to process; 0 disables pacing")
		ef            = fs.Int("ef-search", ivfconfig.Default().Runtime.EfSearch, "HNSW dynamic-list width for assignment search (spec requires >= 220)")
	)
	fs.Parse(args)

	if *centroidsPath == "" || *basePath == "" || *outPath == "" || *dim == 0 {
		return fmt.Errorf("precompute requires -centroids, -base, -out, -dim")
	}

	centroids, err := vecfile.ReadFloat32Vectors(*centroidsPath, *dim)
	if err != nil {
		return err
	}
	g, err := buildCoarseGraph(coarse.DefaultConfig(), centroids)
	if err != nil {
		return err
	}

	base, err := vecfile.ReadFloat32Vectors(*basePath, *dim)
	if err != nil {
		return err
	}

	var limiter *assign.Limiter
	if *batchesPerSec > 0 {
		limiter = assign.NewLimiter(*batchesPerSec, 1)
	}
	return assign.Precompute(context.Background(), *outPath, base, g, *ef, limiter, log)
}

func handleSearch(log *observability.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var (
		indexDir  = fs.String("index", "", "directory holding a persisted index (required)")
		queryPath = fs.String("query", "", "query vector file (required)")
		k         = fs.Int("k", 10, "number of neighbours to return")
		dim       = fs.Int("dim", 0, "vector dimension (required)")
	)
	fs.Parse(args)

	if *indexDir == "" || *queryPath == "" || *dim == 0 {
		return fmt.Errorf("search requires -index, -query, -dim")
	}

	cfg := ivfconfig.Default()
	cfg.Build.Dim = *dim
	metrics := observability.NewMetrics()
	idx, err := persist.LoadIndex(*indexDir, cfg, log, metrics)
	if err != nil {
		return err
	}

	queries, err := vecfile.ReadFloat32Vectors(*queryPath, *dim)
	if err != nil {
		return err
	}

	for qi, q := range queries {
		ids, err := idx.Search(q, *k)
		if err != nil {
			return err
		}
		fmt.Printf("query %d: %v\n", qi, ids)
	}
	return nil
}

func buildCoarseGraph(cfg coarse.Config, centroids [][]float32) (*coarse.Graph, error) {
	g := coarse.New(cfg)
	for i, c := range centroids {
		if err := g.Insert(uint32(i), c); err != nil {
			return nil, err
		}
	}
	return g, nil
}
