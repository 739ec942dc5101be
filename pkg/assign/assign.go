// Package assign implements the offline PrecomputedAssignment helper:
// batching the dominant build-time cost (assigning every base vector to
// its nearest coarse centroid via an ef_search=220 graph walk) into a
// resumable file, paced so a build doesn't starve other work sharing the
// machine. Grounded on the original precompute_idx batching (one million
// vectors per batch) and on this codebase's rate.Limiter usage for
// pacing bursts of work.
package assign

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"os"

	"golang.org/x/time/rate"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/coarse"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/observability"
)

// BatchSize matches the original implementation's precompute_idx batching.
const BatchSize = 1_000_000

// Limiter paces how many batches per second the precompute step issues,
// so a long-running build can share a machine with other workloads.
// A nil Limiter disables pacing entirely.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter creates a pacing limiter allowing batchesPerSec batches per
// second with the given burst.
func NewLimiter(batchesPerSec float64, burst int) *Limiter {
	return &Limiter{rl: rate.NewLimiter(rate.Limit(batchesPerSec), burst)}
}

// Precompute assigns every vector in batches of BatchSize (the last batch
// may be shorter) to its nearest coarse centroid and appends each batch
// as (int32 batch_size, uint32[batch_size] coarse_ids) to outPath. If
// outPath already exists, Precompute returns immediately without
// touching it — this is what makes a multi-day build resumable.
//
// ef is the HNSW dynamic-list width used for this assignment search; spec
// §4.E step 4 requires ef_search >= 220 here, distinct from the cheaper
// ef=1 greedy descent TrainResidualPQ/TrainNormPQ use for their own
// per-sample assignments.
func Precompute(ctx context.Context, outPath string, vectors [][]float32, graph *coarse.Graph, ef int, limiter *Limiter, log *observability.Logger) error {
	if log == nil {
		log = observability.NewDefaultLogger()
	}
	if _, err := os.Stat(outPath); err == nil {
		log.Info("precomputed assignments already exist, skipping", map[string]interface{}{"path": outPath})
		return nil
	}

	f, err := os.Create(outPath)
	if err != nil {
		return &ivferrors.IOError{Path: outPath, Err: err}
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	total := len(vectors)
	for start := 0; start < total; start += BatchSize {
		if limiter != nil {
			if err := limiter.rl.Wait(ctx); err != nil {
				return err
			}
		}
		end := start + BatchSize
		if end > total {
			end = total
		}
		batch := vectors[start:end]

		ids := make([]uint32, len(batch))
		for i, v := range batch {
			results := graph.Search(v, 1, ef)
			if len(results) == 0 {
				return &ivferrors.NotReadyError{Reason: "coarse graph is empty"}
			}
			ids[i] = results[0].ID
		}

		if err := binary.Write(w, binary.LittleEndian, int32(len(ids))); err != nil {
			return &ivferrors.IOError{Path: outPath, Err: err}
		}
		if err := binary.Write(w, binary.LittleEndian, ids); err != nil {
			return &ivferrors.IOError{Path: outPath, Err: err}
		}
		log.Info("precompute batch done", map[string]interface{}{"start": start, "end": end, "total": total})
	}

	return w.Flush()
}

// Read reads back every batch written by Precompute, flattened into a
// single slice of coarse ids in original vector order.
func Read(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ivferrors.IOError{Path: path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var out []uint32
	for {
		var batchSize int32
		if err := binary.Read(r, binary.LittleEndian, &batchSize); err != nil {
			if err == io.EOF {
				break
			}
			return nil, &ivferrors.MalformedInputError{Path: path, Reason: "truncated batch size"}
		}
		ids := make([]uint32, batchSize)
		if err := binary.Read(r, binary.LittleEndian, &ids); err != nil {
			return nil, &ivferrors.MalformedInputError{Path: path, Reason: "truncated batch ids"}
		}
		out = append(out, ids...)
	}
	return out, nil
}
