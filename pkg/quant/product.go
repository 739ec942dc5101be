package quant

import (
	"encoding/binary"
	"math"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/vecmath"
)

// maxTrainingPointsPerSlot caps how many samples each slot's k-means run
// sees; larger sets are subsampled deterministically.
const maxTrainingPointsPerSlot = 256

// ProductQuantizer decomposes a d-dimensional vector into M independently
// quantized subvectors of dimension dsub = d/M, each with K = 2^nbits
// codes. The same type serves both the residual PQ (M, dsub from the base
// dimension) and the norm PQ (M=1, dsub=1) — spec.md's two PQ instances
// share one implementation.
type ProductQuantizer struct {
	numSlots     int // M
	nbits        int // bits per slot; K = 1<<nbits
	subvectorDim int // dsub
	codebooks    [][][]float32
	cfg          TrainConfig

	lastTrainSplits int
}

// New creates an untrained quantizer with the given slot count and bits
// per slot. subvectorDim is discovered on Train from the sample dimension.
func New(numSlots, nbits int, cfg TrainConfig) *ProductQuantizer {
	return &ProductQuantizer{
		numSlots: numSlots,
		nbits:    nbits,
		cfg:      cfg,
	}
}

// NumSlots returns M.
func (pq *ProductQuantizer) NumSlots() int { return pq.numSlots }

// K returns the per-slot code count.
func (pq *ProductQuantizer) K() int { return 1 << pq.nbits }

// SubvectorDim returns dsub, valid after Train or Deserialize.
func (pq *ProductQuantizer) SubvectorDim() int { return pq.subvectorDim }

// LastTrainSplits returns the number of empty clusters the most recent
// Train call had to split across all its slots' k-means runs.
func (pq *ProductQuantizer) LastTrainSplits() int { return pq.lastTrainSplits }

// Train fits one k-means codebook per slot from samples, which must all
// share dimension numSlots*subvectorDim. When the sample set is larger
// than maxTrainingPointsPerSlot*K points it is subsampled once, with a
// deterministic stride, and every slot's run trains on that same subset,
// so repeated calls on the same input are reproducible.
func (pq *ProductQuantizer) Train(samples [][]float32) error {
	k := pq.K()
	if len(samples) < k {
		return &ivferrors.InsufficientTrainingDataError{Have: len(samples), Need: k}
	}

	dim := len(samples[0])
	if pq.numSlots == 0 || dim%pq.numSlots != 0 {
		return &ivferrors.DimensionMismatchError{Expected: pq.numSlots, Got: dim}
	}
	pq.subvectorDim = dim / pq.numSlots

	limit := maxTrainingPointsPerSlot * k
	slice := samples
	if len(samples) > limit {
		slice = subsample(samples, limit)
	}

	pq.codebooks = make([][][]float32, pq.numSlots)
	pq.lastTrainSplits = 0
	for m := 0; m < pq.numSlots; m++ {
		start := m * pq.subvectorDim
		end := start + pq.subvectorDim

		sub := make([][]float32, len(slice))
		for i, v := range slice {
			sub[i] = v[start:end]
		}

		slotCfg := pq.cfg
		slotCfg.RandomSeed = pq.cfg.RandomSeed + int64(m)
		centroids, splits, err := KMeansPlusPlus(sub, k, slotCfg)
		if err != nil {
			return err
		}
		pq.codebooks[m] = centroids
		pq.lastTrainSplits += splits
	}
	return nil
}

// subsample picks a deterministic stride-based subset of n points.
func subsample(samples [][]float32, n int) [][]float32 {
	out := make([][]float32, 0, n)
	stride := len(samples) / n
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(samples) && len(out) < n; i += stride {
		out = append(out, samples[i])
	}
	return out
}

// Encode maps vec to an M-byte code, one argmin-over-K per slot.
func (pq *ProductQuantizer) Encode(vec []float32) []byte {
	code := make([]byte, pq.numSlots)
	for m := 0; m < pq.numSlots; m++ {
		start := m * pq.subvectorDim
		end := start + pq.subvectorDim
		sub := vec[start:end]

		best := 0
		bestDist := float32(math.MaxFloat32)
		for c, centroid := range pq.codebooks[m] {
			d := vecmath.L2Sqr(sub, centroid)
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
		code[m] = byte(best)
	}
	return code
}

// Decode reconstructs a vector by concatenating each slot's chosen
// centroid.
func (pq *ProductQuantizer) Decode(code []byte) []float32 {
	out := make([]float32, pq.numSlots*pq.subvectorDim)
	for m := 0; m < pq.numSlots; m++ {
		centroid := pq.codebooks[m][code[m]]
		copy(out[m*pq.subvectorDim:(m+1)*pq.subvectorDim], centroid)
	}
	return out
}

// InnerProductTable returns a table of size K*numSlots such that
// table[m*K+k] = <q[m*dsub:(m+1)*dsub], codebook[m][k]>. This is the
// lookup table the asymmetric scoring identity sums over.
func (pq *ProductQuantizer) InnerProductTable(q []float32) []float32 {
	k := pq.K()
	table := make([]float32, k*pq.numSlots)
	for m := 0; m < pq.numSlots; m++ {
		start := m * pq.subvectorDim
		end := start + pq.subvectorDim
		sub := q[start:end]
		for c, centroid := range pq.codebooks[m] {
			table[m*k+c] = vecmath.Dot(sub, centroid)
		}
	}
	return table
}

// InnerProductSum sums the per-slot table lookups for code against table,
// i.e. the q_r term in the fused scoring identity.
func InnerProductSum(table []float32, k int, code []byte) float32 {
	var sum float32
	for m, c := range code {
		sum += table[m*k+int(c)]
	}
	return sum
}

// Serialize writes the little-endian PQ sidecar format from spec §6:
// u64 d, u64 M, u64 nbits, u64 num_centroids_floats, f32[...] centroids.
func (pq *ProductQuantizer) Serialize() []byte {
	k := pq.K()
	d := pq.numSlots * pq.subvectorDim
	numFloats := pq.numSlots * k * pq.subvectorDim

	buf := make([]byte, 32+numFloats*4)
	binary.LittleEndian.PutUint64(buf[0:], uint64(d))
	binary.LittleEndian.PutUint64(buf[8:], uint64(pq.numSlots))
	binary.LittleEndian.PutUint64(buf[16:], uint64(pq.nbits))
	binary.LittleEndian.PutUint64(buf[24:], uint64(numFloats))

	offset := 32
	for m := 0; m < pq.numSlots; m++ {
		for c := 0; c < k; c++ {
			for x := 0; x < pq.subvectorDim; x++ {
				bits := math.Float32bits(pq.codebooks[m][c][x])
				binary.LittleEndian.PutUint32(buf[offset:], bits)
				offset += 4
			}
		}
	}
	return buf
}

// Deserialize reads the format written by Serialize and returns a new
// quantizer holding the decoded codebooks.
func Deserialize(buf []byte) (*ProductQuantizer, error) {
	if len(buf) < 32 {
		return nil, &ivferrors.MalformedInputError{Reason: "PQ sidecar shorter than header"}
	}
	d := int(binary.LittleEndian.Uint64(buf[0:]))
	m := int(binary.LittleEndian.Uint64(buf[8:]))
	nbits := int(binary.LittleEndian.Uint64(buf[16:]))
	numFloats := int(binary.LittleEndian.Uint64(buf[24:]))

	if m == 0 || d%m != 0 {
		return nil, &ivferrors.MalformedInputError{Reason: "PQ sidecar dimension not divisible by slot count"}
	}
	dsub := d / m
	k := 1 << nbits
	if numFloats != m*k*dsub {
		return nil, &ivferrors.MalformedInputError{Reason: "PQ sidecar centroid count does not match header"}
	}
	if len(buf) < 32+numFloats*4 {
		return nil, &ivferrors.MalformedInputError{Reason: "PQ sidecar truncated"}
	}

	pq := &ProductQuantizer{
		numSlots:     m,
		nbits:        nbits,
		subvectorDim: dsub,
		cfg:          DefaultTrainConfig(),
		codebooks:    make([][][]float32, m),
	}

	offset := 32
	for sv := 0; sv < m; sv++ {
		pq.codebooks[sv] = make([][]float32, k)
		for c := 0; c < k; c++ {
			centroid := make([]float32, dsub)
			for x := 0; x < dsub; x++ {
				bits := binary.LittleEndian.Uint32(buf[offset:])
				centroid[x] = math.Float32frombits(bits)
				offset += 4
			}
			pq.codebooks[sv][c] = centroid
		}
	}
	return pq, nil
}
