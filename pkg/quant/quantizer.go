// Package quant implements product quantization: per-slot k-means
// codebooks, encode/decode, and the inner-product lookup table the
// asymmetric scoring identity is built from.
package quant

// TrainConfig holds configuration for codebook training.
type TrainConfig struct {
	// NumIterations caps the Lloyd's-algorithm refinement passes per slot.
	NumIterations int

	// Verbose is carried with the config but is not read by Train or
	// KMeansPlusPlus; neither logs progress.
	Verbose bool

	// RandomSeed seeds the k-means++ initialization for reproducibility.
	RandomSeed int64
}

// DefaultTrainConfig mirrors the values used throughout this codebase's
// other quantization training paths.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		NumIterations: 25,
		Verbose:       false,
		RandomSeed:    42,
	}
}
