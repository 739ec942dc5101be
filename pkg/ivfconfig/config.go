// Package ivfconfig bundles the index's build-time and runtime parameters,
// following the struct-of-structs-with-defaults shape used elsewhere in
// this codebase's configuration layer.
package ivfconfig

import "fmt"

// BuildConfig holds parameters fixed at index construction time.
type BuildConfig struct {
	Dim            int // vector dimension d
	NumCentroids   int // coarse cell count C
	NumSubvectors  int // PQ slot count M; must divide Dim
	NumBitsPerSlot int // PQ bits per slot; 8 in practice (K=256)
	Seed           int64
}

// RuntimeConfig holds parameters that may be tuned after an index is
// loaded, per spec §6's enumerated runtime configuration.
type RuntimeConfig struct {
	NProbe         int // cells scanned per query; default 16
	MaxCodes       int // soft cap on candidates examined per query; default 10000
	EfSearch       int // HNSW dynamic-list width at query time
	EfConstruction int // width during insertion; default 240
	M              int // graph degree at layer >= 1; default 16
	M0             int // graph degree at layer 0; default 2*M
}

// Config is the full configuration accepted by an Index.
type Config struct {
	Build   BuildConfig
	Runtime RuntimeConfig
}

// Default returns a configuration with the defaults named in spec §6.
func Default() Config {
	const m = 16
	return Config{
		Build: BuildConfig{
			Dim:            0,
			NumCentroids:   0,
			NumSubvectors:  0,
			NumBitsPerSlot: 8,
			Seed:           42,
		},
		Runtime: RuntimeConfig{
			NProbe:         16,
			MaxCodes:       10000,
			EfSearch:       220,
			EfConstruction: 240,
			M:              m,
			M0:             2 * m,
		},
	}
}

// Validate reports the first configuration error found, if any.
func (c Config) Validate() error {
	if c.Build.Dim <= 0 {
		return fmt.Errorf("invalid dimension: %d (must be > 0)", c.Build.Dim)
	}
	if c.Build.NumCentroids <= 0 {
		return fmt.Errorf("invalid centroid count: %d (must be > 0)", c.Build.NumCentroids)
	}
	if c.Build.NumSubvectors <= 0 || c.Build.Dim%c.Build.NumSubvectors != 0 {
		return fmt.Errorf("dimension %d must be divisible by subvector count %d", c.Build.Dim, c.Build.NumSubvectors)
	}
	if c.Runtime.NProbe < 1 || c.Runtime.NProbe > c.Build.NumCentroids {
		return fmt.Errorf("invalid nprobe: %d (must be in [1, %d])", c.Runtime.NProbe, c.Build.NumCentroids)
	}
	return nil
}
