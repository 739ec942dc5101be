package persist

import (
	"os"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/quant"
)

// WritePQSidecar writes a trained quantizer's Serialize() output to path.
func WritePQSidecar(path string, pq *quant.ProductQuantizer) error {
	if err := os.WriteFile(path, pq.Serialize(), 0o644); err != nil {
		return &ivferrors.IOError{Path: path, Err: err}
	}
	return nil
}

// ReadPQSidecar reads and deserializes a quantizer sidecar.
func ReadPQSidecar(path string) (*quant.ProductQuantizer, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, &ivferrors.IOError{Path: path, Err: err}
	}
	pq, err := quant.Deserialize(buf)
	if err != nil {
		if me, ok := err.(*ivferrors.MalformedInputError); ok {
			me.Path = path
		}
		return nil, err
	}
	return pq, nil
}
