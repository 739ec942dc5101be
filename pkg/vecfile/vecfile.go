// Package vecfile reads the spec §6 vector file format: a sequence of
// records, each an int32 length prefix followed by that many elements of
// a fixed element type. The base/query/learn files used throughout this
// codebase are float32 records; id files are int32; quantized base files
// are uint8 — all three share the same framing.
package vecfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
)

// ReadFloat32Vectors reads every record of a float32 vector file,
// verifying each record's length prefix equals dim.
func ReadFloat32Vectors(path string, dim int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ivferrors.IOError{Path: path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var out [][]float32
	pos := int64(0)
	for {
		var n int32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			if err == io.EOF {
				break
			}
			return nil, &ivferrors.IOError{Path: path, Position: pos, Err: err}
		}
		pos += 4
		if int(n) != dim {
			return nil, &ivferrors.MalformedInputError{Path: path, Reason: "record length does not match configured dimension"}
		}

		vec := make([]float32, n)
		for i := int32(0); i < n; i++ {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, &ivferrors.MalformedInputError{Path: path, Reason: "truncated float32 record"}
			}
			vec[i] = math.Float32frombits(bits)
		}
		pos += int64(n) * 4
		out = append(out, vec)
	}
	return out, nil
}

// WriteFloat32Vectors writes vectors in the same framed format, used by
// tests and by tooling that synthesizes fixture files.
func WriteFloat32Vectors(path string, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return &ivferrors.IOError{Path: path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, v := range vectors {
		if err := binary.Write(w, binary.LittleEndian, int32(len(v))); err != nil {
			return &ivferrors.IOError{Path: path, Err: err}
		}
		for _, x := range v {
			if err := binary.Write(w, binary.LittleEndian, math.Float32bits(x)); err != nil {
				return &ivferrors.IOError{Path: path, Err: err}
			}
		}
	}
	return w.Flush()
}
