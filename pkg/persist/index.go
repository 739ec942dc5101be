// Package persist writes and reads the on-disk representation of an
// index: the main index file (coarse-cell id/code arrays), the residual
// and norm PQ sidecars, and the coarse-graph "info"/"edges" sidecars.
// Every format here is little-endian and grounded on the original
// hnswIndexPQ write()/read() pair: whole-file reads and writes, no
// streaming requirement.
package persist

import (
	"encoding/binary"
	"os"

	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/invlists"
	"github.com/therealutkarshpriyadarshi/ivfhnswpq/pkg/ivferrors"
)

// WriteIndexFile writes the spec §6 index file format:
// u64 d, u64 C, u64 nprobe, u64 max_codes,
// {u64 n_i; u32[n_i] ids}×C, {u64 b_i; u8[b_i] codes}×C.
func WriteIndexFile(path string, dim, nprobe, maxCodes int, lists *invlists.Lists) error {
	c := lists.NumCells()

	size := 32
	for cell := 0; cell < c; cell++ {
		size += 8 + 4*len(lists.IDs(uint32(cell)))
	}
	for cell := 0; cell < c; cell++ {
		size += 8 + len(lists.Codes(uint32(cell)))
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf[0:], uint64(dim))
	binary.LittleEndian.PutUint64(buf[8:], uint64(c))
	binary.LittleEndian.PutUint64(buf[16:], uint64(nprobe))
	binary.LittleEndian.PutUint64(buf[24:], uint64(maxCodes))

	offset := 32
	for cell := 0; cell < c; cell++ {
		ids := lists.IDs(uint32(cell))
		binary.LittleEndian.PutUint64(buf[offset:], uint64(len(ids)))
		offset += 8
		for _, id := range ids {
			binary.LittleEndian.PutUint32(buf[offset:], id)
			offset += 4
		}
	}
	for cell := 0; cell < c; cell++ {
		codes := lists.Codes(uint32(cell))
		binary.LittleEndian.PutUint64(buf[offset:], uint64(len(codes)))
		offset += 8
		copy(buf[offset:], codes)
		offset += len(codes)
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return &ivferrors.IOError{Path: path, Err: err}
	}
	return nil
}

// IndexFileHeader is the index file's scalar prefix.
type IndexFileHeader struct {
	Dim      int
	Cells    int
	NProbe   int
	MaxCodes int
}

// ReadIndexFile reads the format written by WriteIndexFile and populates a
// fresh Lists, validating the b_i = n_i*(M+1) invariant against codeSize.
func ReadIndexFile(path string, codeSize int) (IndexFileHeader, *invlists.Lists, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return IndexFileHeader{}, nil, &ivferrors.IOError{Path: path, Err: err}
	}
	if len(buf) < 32 {
		return IndexFileHeader{}, nil, &ivferrors.MalformedInputError{Path: path, Reason: "index file shorter than header"}
	}

	hdr := IndexFileHeader{
		Dim:      int(binary.LittleEndian.Uint64(buf[0:])),
		Cells:    int(binary.LittleEndian.Uint64(buf[8:])),
		NProbe:   int(binary.LittleEndian.Uint64(buf[16:])),
		MaxCodes: int(binary.LittleEndian.Uint64(buf[24:])),
	}

	lists := invlists.New(hdr.Cells, codeSize-1, 0)
	offset := 32

	allIDs := make([][]uint32, hdr.Cells)
	for cell := 0; cell < hdr.Cells; cell++ {
		if offset+8 > len(buf) {
			return IndexFileHeader{}, nil, &ivferrors.MalformedInputError{Path: path, Reason: "truncated id-list length"}
		}
		n := int(binary.LittleEndian.Uint64(buf[offset:]))
		offset += 8
		if offset+4*n > len(buf) {
			return IndexFileHeader{}, nil, &ivferrors.MalformedInputError{Path: path, Reason: "truncated id list"}
		}
		ids := make([]uint32, n)
		for i := 0; i < n; i++ {
			ids[i] = binary.LittleEndian.Uint32(buf[offset:])
			offset += 4
		}
		allIDs[cell] = ids
	}

	for cell := 0; cell < hdr.Cells; cell++ {
		if offset+8 > len(buf) {
			return IndexFileHeader{}, nil, &ivferrors.MalformedInputError{Path: path, Reason: "truncated code-list length"}
		}
		b := int(binary.LittleEndian.Uint64(buf[offset:]))
		offset += 8
		if offset+b > len(buf) {
			return IndexFileHeader{}, nil, &ivferrors.MalformedInputError{Path: path, Reason: "truncated code list"}
		}
		if b != len(allIDs[cell])*codeSize {
			return IndexFileHeader{}, nil, &ivferrors.InvariantViolationError{
				Invariant: "b_i = n_i*(M+1)",
				Detail:    "code byte count does not match id count times code size",
			}
		}
		codes := make([]byte, b)
		copy(codes, buf[offset:offset+b])
		offset += b
		lists.SetRaw(uint32(cell), allIDs[cell], codes)
	}

	return hdr, lists, nil
}
