// Package invlists implements the per-coarse-cell inverted lists: two
// parallel, append-only sequences per cell — 32-bit ids and packed
// (residual-code, norm-code) bytes — matching the on-disk layout spec §6
// requires.
package invlists

import "sync"

// Lists holds C inverted lists. codeSize is M+1: M residual-PQ bytes
// followed by one norm-PQ byte per entry.
type Lists struct {
	codeSize int
	ids      [][]uint32
	codes    [][]byte
	mus      []sync.Mutex
}

// New allocates C empty lists for entries of (M+1) bytes each. capacityHint,
// if > 0, preallocates that many entries per cell.
func New(numCells, residualCodeSize int, capacityHint int) *Lists {
	codeSize := residualCodeSize + 1
	l := &Lists{
		codeSize: codeSize,
		ids:      make([][]uint32, numCells),
		codes:    make([][]byte, numCells),
		mus:      make([]sync.Mutex, numCells),
	}
	if capacityHint > 0 {
		for i := 0; i < numCells; i++ {
			l.ids[i] = make([]uint32, 0, capacityHint)
			l.codes[i] = make([]byte, 0, capacityHint*codeSize)
		}
	}
	return l
}

// NumCells returns C.
func (l *Lists) NumCells() int { return len(l.ids) }

// CodeSize returns M+1.
func (l *Lists) CodeSize() int { return l.codeSize }

// Append pushes one entry onto cell: its id, its M-byte residual code,
// and its 1-byte norm code.
func (l *Lists) Append(cell uint32, id uint32, residualCode []byte, normCode byte) {
	l.mus[cell].Lock()
	defer l.mus[cell].Unlock()

	l.ids[cell] = append(l.ids[cell], id)
	l.codes[cell] = append(l.codes[cell], residualCode...)
	l.codes[cell] = append(l.codes[cell], normCode)
}

// Len returns the number of entries in cell.
func (l *Lists) Len(cell uint32) int {
	return len(l.ids[cell])
}

// Entry is one (id, residual code, norm code) triple read back from a
// list.
type Entry struct {
	ID           uint32
	ResidualCode []byte
	NormCode     byte
}

// Scan returns the cell's entries in append order. The returned
// ResidualCode slices alias the list's backing array and must not be
// retained past the next Append call on this cell.
func (l *Lists) Scan(cell uint32) []Entry {
	ids := l.ids[cell]
	codes := l.codes[cell]
	out := make([]Entry, len(ids))
	m := l.codeSize - 1
	for i := range ids {
		start := i * l.codeSize
		out[i] = Entry{
			ID:           ids[i],
			ResidualCode: codes[start : start+m],
			NormCode:     codes[start+m],
		}
	}
	return out
}

// IDs returns the cell's id array directly (read-only use after freeze).
func (l *Lists) IDs(cell uint32) []uint32 { return l.ids[cell] }

// Codes returns the cell's packed code bytes directly.
func (l *Lists) Codes(cell uint32) []byte { return l.codes[cell] }

// SetRaw installs ids/codes directly, used by persistence on load. Caller
// guarantees len(codes) == codeSize*len(ids).
func (l *Lists) SetRaw(cell uint32, ids []uint32, codes []byte) {
	l.ids[cell] = ids
	l.codes[cell] = codes
}

// MemoryBytes estimates the resident size of every cell's id and code
// arrays, for the index's memory-usage gauge.
func (l *Lists) MemoryBytes() int64 {
	var total int64
	for i := range l.ids {
		total += int64(len(l.ids[i])) * 4
		total += int64(len(l.codes[i]))
	}
	return total
}
