package invlists

import (
	"reflect"
	"testing"
)

func TestAppendAndScan(t *testing.T) {
	l := New(4, 3, 0) // M=3, codeSize=4

	l.Append(0, 100, []byte{1, 2, 3}, 9)
	l.Append(0, 101, []byte{4, 5, 6}, 10)
	l.Append(2, 200, []byte{7, 8, 9}, 11)

	if l.Len(0) != 2 {
		t.Fatalf("Len(0) = %d, want 2", l.Len(0))
	}
	if l.Len(2) != 1 {
		t.Fatalf("Len(2) = %d, want 1", l.Len(2))
	}
	if l.Len(1) != 0 {
		t.Fatalf("Len(1) = %d, want 0", l.Len(1))
	}

	entries := l.Scan(0)
	want := []Entry{
		{ID: 100, ResidualCode: []byte{1, 2, 3}, NormCode: 9},
		{ID: 101, ResidualCode: []byte{4, 5, 6}, NormCode: 10},
	}
	if len(entries) != len(want) {
		t.Fatalf("Scan(0) returned %d entries, want %d", len(entries), len(want))
	}
	for i := range entries {
		if entries[i].ID != want[i].ID || entries[i].NormCode != want[i].NormCode {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
		if !reflect.DeepEqual(entries[i].ResidualCode, want[i].ResidualCode) {
			t.Fatalf("entry %d residual = %v, want %v", i, entries[i].ResidualCode, want[i].ResidualCode)
		}
	}
}

func TestInvariantCodesLengthMatchesIDs(t *testing.T) {
	l := New(2, 5, 0) // codeSize = 6
	for i := 0; i < 10; i++ {
		l.Append(0, uint32(i), []byte{1, 2, 3, 4, 5}, byte(i))
	}
	if got, want := len(l.Codes(0)), l.CodeSize()*l.Len(0); got != want {
		t.Fatalf("len(codes) = %d, want (M+1)*len(ids) = %d", got, want)
	}
}
