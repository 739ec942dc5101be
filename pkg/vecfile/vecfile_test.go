package vecfile

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteReadFloat32VectorsRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3, 4},
		{-1.5, 0, 2.25, 9.75},
	}
	path := filepath.Join(t.TempDir(), "vecs.bin")
	if err := WriteFloat32Vectors(path, vectors); err != nil {
		t.Fatalf("WriteFloat32Vectors: %v", err)
	}

	got, err := ReadFloat32Vectors(path, 4)
	if err != nil {
		t.Fatalf("ReadFloat32Vectors: %v", err)
	}
	if !reflect.DeepEqual(vectors, got) {
		t.Fatalf("round trip mismatch: want %v, got %v", vectors, got)
	}
}

func TestReadFloat32VectorsRejectsDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vecs.bin")
	if err := WriteFloat32Vectors(path, [][]float32{{1, 2, 3}}); err != nil {
		t.Fatalf("WriteFloat32Vectors: %v", err)
	}
	if _, err := ReadFloat32Vectors(path, 8); err == nil {
		t.Fatal("expected MalformedInput for dimension mismatch, got nil")
	}
}
