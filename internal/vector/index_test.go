package vector

import (
	"math"
	"path/filepath"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"identical scaled", []float32{1, 0, 0}, []float32{5, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestIndexSearchOrdering(t *testing.T) {
	idx, err := NewIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Add(
		[]string{"x", "y", "diag"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	)
	if err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search([]float32{1, 0.2, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID != "x" {
		t.Errorf("top result = %s, want x", results[0].ID)
	}
	if results[1].ID != "diag" {
		t.Errorf("second result = %s, want diag", results[1].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted descending at %d", i)
		}
	}
}

func TestIndexSearchUnnormalizedVectors(t *testing.T) {
	idx, _ := NewIndex(2)
	// Same direction at very different magnitudes must score equally.
	_ = idx.Add([]string{"small", "large"}, [][]float32{{0.001, 0}, {1000, 0}})
	results, err := idx.Search([]float32{2, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 || math.Abs(results[1].Score-1.0) > 1e-6 {
		t.Errorf("scores = %f, %f; want both 1.0", results[0].Score, results[1].Score)
	}
}

func TestIndexDimensionMismatch(t *testing.T) {
	idx, _ := NewIndex(3)
	if err := idx.Add([]string{"a"}, [][]float32{{1, 2}}); err == nil {
		t.Error("expected error adding 2-dim vector to 3-dim index")
	}
	if _, err := idx.Search([]float32{1, 2}, 1); err == nil {
		t.Error("expected error searching with 2-dim query")
	}
}

func TestIndexRemove(t *testing.T) {
	idx, _ := NewIndex(2)
	_ = idx.Add([]string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	idx.Remove([]string{"b"})
	if idx.Size() != 2 {
		t.Fatalf("size = %d after remove, want 2", idx.Size())
	}
	results, _ := idx.Search([]float32{0, 1}, 3)
	for _, r := range results {
		if r.ID == "b" {
			t.Error("removed entry still returned by search")
		}
	}
}

func TestIndexSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")

	idx, _ := NewIndex(4)
	_ = idx.Add(
		[]string{"a", "b"},
		[][]float32{{0.1, 0.2, 0.3, 0.4}, {4, 3, 2, 1}},
	)
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewIndex(4)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size = %d, want 2", loaded.Size())
	}

	query := []float32{0.2, 0.4, 0.6, 0.8}
	want, _ := idx.Search(query, 2)
	got, _ := loaded.Search(query, 2)
	for i := range want {
		if got[i].ID != want[i].ID || math.Abs(got[i].Score-want[i].Score) > 1e-9 {
			t.Errorf("result %d: got (%s, %f), want (%s, %f)", i, got[i].ID, got[i].Score, want[i].ID, want[i].Score)
		}
	}
}

func TestIndexLoadMissingFile(t *testing.T) {
	idx, _ := NewIndex(2)
	if err := idx.Load(filepath.Join(t.TempDir(), "absent.idx")); err != nil {
		t.Errorf("missing file should not error, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("size = %d, want 0", idx.Size())
	}
}

func TestIndexVectorLookup(t *testing.T) {
	idx, _ := NewIndex(2)
	_ = idx.Add([]string{"a"}, [][]float32{{0.5, 0.25}})
	vec := idx.Vector("a")
	if vec == nil || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Errorf("Vector(a) = %v", vec)
	}
	if idx.Vector("missing") != nil {
		t.Error("Vector(missing) should be nil")
	}
}
