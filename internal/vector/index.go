// Package vector provides a brute-force cosine-similarity index with a binary
// on-disk snapshot format. Entry norms are computed once at add time so a
// search costs one dot product per stored vector.
package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Result is one similarity hit returned by Search.
type Result struct {
	ID    string
	Score float64
}

// Index holds vectors keyed by ID and answers top-k cosine-similarity
// queries. Safe for concurrent use.
type Index struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	norms      []float64
	mu         sync.RWMutex
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
		norms:      make([]float64, 0),
	}, nil
}

// Add appends vectors with the given IDs, caching each vector's norm.
func (x *Index) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != x.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), x.dimensions)
		}
		vec := make([]float32, x.dimensions)
		copy(vec, vectors[i])
		x.ids = append(x.ids, id)
		x.vectors = append(x.vectors, vec)
		x.norms = append(x.norms, L2Norm(vec))
	}
	return nil
}

// Search returns the top-k entries by cosine similarity to query, descending.
// Ties keep insertion order so repeated queries are deterministic.
func (x *Index) Search(query []float32, k int) ([]*Result, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), x.dimensions)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 || len(x.ids) == 0 {
		return nil, nil
	}
	queryNorm := L2Norm(query)
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(x.ids))
	for i, vec := range x.vectors {
		var score float64
		if queryNorm > 0 && x.norms[i] > 0 {
			score = Dot(query, vec) / (queryNorm * x.norms[i])
		}
		scores[i] = scored{pos: i, score: score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*Result, k)
	for i := 0; i < k; i++ {
		result[i] = &Result{ID: x.ids[scores[i].pos], Score: scores[i].score}
	}
	return result, nil
}

// Vector returns a copy of the stored vector for id, or nil if absent.
func (x *Index) Vector(id string) []float32 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for i, stored := range x.ids {
		if stored == id {
			vec := make([]float32, x.dimensions)
			copy(vec, x.vectors[i])
			return vec
		}
	}
	return nil
}

// Remove deletes entries by ID.
func (x *Index) Remove(ids []string) {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	newIDs := make([]string, 0, len(x.ids))
	newVectors := make([][]float32, 0, len(x.vectors))
	newNorms := make([]float64, 0, len(x.norms))
	for i, id := range x.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, x.vectors[i])
			newNorms = append(newNorms, x.norms[i])
		}
	}
	x.ids = newIDs
	x.vectors = newVectors
	x.norms = newNorms
}

// Size returns the number of stored vectors.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Dimensions returns the vector dimension the index was created with.
func (x *Index) Dimensions() int {
	return x.dimensions
}

// Save writes the index to path. Format: dimension (4), count (4), then per
// entry: idLen (4), id bytes, norm (8), vector (dimension*4 bytes). All
// little-endian.
func (x *Index) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(x.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(x.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range x.ids {
		idBytes := []byte(id)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, x.norms[i]); err != nil {
			return fmt.Errorf("write norm: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(x.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads a snapshot from path, replacing the in-memory contents.
// A missing file leaves the index unchanged and is not an error.
func (x *Index) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != x.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, x.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ids = make([]string, 0, n)
	x.vectors = make([][]float32, 0, n)
	x.norms = make([]float64, 0, n)
	buf := make([]byte, x.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		var norm float64
		if err := binary.Read(f, binary.LittleEndian, &norm); err != nil {
			return fmt.Errorf("read norm: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		x.ids = append(x.ids, string(idBytes))
		x.vectors = append(x.vectors, bytesToFloat32Slice(buf))
		x.norms = append(x.norms, norm)
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
