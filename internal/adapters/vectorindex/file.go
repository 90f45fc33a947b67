// Package vectorindex provides the persistent embedding index.
// Clean Architecture: Adapter implementing ports.EmbeddingIndex.
// Vectors live in memory; every mutation rewrites one blob on disk.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
	"github.com/receiptlens/receiptlens-go/internal/domain/ports"
)

// FileIndex implements ports.EmbeddingIndex backed by a single gob blob.
// The whole mapping is rewritten synchronously after each insert. That is
// a scalability ceiling for large corpora, but keeps the on-disk format a
// plain doc_id -> vector map with no versioning to manage.
type FileIndex struct {
	mu       sync.RWMutex
	path     string
	embedder ports.EmbeddingService
	order    []string             // insertion order, for stable tie-breaks
	vectors  map[string][]float32 // doc_id -> embedding
}

// snapshot is the serialized form of the index.
type snapshot struct {
	Order   []string
	Vectors map[string][]float32
}

// NewFileIndex loads the index at path, or starts empty when the file is
// missing. A corrupt blob is logged and treated as empty rather than
// failing startup.
func NewFileIndex(path string, embedder ports.EmbeddingService) (*FileIndex, error) {
	if path == "" {
		path = "./data/index.gob"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &ports.StorageError{Op: "create index directory", Err: err}
	}

	idx := &FileIndex{
		path:     path,
		embedder: embedder,
		vectors:  make(map[string][]float32),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, &ports.StorageError{Op: "read index", Err: err}
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		log.Printf("[WARN] embedding index at %s is unreadable, starting empty: %v", path, err)
		return idx, nil
	}
	idx.order = snap.Order
	idx.vectors = snap.Vectors
	if idx.vectors == nil {
		idx.vectors = make(map[string][]float32)
	}
	return idx, nil
}

// Insert embeds text, stores the vector under docID, and persists the
// whole index before returning.
func (idx *FileIndex) Insert(ctx context.Context, docID, text string) ([]float32, error) {
	vector, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.vectors[docID]; !exists {
		idx.order = append(idx.order, docID)
	}
	idx.vectors[docID] = vector

	if err := idx.persist(); err != nil {
		return nil, err
	}
	return vector, nil
}

// Query embeds text and returns the topK most similar documents in
// descending score order. Ties keep insertion order.
func (idx *FileIndex) Query(ctx context.Context, text string, topK int) ([]entities.Match, error) {
	queryVec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]entities.Match, 0, len(idx.order))
	for _, docID := range idx.order {
		matches = append(matches, entities.Match{
			DocID: docID,
			Score: cosineSimilarity(queryVec, idx.vectors[docID]),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of stored vectors.
func (idx *FileIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// persist rewrites the blob. Callers hold the write lock.
func (idx *FileIndex) persist() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot{Order: idx.order, Vectors: idx.vectors}); err != nil {
		return &ports.StorageError{Op: "encode index", Err: err}
	}

	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return &ports.StorageError{Op: "write index", Err: err}
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		return &ports.StorageError{Op: "write index", Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

// cosineSimilarity calculates cosine similarity between two vectors.
// A zero-magnitude vector on either side yields 0.0 instead of NaN.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
