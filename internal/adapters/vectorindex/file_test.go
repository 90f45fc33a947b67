package vectorindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeEmbedder maps exact texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func newTestIndex(t *testing.T, embedder *fakeEmbedder) *FileIndex {
	t.Helper()
	dir := t.TempDir()
	idx, err := NewFileIndex(filepath.Join(dir, "index.gob"), embedder)
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	return idx
}

func TestFileIndex_QueryOrdering(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"doc a": {1, 0, 0},
		"doc b": {0.9, 0.1, 0},
		"doc c": {0, 1, 0},
		"query": {1, 0, 0},
	}}
	idx := newTestIndex(t, embedder)
	ctx := context.Background()

	for _, doc := range []string{"doc a", "doc b", "doc c"} {
		if _, err := idx.Insert(ctx, doc, doc); err != nil {
			t.Fatalf("insert %q: %v", doc, err)
		}
	}

	matches, err := idx.Query(ctx, "query", 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].DocID != "doc a" {
		t.Errorf("expected doc a first, got %s", matches[0].DocID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("scores not in descending order: %v", matches)
		}
	}
}

func TestFileIndex_QueryDeterministic(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 2, 3},
		"b": {3, 2, 1},
		"q": {1, 1, 1},
	}}
	idx := newTestIndex(t, embedder)
	ctx := context.Background()
	idx.Insert(ctx, "a", "a")
	idx.Insert(ctx, "b", "b")

	first, _ := idx.Query(ctx, "q", 2)
	second, _ := idx.Query(ctx, "q", 2)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("query not deterministic: %v vs %v", first, second)
		}
	}
}

func TestFileIndex_TopKBound(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	idx := newTestIndex(t, embedder)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		doc := fmt.Sprintf("doc-%d", i)
		embedder.vectors[doc] = []float32{float32(i), 1, 0}
		idx.Insert(ctx, doc, doc)
	}

	cases := []struct{ topK, want int }{{1, 1}, {3, 3}, {10, 3}}
	for _, tc := range cases {
		matches, err := idx.Query(ctx, "q", tc.topK)
		if err != nil {
			t.Fatalf("query topK=%d: %v", tc.topK, err)
		}
		if len(matches) != tc.want {
			t.Errorf("topK=%d: expected %d matches, got %d", tc.topK, tc.want, len(matches))
		}
	}
}

func TestFileIndex_EmptyIndex(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	idx := newTestIndex(t, embedder)

	matches, err := idx.Query(context.Background(), "q", 4)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected empty result, got %v", matches)
	}
}

func TestFileIndex_ZeroVectorGuard(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"zero doc": {0, 0, 0},
		"q":        {1, 0, 0},
	}}
	idx := newTestIndex(t, embedder)
	ctx := context.Background()
	idx.Insert(ctx, "zero", "zero doc")

	matches, err := idx.Query(ctx, "q", 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if matches[0].Score != 0.0 {
		t.Errorf("expected similarity 0.0 against zero vector, got %f", matches[0].Score)
	}

	// zero-magnitude query against a normal vector
	matches, _ = idx.Query(ctx, "unknown text embeds to zero", 1)
	if matches[0].Score != 0.0 {
		t.Errorf("expected similarity 0.0 for zero query, got %f", matches[0].Score)
	}
}

func TestFileIndex_TieBreakInsertionOrder(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"first":  {1, 0, 0},
		"second": {1, 0, 0},
		"q":      {1, 0, 0},
	}}
	idx := newTestIndex(t, embedder)
	ctx := context.Background()
	idx.Insert(ctx, "earlier", "second")
	// re-insert must not move the entry to the back of the order
	idx.Insert(ctx, "earlier", "second")
	idx.Insert(ctx, "later", "first")

	matches, _ := idx.Query(ctx, "q", 2)
	if matches[0].DocID != "earlier" || matches[1].DocID != "later" {
		t.Errorf("tie not broken by insertion order: %v", matches)
	}
}

func TestFileIndex_InsertReplacesVector(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"old": {1, 0, 0},
		"new": {0, 1, 0},
		"q":   {0, 1, 0},
	}}
	idx := newTestIndex(t, embedder)
	ctx := context.Background()
	idx.Insert(ctx, "doc", "old")
	idx.Insert(ctx, "doc", "new")

	if idx.Len() != 1 {
		t.Fatalf("expected 1 vector after replace, got %d", idx.Len())
	}
	matches, _ := idx.Query(ctx, "q", 1)
	if matches[0].Score < 0.99 {
		t.Errorf("vector not replaced, score %f", matches[0].Score)
	}
}

func TestFileIndex_PersistAndReload(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"doc": {1, 2, 3},
		"q":   {1, 2, 3},
	}}
	dir := t.TempDir()
	path := filepath.Join(dir, "index.gob")

	idx, err := NewFileIndex(path, embedder)
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	if _, err := idx.Insert(context.Background(), "doc", "doc"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	reloaded, err := NewFileIndex(path, embedder)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("expected 1 vector after reload, got %d", reloaded.Len())
	}
	matches, _ := reloaded.Query(context.Background(), "q", 1)
	if matches[0].DocID != "doc" || matches[0].Score < 0.99 {
		t.Errorf("reloaded index does not match: %v", matches)
	}
}

func TestFileIndex_MissingFileStartsEmpty(t *testing.T) {
	idx, err := NewFileIndex(filepath.Join(t.TempDir(), "nope.gob"), &fakeEmbedder{})
	if err != nil {
		t.Fatalf("should not fail on missing file: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
}

func TestFileIndex_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.gob")
	os.WriteFile(path, []byte("not a gob blob"), 0o644)

	idx, err := NewFileIndex(path, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("should not fail on corrupt file: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index after corrupt load, got %d", idx.Len())
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero left", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"zero right", []float32{1, 1}, []float32{0, 0}, 0.0},
	}
	for _, tc := range cases {
		got := cosineSimilarity(tc.a, tc.b)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: expected %f, got %f", tc.name, tc.want, got)
		}
	}
}
