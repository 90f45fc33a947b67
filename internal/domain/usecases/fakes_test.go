package usecases

import (
	"context"
	"fmt"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
)

// fakeIndex returns canned matches regardless of query text.
type fakeIndex struct {
	matches []entities.Match
	err     error
}

func (f *fakeIndex) Insert(ctx context.Context, docID, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.matches = append(f.matches, entities.Match{DocID: docID, Score: 1})
	return []float32{1, 0, 0}, nil
}

func (f *fakeIndex) Query(ctx context.Context, text string, topK int) ([]entities.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK > len(f.matches) {
		topK = len(f.matches)
	}
	return f.matches[:topK], nil
}

// fakeRepo holds receipts in a map.
type fakeRepo struct {
	receipts map[string]entities.Receipt
	err      error
}

func newFakeRepo(receipts ...entities.Receipt) *fakeRepo {
	m := make(map[string]entities.Receipt, len(receipts))
	for _, r := range receipts {
		m[r.DocID] = r
	}
	return &fakeRepo{receipts: m}
}

func (f *fakeRepo) Upsert(ctx context.Context, r entities.Receipt) error {
	if f.err != nil {
		return f.err
	}
	f.receipts[r.DocID] = r
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, docID string) (*entities.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.receipts[docID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]entities.Receipt, error) {
	out := make([]entities.Receipt, 0, len(f.receipts))
	for _, r := range f.receipts {
		out = append(out, r)
	}
	return out, nil
}

// scriptedLLM returns replies in sequence and records received prompts.
type scriptedLLM struct {
	replies []string
	prompts []string
	err     error
}

func (f *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", fmt.Errorf("scriptedLLM: out of replies")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

// memSessions is an in-memory session store for tests.
type memSessions struct {
	data map[string]entities.Conversation
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string]entities.Conversation)}
}

func (f *memSessions) Load(ctx context.Context, id string) (entities.Conversation, error) {
	return f.data[id], nil
}

func (f *memSessions) Save(ctx context.Context, id string, conv entities.Conversation) error {
	f.data[id] = conv
	return nil
}

// fakeOCR returns fixed text for any image.
type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) ExtractText(ctx context.Context, base64Image string) (string, error) {
	return f.text, f.err
}
