// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
)

// EmbeddingService converts text into a fixed-length vector.
// Deterministic for identical input. Empty text still embeds to a defined
// vector; it is not an error.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationService produces a text completion for a prompt.
// No retry or backoff is imposed here; failures propagate to the caller.
type GenerationService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbeddingIndex owns the doc_id -> vector mapping used for similarity search.
type EmbeddingIndex interface {
	// Insert embeds text, stores the vector under docID (replacing any
	// prior vector), persists the index, and returns the vector.
	Insert(ctx context.Context, docID, text string) ([]float32, error)

	// Query embeds text and returns up to topK matches by descending
	// cosine similarity. Ties keep insertion order. An empty index
	// yields an empty result.
	Query(ctx context.Context, text string, topK int) ([]entities.Match, error)
}

// ReceiptRepository stores structured receipt records.
type ReceiptRepository interface {
	// Upsert inserts or fully replaces the record at receipt.DocID.
	Upsert(ctx context.Context, receipt entities.Receipt) error

	// Get returns the receipt for docID, or (nil, nil) when absent.
	Get(ctx context.Context, docID string) (*entities.Receipt, error)

	// ListAll returns every stored receipt. Order is unspecified.
	ListAll(ctx context.Context) ([]entities.Receipt, error)
}

// SessionStore checkpoints conversation state between pipeline invocations.
type SessionStore interface {
	// Load returns the conversation for sessionID. An unknown session is
	// not an error; it loads as an empty conversation.
	Load(ctx context.Context, sessionID string) (entities.Conversation, error)

	// Save persists the conversation under sessionID.
	Save(ctx context.Context, sessionID string, conv entities.Conversation) error
}

// OCRService extracts raw text from a base64-encoded receipt image.
type OCRService interface {
	ExtractText(ctx context.Context, base64Image string) (string, error)
}

// NopLocker satisfies sync.Locker without doing anything. It substitutes
// for the process-wide serialization gate in single-threaded tests.
type NopLocker struct{}

func (NopLocker) Lock()   {}
func (NopLocker) Unlock() {}
