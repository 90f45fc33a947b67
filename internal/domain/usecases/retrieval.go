// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"context"
	"fmt"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
	"github.com/receiptlens/receiptlens-go/internal/domain/ports"
)

// Retrieval turns a free-text query into ranked, hydrated receipt records.
// It composes the embedding index with the receipt repository; the two are
// not transactionally linked, so index entries without a backing receipt
// are tolerated and skipped.
type Retrieval struct {
	index    ports.EmbeddingIndex
	receipts ports.ReceiptRepository
}

// NewRetrieval creates a Retrieval with injected dependencies.
func NewRetrieval(index ports.EmbeddingIndex, receipts ports.ReceiptRepository) *Retrieval {
	return &Retrieval{index: index, receipts: receipts}
}

// Search returns up to topK receipts ranked by similarity to queryText.
// Score ordering from the index is preserved; stale doc_ids are dropped
// without failing the search.
func (r *Retrieval) Search(ctx context.Context, queryText string, topK int) ([]entities.ScoredReceipt, error) {
	matches, err := r.index.Query(ctx, queryText, topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results := make([]entities.ScoredReceipt, 0, len(matches))
	for _, m := range matches {
		receipt, err := r.receipts.Get(ctx, m.DocID)
		if err != nil {
			return nil, fmt.Errorf("hydrating %s: %w", m.DocID, err)
		}
		if receipt == nil {
			continue // vector without a receipt: stale, skip
		}
		results = append(results, entities.ScoredReceipt{
			Receipt:    *receipt,
			MatchScore: m.Score,
		})
	}
	return results, nil
}
