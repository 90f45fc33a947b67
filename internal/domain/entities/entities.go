// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"fmt"
	"sort"
	"strings"
)

// Receipt is a structured purchase record produced by ingestion.
// Keyed by DocID; replaced wholesale on re-ingestion, never partially mutated.
type Receipt struct {
	DocID          string            `json:"doc_id"`
	DateOfPurchase string            `json:"date_of_purchase"`
	Vendor         string            `json:"vendor"`
	TotalAmount    float64           `json:"total_amount"`
	Currency       string            `json:"currency"`
	Items          map[string]string `json:"items"`
}

// SummaryText derives the text that gets embedded for this receipt.
// Item names are included so item-level questions can match.
func (r Receipt) SummaryText() string {
	names := make([]string, 0, len(r.Items))
	for name := range r.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("Vendor: %s, Items: %s, Total: %.2f %s",
		r.Vendor, strings.Join(names, ", "), r.TotalAmount, r.Currency)
}

// ScoredReceipt is a retrieval result: a receipt plus its raw cosine
// similarity against the search query, in [-1, 1].
type ScoredReceipt struct {
	Receipt
	MatchScore float64 `json:"match_score"`
}

// Match is a single similarity hit from the embedding index.
type Match struct {
	DocID string
	Score float64
}

// MaxTurns bounds how many prior exchanges a conversation keeps.
const MaxTurns = 5

// Conversation is the ordered log of prior question/answer exchanges for
// one session, oldest first. Append returns a new value; callers persist
// it under their session key.
type Conversation []string

// Append adds one turn and drops the oldest entries beyond MaxTurns.
func (c Conversation) Append(turn string) Conversation {
	out := make(Conversation, 0, len(c)+1)
	out = append(out, c...)
	out = append(out, turn)
	if len(out) > MaxTurns {
		out = out[len(out)-MaxTurns:]
	}
	return out
}

// FormatTurn renders one exchange as a single replayable context line.
func FormatTurn(question, answer string) string {
	return fmt.Sprintf("Question: %s Answer: %s", question, answer)
}

// PipelineState is the aggregate threaded through the pipeline stages.
// Only Answer and Conversation survive past an invocation.
type PipelineState struct {
	Conversation Conversation
	Query        string
	SearchParams string
	Retrieved    []ScoredReceipt
	Answer       string
}
