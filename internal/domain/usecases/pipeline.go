// Package usecases - pipeline.go runs the staged question-answering flow.
package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
	"github.com/receiptlens/receiptlens-go/internal/domain/ports"
)

// DefaultTopK is how many receipts the retrieve stage asks for.
const DefaultTopK = 4

// Pipeline answers a question about stored receipts in three strictly
// sequential stages: refine the query into search text, retrieve matching
// receipts, reason out an answer. Conversation state is loaded before the
// first stage and checkpointed after the last; everything else is
// transient per invocation.
//
// All invocations serialize behind the injected gate, shared with
// ingestion, so concurrent request handlers cannot race on the index blob
// or the database connection.
type Pipeline struct {
	llm       ports.GenerationService
	retrieval *Retrieval
	sessions  ports.SessionStore
	gate      sync.Locker
	topK      int
	now       func() time.Time
}

// NewPipeline creates a Pipeline with injected dependencies. A topK of
// zero or less falls back to DefaultTopK.
func NewPipeline(
	llm ports.GenerationService,
	retrieval *Retrieval,
	sessions ports.SessionStore,
	gate sync.Locker,
	topK int,
) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if gate == nil {
		gate = &sync.Mutex{}
	}
	return &Pipeline{
		llm:       llm,
		retrieval: retrieval,
		sessions:  sessions,
		gate:      gate,
		topK:      topK,
		now:       time.Now,
	}
}

// Ask runs one pipeline invocation for the given session. On success the
// exchange has been appended to the session's conversation; on error the
// conversation is left untouched and the error propagates to the caller.
func (p *Pipeline) Ask(ctx context.Context, sessionID, query string) (string, error) {
	p.gate.Lock()
	defer p.gate.Unlock()

	conv, err := p.sessions.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	state := &entities.PipelineState{Conversation: conv, Query: query}

	if err := p.refine(ctx, state); err != nil {
		return "", err
	}
	if err := p.retrieve(ctx, state); err != nil {
		return "", err
	}
	if err := p.reason(ctx, state); err != nil {
		return "", err
	}

	if err := p.sessions.Save(ctx, sessionID, state.Conversation); err != nil {
		return "", fmt.Errorf("saving session %s: %w", sessionID, err)
	}
	return state.Answer, nil
}

// refine asks the model to restate the question as search-oriented text,
// given the current date and the trailing conversation.
func (p *Pipeline) refine(ctx context.Context, state *entities.PipelineState) error {
	var sb strings.Builder
	sb.WriteString("You are an assistant that turns a question about a user's stored purchase receipts ")
	sb.WriteString("into a short search query. Today is ")
	sb.WriteString(p.now().Format("2006-01-02"))
	sb.WriteString(".\nRespond with search text only, no explanation.\n")
	sb.WriteString("Question: ")
	sb.WriteString(state.Query)
	if len(state.Conversation) > 0 {
		sb.WriteString("\nPrevious conversation:\n")
		sb.WriteString(strings.Join(state.Conversation, "\n"))
	}

	params, err := p.llm.Generate(ctx, sb.String())
	if err != nil {
		return &ports.GenerationError{Op: "refine query", Err: err}
	}
	state.SearchParams = params
	return nil
}

// retrieve executes the search with the refined text. An empty result is
// not an error; reason handles it.
func (p *Pipeline) retrieve(ctx context.Context, state *entities.PipelineState) error {
	retrieved, err := p.retrieval.Search(ctx, state.SearchParams, p.topK)
	if err != nil {
		return err
	}
	state.Retrieved = retrieved
	return nil
}

// reason composes the final answer from the question, the retrieved
// receipts, and the conversation, then appends the exchange.
func (p *Pipeline) reason(ctx context.Context, state *entities.PipelineState) error {
	var sb strings.Builder
	sb.WriteString("You are an assistant answering questions about a user's purchase receipts. Today is ")
	sb.WriteString(p.now().Format("2006-01-02"))
	sb.WriteString(".\nUse the matching receipts below when they are relevant; otherwise answer from ")
	sb.WriteString("the previous conversation or general knowledge.\n")
	sb.WriteString("Always format amounts using the currency given on the receipt, never an assumed one.\n")
	sb.WriteString("Question: ")
	sb.WriteString(state.Query)
	if len(state.Conversation) > 0 {
		sb.WriteString("\nPrevious conversation:\n")
		sb.WriteString(strings.Join(state.Conversation, "\n"))
	}
	sb.WriteString("\nMatching receipts:\n")
	if len(state.Retrieved) == 0 {
		sb.WriteString("(none)\n")
	} else {
		sb.WriteString(formatReceipts(state.Retrieved))
	}
	sb.WriteString("Answer:")

	answer, err := p.llm.Generate(ctx, sb.String())
	if err != nil {
		return &ports.GenerationError{Op: "compose answer", Err: err}
	}

	state.Answer = answer
	state.Conversation = state.Conversation.Append(entities.FormatTurn(state.Query, answer))
	return nil
}

// formatReceipts renders retrieved receipts as human-readable evidence.
func formatReceipts(receipts []entities.ScoredReceipt) string {
	var sb strings.Builder
	for i, r := range receipts {
		fmt.Fprintf(&sb, "Receipt %d:\n", i+1)
		fmt.Fprintf(&sb, "  Date: %s\n", r.DateOfPurchase)
		fmt.Fprintf(&sb, "  Vendor: %s\n", r.Vendor)
		fmt.Fprintf(&sb, "  Total: %.2f %s\n", r.TotalAmount, r.Currency)
		fmt.Fprintf(&sb, "  Items: %s\n", formatItems(r.Items))
		fmt.Fprintf(&sb, "  Match Score: %.4f\n", r.MatchScore)
	}
	return sb.String()
}

func formatItems(items map[string]string) string {
	if len(items) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	// stable order so prompts are reproducible for identical input
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s (%s)", name, items[name])
	}
	return strings.Join(parts, ", ")
}
