// Package session provides conversation checkpoint stores.
// Clean Architecture: Adapters implementing ports.SessionStore.
package session

import (
	"context"
	"sync"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
)

// MemoryStore keeps conversations in process memory. State lives for the
// lifetime of the process; there is no expiry.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]entities.Conversation
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]entities.Conversation)}
}

// Load returns the conversation for sessionID; unknown sessions load as
// empty conversations.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) (entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[sessionID]
	if !ok {
		return nil, nil
	}
	out := make(entities.Conversation, len(conv))
	copy(out, conv)
	return out, nil
}

// Save persists the conversation under sessionID.
func (s *MemoryStore) Save(ctx context.Context, sessionID string, conv entities.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(entities.Conversation, len(conv))
	copy(stored, conv)
	s.convs[sessionID] = stored
	return nil
}
