package ports

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a lookup of a session or document that does not
// exist. Non-fatal: callers treat it as "start fresh".
var ErrNotFound = errors.New("not found")

// EmbeddingError reports a failure of the embedding function.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding: %s: %v", e.Op, e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// StorageError reports an unreadable or unwritable index or receipt store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// GenerationError reports a generation-service failure or output that does
// not satisfy the expected schema.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation: %s: %v", e.Op, e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }
