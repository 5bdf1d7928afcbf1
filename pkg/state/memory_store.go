package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	bridge "github.com/goliatone/go-formbridge"
	"github.com/goliatone/go-formbridge/internal/clone"
)

// MemoryDocumentStore is a thread-safe document store.
type MemoryDocumentStore struct {
	mu    sync.RWMutex
	state bridge.DocumentState
	meta  Meta
	now   func() time.Time
}

var _ bridge.DocumentStore = (*MemoryDocumentStore)(nil)

// NewMemoryDocumentStore copies initial into a new store.
func NewMemoryDocumentStore(initial bridge.DocumentState) *MemoryDocumentStore {
	return &MemoryDocumentStore{state: clone.Value(initial), now: time.Now}
}

// State returns a deep copy of the current state.
func (s *MemoryDocumentStore) State(ctx context.Context) (bridge.DocumentState, error) {
	if err := ctxErr(ctx); err != nil {
		return bridge.DocumentState{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone.Value(s.state), nil
}

func (s *MemoryDocumentStore) SetCompletedContent(ctx context.Context, content string) error {
	return s.Mutate(ctx, 0, func(state *bridge.DocumentState) error {
		state.CompletedContent = content
		return nil
	})
}

func (s *MemoryDocumentStore) SetIsCompleted(ctx context.Context, completed bool) error {
	return s.Mutate(ctx, 0, func(state *bridge.DocumentState) error {
		state.IsComplete = completed
		return nil
	})
}

// Mutate applies fn to a copy of the state and commits it when fn succeeds.
// A non-zero expected revision must match the current one.
func (s *MemoryDocumentStore) Mutate(ctx context.Context, expected uint64, fn Mutator[bridge.DocumentState]) error {
	if fn == nil {
		return fmt.Errorf("state: mutator is required")
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if expected != 0 && expected != s.meta.Revision {
		return fmt.Errorf("%w: expected %d, got %d", ErrRevisionMismatch, expected, s.meta.Revision)
	}
	next := clone.Value(s.state)
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	s.meta = s.meta.next(s.now())
	return nil
}

// Meta returns the current revision bookkeeping.
func (s *MemoryDocumentStore) Meta() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// MemoryFormStore is a thread-safe form store.
type MemoryFormStore struct {
	mu    sync.RWMutex
	state bridge.FormState
	meta  Meta
	now   func() time.Time
}

var _ bridge.FormStore = (*MemoryFormStore)(nil)

// NewMemoryFormStore copies initial into a new store.
func NewMemoryFormStore(initial bridge.FormState) *MemoryFormStore {
	state := clone.Value(initial)
	if state.FieldValues == nil {
		state.FieldValues = map[string]any{}
	}
	return &MemoryFormStore{state: state, now: time.Now}
}

// State returns a deep copy of the current state.
func (s *MemoryFormStore) State(ctx context.Context) (bridge.FormState, error) {
	if err := ctxErr(ctx); err != nil {
		return bridge.FormState{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone.Value(s.state), nil
}

func (s *MemoryFormStore) UpdateDocumentContent(ctx context.Context, content string) error {
	return s.Mutate(ctx, 0, func(state *bridge.FormState) error {
		state.DocumentCompletedContent = content
		return nil
	})
}

func (s *MemoryFormStore) SetDocumentCompleted(ctx context.Context, completed bool) error {
	return s.Mutate(ctx, 0, func(state *bridge.FormState) error {
		state.IsDocumentCompleted = completed
		return nil
	})
}

// UpdateFieldValue sets key. A nil value removes the field.
func (s *MemoryFormStore) UpdateFieldValue(ctx context.Context, key string, value any) error {
	if key == "" {
		return fmt.Errorf("state: field key is required")
	}
	return s.Mutate(ctx, 0, func(state *bridge.FormState) error {
		if state.FieldValues == nil {
			state.FieldValues = map[string]any{}
		}
		if value == nil {
			delete(state.FieldValues, key)
			return nil
		}
		state.FieldValues[key] = clone.Value(value)
		return nil
	})
}

// Mutate applies fn to a copy of the state and commits it when fn succeeds.
// A non-zero expected revision must match the current one.
func (s *MemoryFormStore) Mutate(ctx context.Context, expected uint64, fn Mutator[bridge.FormState]) error {
	if fn == nil {
		return fmt.Errorf("state: mutator is required")
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if expected != 0 && expected != s.meta.Revision {
		return fmt.Errorf("%w: expected %d, got %d", ErrRevisionMismatch, expected, s.meta.Revision)
	}
	next := clone.Value(s.state)
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	s.meta = s.meta.next(s.now())
	return nil
}

// Meta returns the current revision bookkeeping.
func (s *MemoryFormStore) Meta() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
