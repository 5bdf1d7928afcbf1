package state

import (
	"errors"
	"time"
)

// ErrRevisionMismatch is returned by Mutate when the store moved past the
// revision the caller expected.
var ErrRevisionMismatch = errors.New("state: revision mismatch")

// Meta is store-owned bookkeeping, used for diagnostics and optimistic
// concurrency.
type Meta struct {
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Mutator edits a state value in place.
type Mutator[T any] func(*T) error

func (m Meta) next(now time.Time) Meta {
	return Meta{Revision: m.Revision + 1, UpdatedAt: now}
}
