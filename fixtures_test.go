package bridge_test

import (
	"context"
	"sync/atomic"
	"time"

	bridge "github.com/goliatone/go-formbridge"
	"github.com/goliatone/go-formbridge/pkg/state"
)

// fastOptions keep retry delays short so failing transfers finish quickly.
func fastOptions(extra ...bridge.Option) []bridge.Option {
	opts := []bridge.Option{
		bridge.WithRetryDelay(time.Millisecond),
		bridge.WithTimeout(2 * time.Second),
	}
	return append(opts, extra...)
}

// twoSectionDocument has two sections, two blocks assigned to "a" and one
// unassigned block.
func twoSectionDocument() bridge.DocumentState {
	return bridge.DocumentState{
		Sections: []bridge.Section{
			{ID: "b", Name: "Details", Order: 1},
			{ID: "a", Name: "Intro", Order: 0},
		},
		Blocks: []bridge.Block{
			{ID: "1", Content: "First paragraph.", SectionID: "a", Order: 1},
			{ID: "2", Content: "Opening line.", SectionID: "a", Order: 0},
			{ID: "3", Content: "Loose note.", Order: 2},
		},
		IsComplete: true,
	}
}

const twoSectionContent = "## Intro\n\nOpening line.\n\nFirst paragraph."

func snapshotOf(state bridge.DocumentState) *bridge.DocumentSnapshot {
	return &bridge.DocumentSnapshot{
		Sections:         state.Sections,
		Blocks:           state.Blocks,
		CompletedContent: state.CompletedContent,
		IsComplete:       state.IsComplete,
		CapturedAt:       time.Now(),
	}
}

type documentStateFunc func(ctx context.Context) (bridge.DocumentState, error)

func (f documentStateFunc) State(ctx context.Context) (bridge.DocumentState, error) {
	return f(ctx)
}

type formStateFunc func(ctx context.Context) (bridge.FormState, error)

func (f formStateFunc) State(ctx context.Context) (bridge.FormState, error) {
	return f(ctx)
}

// countingDocuments counts reads against a memory store.
type countingDocuments struct {
	*state.MemoryDocumentStore
	reads atomic.Int32
}

func (c *countingDocuments) State(ctx context.Context) (bridge.DocumentState, error) {
	c.reads.Add(1)
	return c.MemoryDocumentStore.State(ctx)
}

// failingDocumentStore accepts reads but rejects content writes.
type failingDocumentStore struct {
	*state.MemoryDocumentStore
	err error
}

func (f *failingDocumentStore) SetCompletedContent(context.Context, string) error {
	return f.err
}

// failingFormStore rejects completion writes after content was written.
type failingFormStore struct {
	*state.MemoryFormStore
	err error
}

func (f *failingFormStore) SetDocumentCompleted(context.Context, bool) error {
	return f.err
}
