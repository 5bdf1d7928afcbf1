package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/goliatone/go-formbridge/internal/clone"
)

// SnapshotReader reads a detached snapshot. Snapshot returns the cause when
// no snapshot can be produced; Read and ReadValidated drop it and return nil.
type SnapshotReader[S any] interface {
	Snapshot(ctx context.Context) (*S, error)
}

// timeGuard rejects capture times that go backwards.
type timeGuard struct {
	mu   sync.Mutex
	last time.Time
}

// stamp takes the capture time under the lock so concurrent snapshots are
// observed in the order they were stamped.
func (g *timeGuard) stamp(now func() time.Time) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	at := now()
	if at.IsZero() {
		return at, fmt.Errorf("%w: capture time is zero", ErrSnapshotInvalid)
	}
	if !g.last.IsZero() && at.Before(g.last) {
		return at, fmt.Errorf("%w: capture time %s precedes %s", ErrSnapshotInvalid, at.Format(time.RFC3339Nano), g.last.Format(time.RFC3339Nano))
	}
	g.last = at
	return at, nil
}

// DocumentReader snapshots a document store.
type DocumentReader struct {
	store  DocumentStateReader
	logger *slog.Logger
	now    func() time.Time
	guard  timeGuard
}

// NewDocumentReader wraps store. A nil logger discards output.
func NewDocumentReader(store DocumentStateReader, logger *slog.Logger) *DocumentReader {
	if logger == nil {
		logger = discardLogger()
	}
	return &DocumentReader{store: store, logger: logger, now: time.Now}
}

// Read returns a snapshot or nil when the store cannot be read.
func (r *DocumentReader) Read(ctx context.Context) *DocumentSnapshot {
	if r == nil {
		return nil
	}
	snapshot, err := r.read(ctx)
	if err != nil {
		r.logger.Debug("document snapshot unavailable", slog.String("error", err.Error()))
		return nil
	}
	return snapshot
}

// ReadValidated is Read followed by a structural check.
func (r *DocumentReader) ReadValidated(ctx context.Context) *DocumentSnapshot {
	if r == nil {
		return nil
	}
	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		r.logger.Debug("document snapshot rejected", slog.String("error", err.Error()))
		return nil
	}
	return snapshot
}

// Snapshot reads and structurally checks a snapshot.
func (r *DocumentReader) Snapshot(ctx context.Context) (*DocumentSnapshot, error) {
	snapshot, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	at, err := r.guard.stamp(r.now)
	if err != nil {
		return nil, err
	}
	snapshot.CapturedAt = at
	return snapshot, nil
}

func (r *DocumentReader) read(ctx context.Context) (snapshot *DocumentSnapshot, err error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("%w: %w: document store", ErrSnapshotUnavailable, ErrNilReference)
	}
	defer func() {
		if rec := recover(); rec != nil {
			snapshot = nil
			err = fmt.Errorf("%w: %w", ErrSnapshotUnavailable, &PanicError{Value: rec, Where: "document store"})
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}

	state, err := r.store.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	return &DocumentSnapshot{
		Sections:         clone.Value(state.Sections),
		Blocks:           clone.Value(state.Blocks),
		CompletedContent: state.CompletedContent,
		IsComplete:       state.IsComplete,
		ActiveBlockID:    state.ActiveBlockID,
		SelectedBlockIDs: clone.Strings(state.SelectedBlockIDs),
		IsPreviewOpen:    state.IsPreviewOpen,
		CapturedAt:       r.now(),
	}, nil
}

// FormReader snapshots a form store.
type FormReader struct {
	store  FormStateReader
	logger *slog.Logger
	now    func() time.Time
	guard  timeGuard
}

// NewFormReader wraps store. A nil logger discards output.
func NewFormReader(store FormStateReader, logger *slog.Logger) *FormReader {
	if logger == nil {
		logger = discardLogger()
	}
	return &FormReader{store: store, logger: logger, now: time.Now}
}

// Read returns a snapshot or nil when the store cannot be read.
func (r *FormReader) Read(ctx context.Context) *FormSnapshot {
	if r == nil {
		return nil
	}
	snapshot, err := r.read(ctx)
	if err != nil {
		r.logger.Debug("form snapshot unavailable", slog.String("error", err.Error()))
		return nil
	}
	return snapshot
}

// ReadValidated is Read followed by a structural check.
func (r *FormReader) ReadValidated(ctx context.Context) *FormSnapshot {
	if r == nil {
		return nil
	}
	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		r.logger.Debug("form snapshot rejected", slog.String("error", err.Error()))
		return nil
	}
	return snapshot
}

// Snapshot reads and structurally checks a snapshot.
func (r *FormReader) Snapshot(ctx context.Context) (*FormSnapshot, error) {
	snapshot, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(snapshot.ProgressWidth) || math.IsInf(snapshot.ProgressWidth, 0) {
		return nil, fmt.Errorf("%w: progress width is %v", ErrSnapshotInvalid, snapshot.ProgressWidth)
	}
	for key, value := range snapshot.FieldValues {
		if f, ok := value.(float64); ok && math.IsNaN(f) {
			return nil, fmt.Errorf("%w: field %q is NaN", ErrSnapshotInvalid, key)
		}
	}
	at, err := r.guard.stamp(r.now)
	if err != nil {
		return nil, err
	}
	snapshot.CapturedAt = at
	return snapshot, nil
}

func (r *FormReader) read(ctx context.Context) (snapshot *FormSnapshot, err error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("%w: %w: form store", ErrSnapshotUnavailable, ErrNilReference)
	}
	defer func() {
		if rec := recover(); rec != nil {
			snapshot = nil
			err = fmt.Errorf("%w: %w", ErrSnapshotUnavailable, &PanicError{Value: rec, Where: "form store"})
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}

	state, err := r.store.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	return &FormSnapshot{
		CurrentStep:              state.CurrentStep,
		FieldValues:              clone.Map(state.FieldValues),
		ProgressWidth:            state.ProgressWidth,
		ShowPreview:              state.ShowPreview,
		DocumentCompletedContent: state.DocumentCompletedContent,
		IsDocumentCompleted:      state.IsDocumentCompleted,
		CapturedAt:               r.now(),
	}, nil
}
