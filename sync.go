package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-formbridge/pkg/activity"
)

// SyncPreconditions reports which directions could currently transfer.
type SyncPreconditions struct {
	CanSyncToDocument bool `json:"canSyncToDocument"`
	CanSyncToForm     bool `json:"canSyncToForm"`
}

// BidirectionalSyncManager runs both directions as one reconciliation
// pass. It takes no lock across the two stores; callers that need both legs
// to be atomic must serialise calls themselves.
type BidirectionalSyncManager struct {
	toForm     *DocumentToFormTransfer
	toDocument *FormToDocumentTransfer
	emitter    *activity.Emitter
	logger     *slog.Logger
	ids        IDGenerator
}

// NewSyncManager wires both directions between a document store and a form
// store with one shared configuration.
func NewSyncManager(document DocumentStore, form FormStore, opts ...Option) (*BidirectionalSyncManager, error) {
	if document == nil || form == nil {
		return nil, fmt.Errorf("bridge: document and form stores are required")
	}
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	toForm, err := newDocumentToFormTransfer(document, form, cfg)
	if err != nil {
		return nil, err
	}
	toDocument, err := newFormToDocumentTransfer(form, document, cfg)
	if err != nil {
		return nil, err
	}
	return NewBidirectionalSyncManager(toForm, toDocument, opts...)
}

// NewBidirectionalSyncManager composes two existing orchestrators. Only the
// runtime options (logger, activity hooks, id generator) of opts are used.
func NewBidirectionalSyncManager(toForm *DocumentToFormTransfer, toDocument *FormToDocumentTransfer, opts ...Option) (*BidirectionalSyncManager, error) {
	if toForm == nil || toDocument == nil {
		return nil, fmt.Errorf("bridge: both transfer directions are required")
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = UUIDv7()
	}
	return &BidirectionalSyncManager{
		toForm:     toForm,
		toDocument: toDocument,
		emitter:    cfg.emitter(),
		logger:     cfg.logger(),
		ids:        ids,
	}, nil
}

// ToForm exposes the document to form orchestrator.
func (m *BidirectionalSyncManager) ToForm() *DocumentToFormTransfer {
	return m.toForm
}

// ToDocument exposes the form to document orchestrator.
func (m *BidirectionalSyncManager) ToDocument() *FormToDocumentTransfer {
	return m.toDocument
}

// SyncBidirectional runs both directions concurrently. A failure in one
// direction does not stop the other; OverallSuccess is true only when both
// succeed.
func (m *BidirectionalSyncManager) SyncBidirectional(ctx context.Context) BidirectionalSyncResult {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	result := BidirectionalSyncResult{SyncID: m.ids()}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.FormResult = m.toForm.ExecuteTransfer(ctx)
	}()
	go func() {
		defer wg.Done()
		result.DocumentResult = m.toDocument.ExecuteTransfer(ctx)
	}()
	wg.Wait()

	result.ToForm = result.FormResult.Success
	result.ToDocument = result.DocumentResult.Success
	result.OverallSuccess = result.ToForm && result.ToDocument
	result.Errors = make([]ErrorRecord, 0, len(result.FormResult.Errors)+len(result.DocumentResult.Errors))
	result.Errors = append(result.Errors, result.FormResult.Errors...)
	result.Errors = append(result.Errors, result.DocumentResult.Errors...)
	result.Duration = time.Since(start)

	m.logger.Debug("sync completed",
		slog.String("sync_id", result.SyncID),
		slog.Bool("to_form", result.ToForm),
		slog.Bool("to_document", result.ToDocument),
		slog.Duration("duration", result.Duration),
	)
	if m.emitter.Enabled() {
		event := activity.BuildSyncCompletedEvent(activity.SyncEventInput{
			SyncID:     result.SyncID,
			ToForm:     result.ToForm,
			ToDocument: result.ToDocument,
			ErrorCount: len(result.Errors),
			Duration:   result.Duration,
		})
		if err := m.emitter.Emit(context.WithoutCancel(ctx), event); err != nil {
			m.logger.Debug("activity emit failed", slog.String("error", err.Error()))
		}
	}
	return result
}

// SyncOneDirection runs a single leg. Unknown directions report false.
func (m *BidirectionalSyncManager) SyncOneDirection(ctx context.Context, direction Direction) bool {
	switch direction {
	case DocumentToForm:
		return m.toForm.ExecuteTransfer(ctx).Success
	case FormToDocument:
		return m.toDocument.ExecuteTransfer(ctx).Success
	default:
		m.logger.Debug("unknown sync direction", slog.String("direction", string(direction)))
		return false
	}
}

// CheckSyncPreconditions probes both directions without writing.
func (m *BidirectionalSyncManager) CheckSyncPreconditions(ctx context.Context) SyncPreconditions {
	return SyncPreconditions{
		CanSyncToDocument: m.toDocument.CheckTransferPreconditions(ctx),
		CanSyncToForm:     m.toForm.CheckTransferPreconditions(ctx),
	}
}
