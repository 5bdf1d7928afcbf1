package bridge

import (
	"context"
	"time"
)

// Direction names one leg of the bridge.
type Direction string

const (
	DocumentToForm Direction = "document_to_form"
	FormToDocument Direction = "form_to_document"
)

func (d Direction) String() string {
	return string(d)
}

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DocumentToForm || d == FormToDocument
}

// Section is a named container in the document.
type Section struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// Block is one piece of document content. An empty SectionID means the
// block has not been assigned to a section yet.
type Block struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	SectionID string `json:"sectionId,omitempty"`
	Order     int    `json:"order"`
}

// DocumentState is what a document store reports.
type DocumentState struct {
	Sections         []Section `json:"sections"`
	Blocks           []Block   `json:"blocks"`
	CompletedContent string    `json:"completedContent"`
	IsComplete       bool      `json:"isComplete"`
	ActiveBlockID    string    `json:"activeBlockId,omitempty"`
	SelectedBlockIDs []string  `json:"selectedBlockIds,omitempty"`
	IsPreviewOpen    bool      `json:"isPreviewOpen"`
}

// DocumentSnapshot is a detached, point-in-time copy of a DocumentState.
// Consumers must not write through it.
type DocumentSnapshot struct {
	Sections         []Section `json:"sections"`
	Blocks           []Block   `json:"blocks"`
	CompletedContent string    `json:"completedContent"`
	IsComplete       bool      `json:"isComplete"`
	ActiveBlockID    string    `json:"activeBlockId,omitempty"`
	SelectedBlockIDs []string  `json:"selectedBlockIds,omitempty"`
	IsPreviewOpen    bool      `json:"isPreviewOpen"`
	CapturedAt       time.Time `json:"capturedAt"`
}

// FormState is what a form store reports.
type FormState struct {
	CurrentStep              int            `json:"currentStep"`
	FieldValues              map[string]any `json:"fieldValues"`
	ProgressWidth            float64        `json:"progressWidth"`
	ShowPreview              bool           `json:"showPreview"`
	DocumentCompletedContent string         `json:"documentCompletedContent"`
	IsDocumentCompleted      bool           `json:"isDocumentCompleted"`
}

// FormSnapshot is a detached, point-in-time copy of a FormState.
type FormSnapshot struct {
	CurrentStep              int            `json:"currentStep"`
	FieldValues              map[string]any `json:"fieldValues"`
	ProgressWidth            float64        `json:"progressWidth"`
	ShowPreview              bool           `json:"showPreview"`
	DocumentCompletedContent string         `json:"documentCompletedContent"`
	IsDocumentCompleted      bool           `json:"isDocumentCompleted"`
	CapturedAt               time.Time      `json:"capturedAt"`
}

// FormPayload is written into the form store by a document to form transfer.
// FieldUpdates is only populated when a content field key is configured.
type FormPayload struct {
	DocumentContent     string         `json:"documentContent"`
	IsDocumentCompleted bool           `json:"isDocumentCompleted"`
	FieldUpdates        map[string]any `json:"fieldUpdates,omitempty"`
}

// DocumentPayload is written into the document store by a form to document
// transfer.
type DocumentPayload struct {
	CompletedContent string `json:"completedContent"`
	IsCompleted      bool   `json:"isCompleted"`
}

// TransformMetadata records the shape of the content that was transformed.
type TransformMetadata struct {
	Sections         int       `json:"sections"`
	Blocks           int       `json:"blocks"`
	AssignedBlocks   int       `json:"assignedBlocks"`
	UnassignedBlocks int       `json:"unassignedBlocks"`
	TotalCharacters  int       `json:"totalCharacters"`
	LastModified     time.Time `json:"lastModified"`
}

// TransformationResult is either a success carrying a payload or a failure
// carrying at least one error, never both.
type TransformationResult[P any] struct {
	Success  bool              `json:"success"`
	Payload  *P                `json:"payload,omitempty"`
	Metadata TransformMetadata `json:"metadata"`
	Errors   []string          `json:"errors,omitempty"`
}

func transformSucceeded[P any](payload P, meta TransformMetadata) TransformationResult[P] {
	return TransformationResult[P]{Success: true, Payload: &payload, Metadata: meta}
}

func transformFailed[P any](errs ...string) TransformationResult[P] {
	if len(errs) == 0 {
		errs = []string{"transformation failed"}
	}
	return TransformationResult[P]{Errors: errs}
}

// ValidationResult separates blocking errors from advisory warnings.
// IsValidForTransfer is true only when Errors is empty and both summaries
// hold.
type ValidationResult struct {
	IsValidForTransfer   bool     `json:"isValidForTransfer"`
	Errors               []string `json:"errors"`
	Warnings             []string `json:"warnings"`
	HasMinimumContent    bool     `json:"hasMinimumContent"`
	HasRequiredStructure bool     `json:"hasRequiredStructure"`
}

// OperationResult is the only thing a transfer returns to its caller.
type OperationResult[P any] struct {
	Success     bool                     `json:"success"`
	Errors      []ErrorRecord            `json:"errors"`
	Warnings    []string                 `json:"warnings"`
	Payload     *TransformationResult[P] `json:"payload"`
	Duration    time.Duration            `json:"duration"`
	OperationID string                   `json:"operationId"`
	Direction   Direction                `json:"direction"`
	Attempts    int                      `json:"attempts"`
	// Debug is only populated when debug mode is enabled.
	Debug map[string]any `json:"debug,omitempty"`
}

// DurationMs reports the duration in whole milliseconds.
func (r OperationResult[P]) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// BidirectionalSyncResult aggregates one reconciliation pass.
type BidirectionalSyncResult struct {
	SyncID         string                           `json:"syncId"`
	ToForm         bool                             `json:"toForm"`
	ToDocument     bool                             `json:"toDocument"`
	OverallSuccess bool                             `json:"overallSuccess"`
	Errors         []ErrorRecord                    `json:"errors"`
	Duration       time.Duration                    `json:"duration"`
	FormResult     OperationResult[FormPayload]     `json:"formResult"`
	DocumentResult OperationResult[DocumentPayload] `json:"documentResult"`
}

// DocumentStateReader is the read side of a document store.
type DocumentStateReader interface {
	State(ctx context.Context) (DocumentState, error)
}

// DocumentStateWriter is the write side of a document store.
type DocumentStateWriter interface {
	SetCompletedContent(ctx context.Context, content string) error
	SetIsCompleted(ctx context.Context, completed bool) error
}

// DocumentStore combines both sides of a document store.
type DocumentStore interface {
	DocumentStateReader
	DocumentStateWriter
}

// FormStateReader is the read side of a form store.
type FormStateReader interface {
	State(ctx context.Context) (FormState, error)
}

// FormStateWriter is the write side of a form store.
type FormStateWriter interface {
	UpdateDocumentContent(ctx context.Context, content string) error
	SetDocumentCompleted(ctx context.Context, completed bool) error
	UpdateFieldValue(ctx context.Context, key string, value any) error
}

// FormStore combines both sides of a form store.
type FormStore interface {
	FormStateReader
	FormStateWriter
}

// WriteInspector is implemented by store writers that may be only partially
// wired. MissingWrites returns the names of write methods that would fail.
type WriteInspector interface {
	MissingWrites() []string
}

// Write method names reported by WriteInspector.
const (
	WriteSetCompletedContent   = "SetCompletedContent"
	WriteSetIsCompleted        = "SetIsCompleted"
	WriteUpdateDocumentContent = "UpdateDocumentContent"
	WriteSetDocumentCompleted  = "SetDocumentCompleted"
	WriteUpdateFieldValue      = "UpdateFieldValue"
)
