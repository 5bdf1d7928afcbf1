package activity

import (
	"strings"
	"time"
)

const (
	VerbTransferSucceeded = "transfer.succeeded"
	VerbTransferFailed    = "transfer.failed"
	VerbTransferRejected  = "transfer.rejected"
	VerbSyncCompleted     = "sync.completed"

	ObjectTypeTransfer = "transfer"
	ObjectTypeSync     = "sync"
)

// TransferEventInput describes the fields shared by transfer lifecycle events.
type TransferEventInput struct {
	ActorID     string
	UserID      string
	TenantID    string
	Channel     string
	OperationID string
	Direction   string
	Attempts    int
	Duration    time.Duration
	ErrorCode   string
	Category    string
	Warnings    int
	Metadata    map[string]any
	OccurredAt  time.Time
}

// SyncEventInput describes a finished bidirectional sync pass.
type SyncEventInput struct {
	ActorID    string
	Channel    string
	SyncID     string
	ToForm     bool
	ToDocument bool
	ErrorCount int
	Duration   time.Duration
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildTransferSucceededEvent builds the event emitted after a committed transfer.
func BuildTransferSucceededEvent(input TransferEventInput) Event {
	return buildTransferEvent(VerbTransferSucceeded, input)
}

// BuildTransferFailedEvent builds the event emitted after a failed transfer.
func BuildTransferFailedEvent(input TransferEventInput) Event {
	return buildTransferEvent(VerbTransferFailed, input)
}

// BuildTransferRejectedEvent builds the event emitted when a transfer is
// refused because another one is in flight for the same direction.
func BuildTransferRejectedEvent(input TransferEventInput) Event {
	return buildTransferEvent(VerbTransferRejected, input)
}

// BuildSyncCompletedEvent builds the event emitted after a bidirectional pass.
func BuildSyncCompletedEvent(input SyncEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["to_form"] = input.ToForm
	metadata["to_document"] = input.ToDocument
	metadata["overall_success"] = input.ToForm && input.ToDocument
	metadata["error_count"] = input.ErrorCount
	metadata["duration_ms"] = input.Duration.Milliseconds()

	objectID := strings.TrimSpace(input.SyncID)
	if objectID == "" {
		objectID = ObjectTypeSync
	}
	return Event{
		Verb:       VerbSyncCompleted,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectTypeSync,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildTransferEvent(verb string, input TransferEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Direction != "" {
		metadata = ensureMetadata(metadata)
		metadata["direction"] = input.Direction
	}
	if input.Attempts > 0 {
		metadata = ensureMetadata(metadata)
		metadata["attempts"] = input.Attempts
	}
	if input.Duration > 0 {
		metadata = ensureMetadata(metadata)
		metadata["duration_ms"] = input.Duration.Milliseconds()
	}
	if input.ErrorCode != "" {
		metadata = ensureMetadata(metadata)
		metadata["error_code"] = input.ErrorCode
	}
	if input.Category != "" {
		metadata = ensureMetadata(metadata)
		metadata["error_category"] = input.Category
	}
	if input.Warnings > 0 {
		metadata = ensureMetadata(metadata)
		metadata["warnings"] = input.Warnings
	}

	objectID := strings.TrimSpace(input.OperationID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Direction)
	}
	if objectID == "" {
		objectID = ObjectTypeTransfer
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeTransfer,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
