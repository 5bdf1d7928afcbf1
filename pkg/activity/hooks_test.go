package activity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " transfer.failed ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " transfer ",
		ObjectID:   " 42 ",
		Channel:    " formbridge ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "transfer.failed" || got.ObjectType != "transfer" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "formbridge" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events()))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbTransferSucceeded, ObjectType: ObjectTypeTransfer, ObjectID: "1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events()) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events()))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), Event{Verb: "x", ObjectType: "transfer", ObjectID: "1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "svc"})
	if err := enabled.Emit(context.Background(), Event{Verb: "x", ObjectType: "transfer", ObjectID: "1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(events))
	}
	if events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", events[0].Channel)
	}
	if events[0].ActorID != "svc" {
		t.Fatalf("expected default actor applied, got %q", events[0].ActorID)
	}
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *Emitter
	if emitter.Enabled() {
		t.Fatalf("nil emitter must be disabled")
	}
	if err := emitter.Emit(context.Background(), Event{Verb: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})
	occurred := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       "x",
		ObjectType: "transfer",
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Events()
	if events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", events[0].Channel)
	}
	if !events[0].OccurredAt.Equal(occurred) {
		t.Fatalf("expected occurred_at preserved, got %v", events[0].OccurredAt)
	}
}

func TestBuildTransferEvents(t *testing.T) {
	evt := BuildTransferFailedEvent(TransferEventInput{
		OperationID: "op-1",
		Direction:   "document_to_form",
		Attempts:    3,
		Duration:    1500 * time.Millisecond,
		ErrorCode:   "UPDATE_ERROR_1_abc",
		Category:    "UPDATE_ERROR",
	})
	if evt.Verb != VerbTransferFailed || evt.ObjectType != ObjectTypeTransfer || evt.ObjectID != "op-1" {
		t.Fatalf("unexpected event identity %+v", evt)
	}
	if evt.Metadata["attempts"] != 3 || evt.Metadata["duration_ms"] != int64(1500) {
		t.Fatalf("unexpected metadata %+v", evt.Metadata)
	}
	if evt.Metadata["error_category"] != "UPDATE_ERROR" {
		t.Fatalf("expected category metadata, got %+v", evt.Metadata)
	}

	fallback := BuildTransferRejectedEvent(TransferEventInput{Direction: "form_to_document"})
	if fallback.ObjectID != "form_to_document" {
		t.Fatalf("expected direction fallback object id, got %q", fallback.ObjectID)
	}
	if _, ok := fallback.Metadata["attempts"]; ok {
		t.Fatalf("zero attempts should not be recorded")
	}
}

func TestBuildSyncCompletedEvent(t *testing.T) {
	evt := BuildSyncCompletedEvent(SyncEventInput{SyncID: "sync-1", ToForm: true, ToDocument: false, ErrorCount: 1})
	if evt.Verb != VerbSyncCompleted || evt.ObjectID != "sync-1" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Metadata["overall_success"] != false || evt.Metadata["error_count"] != 1 {
		t.Fatalf("unexpected metadata %+v", evt.Metadata)
	}
}

func TestHooksNotifyIsolatesPanickingHook(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{
		HookFunc(func(context.Context, Event) error { panic("sink exploded") }),
		capture,
	}

	err := hooks.Notify(context.Background(), Event{Verb: VerbSyncCompleted, ObjectType: ObjectTypeSync, ObjectID: "s-1"})
	if err == nil || !strings.Contains(err.Error(), "sink exploded") {
		t.Fatalf("expected panic to surface as an error, got %v", err)
	}
	if len(capture.Events()) != 1 {
		t.Fatalf("expected later hooks to still run")
	}
}

func TestHooksNotifyGivesEachHookItsOwnMetadata(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{
		HookFunc(func(_ context.Context, event Event) error {
			event.Metadata["direction"] = "rewritten"
			return nil
		}),
		capture,
	}
	event := Event{Verb: "x", ObjectType: "transfer", ObjectID: "1", Metadata: map[string]any{"direction": "document_to_form"}}
	if err := hooks.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := capture.Events()[0].Metadata["direction"]; got != "document_to_form" {
		t.Fatalf("expected untouched metadata, got %v", got)
	}
}

func TestEmitterMergesLabels(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{nil, capture}, Config{
		Enabled: true,
		Labels:  map[string]string{"service": "editor", "direction": "label", " ": "dropped"},
	})
	err := emitter.Emit(context.Background(), Event{
		Verb: "x", ObjectType: "transfer", ObjectID: "1",
		Metadata: map[string]any{"direction": "form_to_document"},
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	meta := capture.Events()[0].Metadata
	if meta["service"] != "editor" || meta["direction"] != "form_to_document" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if _, ok := meta[""]; ok || len(meta) != 2 {
		t.Fatalf("expected blank label keys to be dropped, got %+v", meta)
	}

	capture.Reset()
	if len(capture.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}
