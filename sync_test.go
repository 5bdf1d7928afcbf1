package bridge_test

import (
	"context"
	"errors"
	"testing"

	bridge "github.com/goliatone/go-formbridge"
	"github.com/goliatone/go-formbridge/pkg/activity"
	"github.com/goliatone/go-formbridge/pkg/state"
)

const formContent = "## Summary\n\nThe form already holds a finished draft."

func TestSyncBidirectionalBothDirections(t *testing.T) {
	docs := state.NewMemoryDocumentStore(twoSectionDocument())
	form := state.NewMemoryFormStore(bridge.FormState{
		DocumentCompletedContent: formContent,
		IsDocumentCompleted:      true,
	})
	capture := &activity.CaptureHook{}
	manager, err := bridge.NewSyncManager(docs, form, fastOptions(
		bridge.WithActivityHooks(activity.Config{Channel: "editor"}, capture),
	)...)
	if err != nil {
		t.Fatalf("new sync manager: %v", err)
	}

	result := manager.SyncBidirectional(context.Background())
	if !result.OverallSuccess || !result.ToForm || !result.ToDocument {
		t.Fatalf("expected both directions to succeed, got %+v", result.Errors)
	}
	if result.SyncID == "" || result.Duration <= 0 || len(result.Errors) != 0 {
		t.Fatalf("unexpected bookkeeping %+v", result)
	}
	if result.FormResult.Direction != bridge.DocumentToForm || result.DocumentResult.Direction != bridge.FormToDocument {
		t.Fatalf("unexpected leg directions")
	}

	gotForm, _ := form.State(context.Background())
	if gotForm.DocumentCompletedContent != twoSectionContent {
		t.Fatalf("expected form content from document, got %q", gotForm.DocumentCompletedContent)
	}
	gotDoc, _ := docs.State(context.Background())
	if gotDoc.CompletedContent == "" || !gotDoc.IsComplete {
		t.Fatalf("expected document to receive form content, got %+v", gotDoc)
	}

	events := capture.Events()
	if len(events) != 3 {
		t.Fatalf("expected two transfer events and one sync event, got %v", capture.Verbs())
	}
	last := events[len(events)-1]
	if last.Verb != activity.VerbSyncCompleted || last.ObjectID != result.SyncID || last.Channel != "editor" {
		t.Fatalf("unexpected sync event %+v", last)
	}
}

func TestSyncBidirectionalPartialFailure(t *testing.T) {
	docs := &failingDocumentStore{
		MemoryDocumentStore: state.NewMemoryDocumentStore(twoSectionDocument()),
		err:                 errors.New("document is read only"),
	}
	form := state.NewMemoryFormStore(bridge.FormState{
		DocumentCompletedContent: formContent,
		IsDocumentCompleted:      true,
	})
	manager, err := bridge.NewSyncManager(docs, form, fastOptions()...)
	if err != nil {
		t.Fatalf("new sync manager: %v", err)
	}

	result := manager.SyncBidirectional(context.Background())
	if result.OverallSuccess || !result.ToForm || result.ToDocument {
		t.Fatalf("expected only document to form to succeed, got %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Context["lastCategory"] != bridge.UpdateError.String() {
		t.Fatalf("expected one update error, got %+v", result.Errors)
	}
	if result.Errors[0].Context["direction"] != bridge.FormToDocument.String() {
		t.Fatalf("expected error to name its direction, got %+v", result.Errors[0].Context)
	}

	gotForm, _ := form.State(context.Background())
	if gotForm.DocumentCompletedContent != twoSectionContent {
		t.Fatalf("successful leg must still commit, got %q", gotForm.DocumentCompletedContent)
	}
}

func TestSyncOneDirection(t *testing.T) {
	docs := state.NewMemoryDocumentStore(twoSectionDocument())
	form := state.NewMemoryFormStore(bridge.FormState{})
	manager, err := bridge.NewSyncManager(docs, form, fastOptions(bridge.WithMaxRetryAttempts(1))...)
	if err != nil {
		t.Fatalf("new sync manager: %v", err)
	}
	ctx := context.Background()

	if !manager.SyncOneDirection(ctx, bridge.DocumentToForm) {
		t.Fatalf("expected document to form to succeed")
	}
	if docs.Meta().Revision != 0 {
		t.Fatalf("single direction must not touch the document")
	}
	if !manager.SyncOneDirection(ctx, bridge.FormToDocument) {
		t.Fatalf("expected form to document to succeed after the form was filled")
	}
	if manager.SyncOneDirection(ctx, bridge.Direction("sideways")) {
		t.Fatalf("unknown direction must report false")
	}
	if manager.ToForm().State() != bridge.StateSucceeded || manager.ToDocument().State() != bridge.StateSucceeded {
		t.Fatalf("unexpected orchestrator states")
	}
}

func TestCheckSyncPreconditions(t *testing.T) {
	form := state.NewMemoryFormStore(bridge.FormState{})
	manager, err := bridge.NewSyncManager(state.NewMemoryDocumentStore(twoSectionDocument()), form, fastOptions()...)
	if err != nil {
		t.Fatalf("new sync manager: %v", err)
	}
	got := manager.CheckSyncPreconditions(context.Background())
	if !got.CanSyncToForm || got.CanSyncToDocument {
		t.Fatalf("unexpected preconditions %+v", got)
	}
	if form.Meta().Revision != 0 {
		t.Fatalf("precondition checks must not write")
	}
}

func TestNewSyncManagerRejectsMissingInput(t *testing.T) {
	if _, err := bridge.NewSyncManager(nil, state.NewMemoryFormStore(bridge.FormState{})); err == nil {
		t.Fatalf("expected error for missing document store")
	}
	if _, err := bridge.NewBidirectionalSyncManager(nil, nil); err == nil {
		t.Fatalf("expected error for missing orchestrators")
	}
}
