package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-formbridge/pkg/activity"
	"github.com/goliatone/go-formbridge/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsTransferEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildTransferSucceededEvent(activity.TransferEventInput{
		ActorID:     actorID.String(),
		TenantID:    tenantID.String(),
		Channel:     "formbridge",
		OperationID: "op-7",
		Direction:   "document_to_form",
		Attempts:    1,
		OccurredAt:  now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected ids: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user id, got %s", record.UserID)
	}
	if record.Verb != activity.VerbTransferSucceeded || record.ObjectType != activity.ObjectTypeTransfer || record.ObjectID != "op-7" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "formbridge" {
		t.Fatalf("expected channel formbridge got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["direction"] != "document_to_form" {
		t.Fatalf("expected metadata passthrough got %v", record.Data)
	}
}

func TestHookNotifyKeepsNonUUIDActor(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbTransferFailed,
		ActorID:    "editor-ui",
		ObjectType: activity.ObjectTypeTransfer,
		ObjectID:   "op-1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil || record.Data["actor"] != "editor-ui" {
		t.Fatalf("expected raw actor in data, got %+v", record)
	}
	if record.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	boom := errors.New("sink down")
	hook := usersink.Hook{Sink: &recordingSink{err: boom}}
	err := hook.Notify(context.Background(), activity.Event{Verb: "v", ObjectType: "transfer", ObjectID: "1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestHookWithoutSinkIsNoop(t *testing.T) {
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "v", ObjectType: "t", ObjectID: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHookForwardsOnlyListedVerbs(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Verbs: []string{activity.VerbTransferFailed, " SYNC.COMPLETED "}}

	for _, verb := range []string{activity.VerbTransferRejected, activity.VerbTransferFailed, activity.VerbSyncCompleted} {
		if err := hook.Notify(context.Background(), activity.Event{Verb: verb, ObjectType: "transfer", ObjectID: "1"}); err != nil {
			t.Fatalf("notify %s: %v", verb, err)
		}
	}
	if len(sink.records) != 2 || sink.records[0].Verb != activity.VerbTransferFailed || sink.records[1].Verb != activity.VerbSyncCompleted {
		t.Fatalf("unexpected forwarded records %+v", sink.records)
	}
}

func TestHookNotifyKeepsNonUUIDTenantAndUser(t *testing.T) {
	sink := &recordingSink{}
	meta := map[string]any{"direction": "form_to_document"}
	err := usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbSyncCompleted,
		UserID:     "user-9",
		TenantID:   "acme",
		ObjectType: activity.ObjectTypeSync,
		ObjectID:   "sync-1",
		Metadata:   meta,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	data := sink.records[0].Data
	if data["user"] != "user-9" || data["tenant"] != "acme" || data["direction"] != "form_to_document" {
		t.Fatalf("unexpected record data %+v", data)
	}
	if _, ok := meta["user"]; ok {
		t.Fatalf("event metadata must not be modified")
	}
}
