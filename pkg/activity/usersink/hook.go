// Package usersink forwards bridge activity events to a go-users ActivitySink
// so transfer history lands next to the rest of a user's activity feed.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-formbridge/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Verbs limits forwarding to the listed verbs. Empty forwards all.
	Verbs []string
}

var _ activity.ActivityHook = Hook{}

// Notify maps the event into an ActivityRecord and forwards it. Identifiers
// that are not UUIDs are stored as uuid.Nil and kept verbatim in the record
// data under "actor", "user" or "tenant".
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if event.Verb == "" || event.ObjectType == "" || event.ObjectID == "" || !h.forwards(event.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := event.Metadata
	id := func(key, raw string) uuid.UUID {
		parsed, err := uuid.Parse(raw)
		if err == nil || raw == "" {
			return parsed
		}
		if data == nil {
			data = map[string]any{}
		}
		data[key] = raw
		return uuid.Nil
	}

	record := usertypes.ActivityRecord{
		ActorID:    id("actor", event.ActorID),
		UserID:     id("user", event.UserID),
		TenantID:   id("tenant", event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	record.Data = data
	return h.Sink.Log(ctx, record)
}

func (h Hook) forwards(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, allowed := range h.Verbs {
		if strings.EqualFold(strings.TrimSpace(allowed), verb) {
			return true
		}
	}
	return false
}
