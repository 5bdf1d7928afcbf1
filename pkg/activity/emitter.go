package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "formbridge"

// Config controls activity emission defaults.
type Config struct {
	Enabled bool
	Channel string
	// ActorID is stamped on events that do not carry one.
	ActorID string
	// Labels are merged into every event's metadata. Keys already set on
	// the event win.
	Labels map[string]string
}

// Emitter applies bridge defaults before fanning out to hooks. A nil
// Emitter emits nothing.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	actorID string
	labels  map[string]string
}

func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	live := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			live = append(live, hook)
		}
	}
	labels := make(map[string]string, len(cfg.Labels))
	for key, value := range cfg.Labels {
		if key = strings.TrimSpace(key); key != "" {
			labels[key] = value
		}
	}
	return &Emitter{
		hooks:   live,
		enabled: cfg.Enabled && len(live) > 0,
		channel: channel,
		actorID: strings.TrimSpace(cfg.ActorID),
		labels:  labels,
	}
}

// Enabled reports whether Emit would reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit stamps channel, actor and labels where the event leaves them unset.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	if len(e.labels) > 0 {
		metadata := make(map[string]any, len(event.Metadata)+len(e.labels))
		for key, value := range e.labels {
			metadata[key] = value
		}
		for key, value := range event.Metadata {
			metadata[key] = value
		}
		event.Metadata = metadata
	}
	return e.hooks.Notify(ctx, event)
}
