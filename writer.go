package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"
)

// StateWriter applies a payload to a destination store. A failed Apply
// leaves no partially applied field group behind when the destination can
// be read back for rollback.
type StateWriter[P any] interface {
	Apply(ctx context.Context, payload *P) error
}

type writeStep struct {
	name   string
	apply  func(context.Context) error
	revert func(context.Context) error
}

func missingWrites(dest any, required ...string) []string {
	inspector, ok := dest.(WriteInspector)
	if !ok {
		return nil
	}
	missing := map[string]bool{}
	for _, name := range inspector.MissingWrites() {
		missing[name] = true
	}
	var out []string
	for _, name := range required {
		if missing[name] {
			out = append(out, name)
		}
	}
	return out
}

func callStep(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Where: name}
		}
	}()
	return fn(ctx)
}

// applySteps runs steps in order. On the first failure every applied step
// with a revert is undone in reverse order.
func applySteps(ctx context.Context, steps []writeStep, logger *slog.Logger) error {
	applied := make([]writeStep, 0, len(steps))
	for _, step := range steps {
		err := ctx.Err()
		if err == nil {
			err = callStep(ctx, step.name, step.apply)
		}
		if err == nil {
			applied = append(applied, step)
			continue
		}

		failure := fmt.Errorf("%s: %w", step.name, err)
		undoCtx := context.WithoutCancel(ctx)
		var rollbackErrs []error
		for i := len(applied) - 1; i >= 0; i-- {
			if applied[i].revert == nil {
				continue
			}
			if rerr := callStep(undoCtx, applied[i].name, applied[i].revert); rerr != nil {
				rollbackErrs = append(rollbackErrs, fmt.Errorf("rollback %s: %w", applied[i].name, rerr))
			}
		}
		logger.Debug("write failed",
			slog.String("step", step.name),
			slog.Int("rolled_back", len(applied)),
			slog.String("error", err.Error()),
		)
		if len(rollbackErrs) > 0 {
			return errors.Join(append([]error{failure}, rollbackErrs...)...)
		}
		return failure
	}
	return nil
}

// FormWriter applies FormPayloads to a form store.
type FormWriter struct {
	dest   FormStateWriter
	prior  FormStateReader
	logger *slog.Logger
}

// NewFormWriter wraps dest. When dest can also be read, prior values are
// captured before writing and restored on failure.
func NewFormWriter(dest FormStateWriter, logger *slog.Logger) *FormWriter {
	if logger == nil {
		logger = discardLogger()
	}
	w := &FormWriter{dest: dest, logger: logger}
	if reader, ok := dest.(FormStateReader); ok {
		w.prior = reader
	}
	return w
}

func (w *FormWriter) Apply(ctx context.Context, p *FormPayload) error {
	if w == nil || w.dest == nil {
		return fmt.Errorf("%w: no form store", ErrWriteFuncMissing)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := checkFormPayload(p); err != nil {
		return err
	}
	required := []string{WriteUpdateDocumentContent, WriteSetDocumentCompleted}
	if len(p.FieldUpdates) > 0 {
		required = append(required, WriteUpdateFieldValue)
	}
	if missing := missingWrites(w.dest, required...); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrWriteFuncMissing, strings.Join(missing, ", "))
	}

	var prior *FormState
	if w.prior != nil {
		if state, err := w.prior.State(ctx); err == nil {
			prior = &state
		} else {
			w.logger.Debug("form rollback unavailable", slog.String("error", err.Error()))
		}
	}

	steps := []writeStep{{
		name: WriteUpdateDocumentContent,
		apply: func(ctx context.Context) error {
			return w.dest.UpdateDocumentContent(ctx, p.DocumentContent)
		},
	}, {
		name: WriteSetDocumentCompleted,
		apply: func(ctx context.Context) error {
			return w.dest.SetDocumentCompleted(ctx, p.IsDocumentCompleted)
		},
	}}
	if prior != nil {
		steps[0].revert = func(ctx context.Context) error {
			return w.dest.UpdateDocumentContent(ctx, prior.DocumentCompletedContent)
		}
		steps[1].revert = func(ctx context.Context) error {
			return w.dest.SetDocumentCompleted(ctx, prior.IsDocumentCompleted)
		}
	}

	keys := make([]string, 0, len(p.FieldUpdates))
	for key := range p.FieldUpdates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := p.FieldUpdates[key]
		step := writeStep{
			name: WriteUpdateFieldValue + "(" + key + ")",
			apply: func(ctx context.Context) error {
				return w.dest.UpdateFieldValue(ctx, key, value)
			},
		}
		if prior != nil {
			previous := prior.FieldValues[key]
			step.revert = func(ctx context.Context) error {
				return w.dest.UpdateFieldValue(ctx, key, previous)
			}
		}
		steps = append(steps, step)
	}

	return applySteps(ctx, steps, w.logger)
}

func checkFormPayload(p *FormPayload) error {
	if p == nil {
		return fmt.Errorf("%w: %w: form payload", ErrInvalidPayload, ErrNilReference)
	}
	if !utf8.ValidString(p.DocumentContent) {
		return fmt.Errorf("%w: %w: document content is not valid text", ErrInvalidPayload, ErrTypeMismatch)
	}
	for key := range p.FieldUpdates {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: blank field key", ErrInvalidPayload)
		}
	}
	return nil
}

// DocumentWriter applies DocumentPayloads to a document store.
type DocumentWriter struct {
	dest   DocumentStateWriter
	prior  DocumentStateReader
	logger *slog.Logger
}

// NewDocumentWriter wraps dest. When dest can also be read, prior values are
// captured before writing and restored on failure.
func NewDocumentWriter(dest DocumentStateWriter, logger *slog.Logger) *DocumentWriter {
	if logger == nil {
		logger = discardLogger()
	}
	w := &DocumentWriter{dest: dest, logger: logger}
	if reader, ok := dest.(DocumentStateReader); ok {
		w.prior = reader
	}
	return w
}

func (w *DocumentWriter) Apply(ctx context.Context, p *DocumentPayload) error {
	if w == nil || w.dest == nil {
		return fmt.Errorf("%w: no document store", ErrWriteFuncMissing)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p == nil {
		return fmt.Errorf("%w: %w: document payload", ErrInvalidPayload, ErrNilReference)
	}
	if !utf8.ValidString(p.CompletedContent) {
		return fmt.Errorf("%w: %w: completed content is not valid text", ErrInvalidPayload, ErrTypeMismatch)
	}
	if missing := missingWrites(w.dest, WriteSetCompletedContent, WriteSetIsCompleted); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrWriteFuncMissing, strings.Join(missing, ", "))
	}

	steps := []writeStep{{
		name: WriteSetCompletedContent,
		apply: func(ctx context.Context) error {
			return w.dest.SetCompletedContent(ctx, p.CompletedContent)
		},
	}, {
		name: WriteSetIsCompleted,
		apply: func(ctx context.Context) error {
			return w.dest.SetIsCompleted(ctx, p.IsCompleted)
		},
	}}
	if w.prior != nil {
		if prior, err := w.prior.State(ctx); err == nil {
			steps[0].revert = func(ctx context.Context) error {
				return w.dest.SetCompletedContent(ctx, prior.CompletedContent)
			}
			steps[1].revert = func(ctx context.Context) error {
				return w.dest.SetIsCompleted(ctx, prior.IsComplete)
			}
		} else {
			w.logger.Debug("document rollback unavailable", slog.String("error", err.Error()))
		}
	}

	return applySteps(ctx, steps, w.logger)
}

// MissingWrites reports required form store methods that are not wired.
func (w *FormWriter) MissingWrites() []string {
	if w == nil || w.dest == nil {
		return []string{WriteUpdateDocumentContent, WriteSetDocumentCompleted}
	}
	return missingWrites(w.dest, WriteUpdateDocumentContent, WriteSetDocumentCompleted)
}

// MissingWrites reports required document store methods that are not wired.
func (w *DocumentWriter) MissingWrites() []string {
	if w == nil || w.dest == nil {
		return []string{WriteSetCompletedContent, WriteSetIsCompleted}
	}
	return missingWrites(w.dest, WriteSetCompletedContent, WriteSetIsCompleted)
}
