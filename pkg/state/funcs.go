package state

import (
	"context"
	"fmt"

	bridge "github.com/goliatone/go-formbridge"
)

// DocumentWriterFuncs adapts plain functions to bridge.DocumentStateWriter.
// Nil functions are reported by MissingWrites and fail when called.
type DocumentWriterFuncs struct {
	SetCompletedContentFunc func(ctx context.Context, content string) error
	SetIsCompletedFunc      func(ctx context.Context, completed bool) error
}

var (
	_ bridge.DocumentStateWriter = DocumentWriterFuncs{}
	_ bridge.WriteInspector      = DocumentWriterFuncs{}
)

func (f DocumentWriterFuncs) SetCompletedContent(ctx context.Context, content string) error {
	if f.SetCompletedContentFunc == nil {
		return missing(bridge.WriteSetCompletedContent)
	}
	return f.SetCompletedContentFunc(ctx, content)
}

func (f DocumentWriterFuncs) SetIsCompleted(ctx context.Context, completed bool) error {
	if f.SetIsCompletedFunc == nil {
		return missing(bridge.WriteSetIsCompleted)
	}
	return f.SetIsCompletedFunc(ctx, completed)
}

func (f DocumentWriterFuncs) MissingWrites() []string {
	var out []string
	if f.SetCompletedContentFunc == nil {
		out = append(out, bridge.WriteSetCompletedContent)
	}
	if f.SetIsCompletedFunc == nil {
		out = append(out, bridge.WriteSetIsCompleted)
	}
	return out
}

// FormWriterFuncs adapts plain functions to bridge.FormStateWriter.
type FormWriterFuncs struct {
	UpdateDocumentContentFunc func(ctx context.Context, content string) error
	SetDocumentCompletedFunc  func(ctx context.Context, completed bool) error
	UpdateFieldValueFunc      func(ctx context.Context, key string, value any) error
}

var (
	_ bridge.FormStateWriter = FormWriterFuncs{}
	_ bridge.WriteInspector  = FormWriterFuncs{}
)

func (f FormWriterFuncs) UpdateDocumentContent(ctx context.Context, content string) error {
	if f.UpdateDocumentContentFunc == nil {
		return missing(bridge.WriteUpdateDocumentContent)
	}
	return f.UpdateDocumentContentFunc(ctx, content)
}

func (f FormWriterFuncs) SetDocumentCompleted(ctx context.Context, completed bool) error {
	if f.SetDocumentCompletedFunc == nil {
		return missing(bridge.WriteSetDocumentCompleted)
	}
	return f.SetDocumentCompletedFunc(ctx, completed)
}

func (f FormWriterFuncs) UpdateFieldValue(ctx context.Context, key string, value any) error {
	if f.UpdateFieldValueFunc == nil {
		return missing(bridge.WriteUpdateFieldValue)
	}
	return f.UpdateFieldValueFunc(ctx, key, value)
}

func (f FormWriterFuncs) MissingWrites() []string {
	var out []string
	if f.UpdateDocumentContentFunc == nil {
		out = append(out, bridge.WriteUpdateDocumentContent)
	}
	if f.SetDocumentCompletedFunc == nil {
		out = append(out, bridge.WriteSetDocumentCompleted)
	}
	if f.UpdateFieldValueFunc == nil {
		out = append(out, bridge.WriteUpdateFieldValue)
	}
	return out
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", bridge.ErrWriteFuncMissing, name)
}
