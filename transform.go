package bridge

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formbridge/internal/markup"
)

// Transformer converts a source snapshot into a destination payload. It
// never panics past its own boundary.
type Transformer[S, P any] interface {
	Transform(snapshot *S) TransformationResult[P]
}

// DocumentFormTransformer turns document snapshots into form payloads.
type DocumentFormTransformer struct {
	normalizer      *markup.Normalizer
	contentFieldKey string
	logger          *slog.Logger
	now             func() time.Time
}

// NewDocumentFormTransformer builds the document to form transformer. A nil
// normalizer leaves block content untouched. A non-empty contentFieldKey
// also writes the derived content into that form field.
func NewDocumentFormTransformer(normalizer *markup.Normalizer, contentFieldKey string, logger *slog.Logger) *DocumentFormTransformer {
	if logger == nil {
		logger = discardLogger()
	}
	return &DocumentFormTransformer{
		normalizer:      normalizer,
		contentFieldKey: strings.TrimSpace(contentFieldKey),
		logger:          logger,
		now:             time.Now,
	}
}

func (t *DocumentFormTransformer) Transform(s *DocumentSnapshot) (result TransformationResult[FormPayload]) {
	if t == nil {
		t = NewDocumentFormTransformer(nil, "", nil)
	}
	defer func() {
		if rec := recover(); rec != nil {
			t.logger.Debug("document transform panicked", slog.Any("panic", rec))
			result = transformFailed[FormPayload](fmt.Sprintf("unexpected transform fault: %v", rec))
		}
	}()

	if errs := documentStructureErrors(s); len(errs) > 0 {
		return transformFailed[FormPayload](errs...)
	}

	shape := analyzeDocument(s)
	content, err := deriveDocumentContent(s, shape, t.normalizer)
	if err != nil {
		return transformFailed[FormPayload](err.Error())
	}
	if content == "" {
		return transformFailed[FormPayload]("document has no content to transfer")
	}

	payload := FormPayload{
		DocumentContent:     content,
		IsDocumentCompleted: content != "" && len(shape.sections) > 0 && s.IsComplete,
	}
	if t.contentFieldKey != "" {
		payload.FieldUpdates = map[string]any{t.contentFieldKey: content}
	}

	meta := shape.metadata()
	meta.LastModified = t.now()
	return transformSucceeded(payload, meta)
}

// FormDocumentTransformer turns form snapshots into document payloads. The
// form carries no section structure, so the metadata counts come from the
// Markdown outline of the stored content.
type FormDocumentTransformer struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewFormDocumentTransformer(logger *slog.Logger) *FormDocumentTransformer {
	if logger == nil {
		logger = discardLogger()
	}
	return &FormDocumentTransformer{logger: logger, now: time.Now}
}

func (t *FormDocumentTransformer) Transform(s *FormSnapshot) (result TransformationResult[DocumentPayload]) {
	if t == nil {
		t = NewFormDocumentTransformer(nil)
	}
	defer func() {
		if rec := recover(); rec != nil {
			t.logger.Debug("form transform panicked", slog.Any("panic", rec))
			result = transformFailed[DocumentPayload](fmt.Sprintf("unexpected transform fault: %v", rec))
		}
	}()

	if errs := formStructureErrors(s); len(errs) > 0 {
		return transformFailed[DocumentPayload](errs...)
	}

	content := strings.TrimSpace(s.DocumentCompletedContent)
	if content == "" {
		return transformFailed[DocumentPayload]("form has no document content to transfer")
	}
	outline := markup.ParseOutline(content)

	payload := DocumentPayload{
		CompletedContent: content,
		// The form carries no section structure; its flag is taken as is.
		IsCompleted: s.IsDocumentCompleted,
	}
	meta := TransformMetadata{
		Sections:         len(outline.Headings),
		Blocks:           outline.Blocks,
		AssignedBlocks:   outline.Assigned(),
		UnassignedBlocks: outline.Unassigned,
		TotalCharacters:  utf8.RuneCountInString(content),
		LastModified:     t.now(),
	}
	return transformSucceeded(payload, meta)
}
