package bridge

import (
	"errors"

	"github.com/goliatone/go-formbridge/internal/markup"
)

// DocumentToFormTransfer moves document content into the form.
type DocumentToFormTransfer = TransferOrchestrator[DocumentSnapshot, FormPayload]

// FormToDocumentTransfer moves the form's document content back into the
// document.
type FormToDocumentTransfer = TransferOrchestrator[FormSnapshot, DocumentPayload]

// NewDocumentToFormTransfer wires the built-in reader, validator,
// transformer and writer for the document to form direction.
func NewDocumentToFormTransfer(src DocumentStateReader, dst FormStateWriter, opts ...Option) (*DocumentToFormTransfer, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newDocumentToFormTransfer(src, dst, cfg)
}

// NewFormToDocumentTransfer wires the built-in reader, validator,
// transformer and writer for the form to document direction.
func NewFormToDocumentTransfer(src FormStateReader, dst DocumentStateWriter, opts ...Option) (*FormToDocumentTransfer, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newFormToDocumentTransfer(src, dst, cfg)
}

func newDocumentToFormTransfer(src DocumentStateReader, dst FormStateWriter, cfg Config) (*DocumentToFormTransfer, error) {
	if src == nil {
		return nil, errors.New("bridge: document store reader is required")
	}
	if dst == nil {
		return nil, errors.New("bridge: form store writer is required")
	}
	set, err := cfg.ruleSet()
	if err != nil {
		return nil, err
	}
	var normalizer *markup.Normalizer
	if cfg.NormalizeMarkup {
		normalizer = markup.Default()
	}
	logger := cfg.logger()
	return newTransferOrchestrator(DocumentToForm, Components[DocumentSnapshot, FormPayload]{
		Reader: NewDocumentReader(src, logger),
		Validator: NewDocumentValidator(
			WithPolicy(cfg.ValidationMode),
			WithRuleSet(set),
			WithValidatorLogger(logger),
			WithValidatorNormalizer(normalizer),
		),
		Transformer: NewDocumentFormTransformer(normalizer, cfg.ContentFieldKey, logger),
		Writer:      NewFormWriter(dst, logger),
	}, cfg)
}

func newFormToDocumentTransfer(src FormStateReader, dst DocumentStateWriter, cfg Config) (*FormToDocumentTransfer, error) {
	if src == nil {
		return nil, errors.New("bridge: form store reader is required")
	}
	if dst == nil {
		return nil, errors.New("bridge: document store writer is required")
	}
	set, err := cfg.ruleSet()
	if err != nil {
		return nil, err
	}
	logger := cfg.logger()
	return newTransferOrchestrator(FormToDocument, Components[FormSnapshot, DocumentPayload]{
		Reader: NewFormReader(src, logger),
		Validator: NewFormValidator(
			WithPolicy(cfg.ValidationMode),
			WithRuleSet(set),
			WithValidatorLogger(logger),
		),
		Transformer: NewFormDocumentTransformer(logger),
		Writer:      NewDocumentWriter(dst, logger),
	}, cfg)
}
