package bridge

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formbridge/internal/markup"
	"github.com/goliatone/go-formbridge/pkg/rules"
)

// Advisory thresholds.
const (
	recommendedSections   = 2
	recommendedBlocks     = 3
	recommendedCharacters = 100
)

// Validator gates a snapshot before it is transformed.
type Validator[S any] interface {
	Validate(snapshot *S) ValidationResult
}

// ValidatorOption configures the built-in validators.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	mode       ValidationMode
	rules      *rules.RuleSet
	logger     *slog.Logger
	normalizer *markup.Normalizer
}

// WithPolicy selects strict or lenient gating. Unknown modes are strict.
func WithPolicy(mode ValidationMode) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.mode = mode
	}
}

// WithRuleSet evaluates extra rules against the snapshot facts.
func WithRuleSet(set *rules.RuleSet) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.rules = set
	}
}

// WithValidatorLogger sets the logger for rule warnings.
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.logger = logger
	}
}

// WithValidatorNormalizer derives content the same way a transformer
// configured with the normalizer would.
func WithValidatorNormalizer(normalizer *markup.Normalizer) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.normalizer = normalizer
	}
}

func newValidatorConfig(opts []ValidatorOption) validatorConfig {
	cfg := validatorConfig{mode: ValidationStrict}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger()
	}
	if cfg.mode != ValidationLenient {
		cfg.mode = ValidationStrict
	}
	return cfg
}

// DocumentValidator gates document snapshots for the document to form
// direction.
type DocumentValidator struct {
	cfg validatorConfig
}

// NewDocumentValidator returns a strict validator unless WithPolicy says otherwise.
func NewDocumentValidator(opts ...ValidatorOption) *DocumentValidator {
	return &DocumentValidator{cfg: newValidatorConfig(opts)}
}

// Validate never panics and never mutates s.
func (v *DocumentValidator) Validate(s *DocumentSnapshot) (result ValidationResult) {
	if v == nil {
		v = NewDocumentValidator()
	}
	if s == nil {
		return ValidationResult{Errors: []string{"no document snapshot available"}, Warnings: []string{}}
	}
	defer func() {
		if rec := recover(); rec != nil {
			result = ValidationResult{Errors: []string{fmt.Sprintf("validator panic: %v", rec)}, Warnings: []string{}}
		}
	}()

	var errs, warnings []string
	lenient := v.cfg.mode == ValidationLenient
	block := func(msg string, demotable bool) {
		if demotable && lenient {
			warnings = append(warnings, msg)
			return
		}
		errs = append(errs, msg)
	}

	structural := documentStructureErrors(s)
	errs = append(errs, structural...)

	shape := analyzeDocument(s)
	content, err := deriveDocumentContent(s, shape, v.cfg.normalizer)
	if err != nil {
		errs = append(errs, err.Error())
	}

	if len(shape.sections) == 0 {
		block("no sections", true)
	}
	if len(s.Blocks) == 0 {
		errs = append(errs, "no blocks")
	}
	if content == "" {
		errs = append(errs, "no content")
	}
	if len(s.Blocks) > 0 && shape.assignedCount == 0 {
		block("no blocks are assigned to a section", true)
	}

	if n := len(shape.sections); n > 0 && n < recommendedSections {
		warnings = append(warnings, fmt.Sprintf("fewer than %d sections: %d", recommendedSections, n))
	}
	if n := len(s.Blocks); n > 0 && n < recommendedBlocks {
		warnings = append(warnings, fmt.Sprintf("fewer than %d blocks: %d", recommendedBlocks, n))
	}
	if shape.totalChars > 0 && shape.totalChars < recommendedCharacters {
		warnings = append(warnings, fmt.Sprintf("fewer than %d characters: %d", recommendedCharacters, shape.totalChars))
	}
	if shape.unassigned > 0 {
		warnings = append(warnings, fmt.Sprintf("unassigned blocks: %d", shape.unassigned))
	}
	for _, name := range shape.emptySections {
		warnings = append(warnings, fmt.Sprintf("section %q has no assigned blocks", name))
	}

	outcome := v.cfg.rules.Check(DocumentToForm.String(), documentFacts(s, shape, content))
	errs = append(errs, outcome.Errors...)
	warnings = append(warnings, outcome.Warnings...)

	hasStructure := len(structural) == 0
	hasContent := len(s.Blocks) > 0 && content != ""
	if !lenient {
		hasContent = hasContent && len(shape.sections) > 0
	}
	result = newValidationResult(errs, warnings, hasContent, hasStructure)
	if !result.IsValidForTransfer {
		v.cfg.logger.Debug("document snapshot rejected", slog.Any("errors", result.Errors))
	}
	return result
}

func documentFacts(s *DocumentSnapshot, shape documentShape, content string) map[string]any {
	return map[string]any{
		"sectionCount":     len(shape.sections),
		"blockCount":       len(s.Blocks),
		"assignedBlocks":   shape.assignedCount,
		"unassignedBlocks": shape.unassigned,
		"emptySections":    len(shape.emptySections),
		"totalCharacters":  shape.totalChars,
		"contentLength":    utf8.RuneCountInString(content),
		"content":          content,
		"isComplete":       s.IsComplete,
		"selectedBlocks":   len(s.SelectedBlockIDs),
	}
}

// FormValidator gates form snapshots for the form to document direction.
type FormValidator struct {
	cfg validatorConfig
}

// NewFormValidator returns a strict validator unless WithPolicy says otherwise.
func NewFormValidator(opts ...ValidatorOption) *FormValidator {
	return &FormValidator{cfg: newValidatorConfig(opts)}
}

// Validate never panics and never mutates s.
func (v *FormValidator) Validate(s *FormSnapshot) (result ValidationResult) {
	if v == nil {
		v = NewFormValidator()
	}
	if s == nil {
		return ValidationResult{Errors: []string{"no form snapshot available"}, Warnings: []string{}}
	}
	defer func() {
		if rec := recover(); rec != nil {
			result = ValidationResult{Errors: []string{fmt.Sprintf("validator panic: %v", rec)}, Warnings: []string{}}
		}
	}()

	var errs, warnings []string
	structural := formStructureErrors(s)
	errs = append(errs, structural...)

	content := strings.TrimSpace(s.DocumentCompletedContent)
	if content == "" {
		errs = append(errs, "no document content")
	}
	outline := markup.ParseOutline(content)
	chars := utf8.RuneCountInString(content)

	if content != "" && len(outline.Headings) == 0 {
		warnings = append(warnings, "document content has no section headings")
	}
	if chars > 0 && chars < recommendedCharacters {
		warnings = append(warnings, fmt.Sprintf("fewer than %d characters: %d", recommendedCharacters, chars))
	}
	if !s.IsDocumentCompleted {
		warnings = append(warnings, "document is not marked as completed")
	}

	outcome := v.cfg.rules.Check(FormToDocument.String(), formFacts(s, outline, content))
	errs = append(errs, outcome.Errors...)
	warnings = append(warnings, outcome.Warnings...)

	result = newValidationResult(errs, warnings, content != "", len(structural) == 0)
	if !result.IsValidForTransfer {
		v.cfg.logger.Debug("form snapshot rejected", slog.Any("errors", result.Errors))
	}
	return result
}

func formFacts(s *FormSnapshot, outline markup.Outline, content string) map[string]any {
	return map[string]any{
		"sectionCount":     len(outline.Headings),
		"blockCount":       outline.Blocks,
		"assignedBlocks":   outline.Assigned(),
		"unassignedBlocks": outline.Unassigned,
		"totalCharacters":  utf8.RuneCountInString(content),
		"contentLength":    utf8.RuneCountInString(content),
		"content":          content,
		"isComplete":       s.IsDocumentCompleted,
		"currentStep":      s.CurrentStep,
		"progressWidth":    s.ProgressWidth,
		"fieldCount":       len(s.FieldValues),
	}
}

func newValidationResult(errs, warnings []string, hasContent, hasStructure bool) ValidationResult {
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return ValidationResult{
		IsValidForTransfer:   len(errs) == 0 && hasContent && hasStructure,
		Errors:               errs,
		Warnings:             warnings,
		HasMinimumContent:    hasContent,
		HasRequiredStructure: hasStructure,
	}
}
