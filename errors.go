package bridge

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/goliatone/go-formbridge/task"
)

// ErrorCategory is the closed set of fault origins.
type ErrorCategory int

const (
	GeneralError ErrorCategory = iota
	ExtractionError
	ValidationError
	TransformationError
	UpdateError
)

var categoryNames = map[ErrorCategory]string{
	GeneralError:        "GENERAL_ERROR",
	ExtractionError:     "EXTRACTION_ERROR",
	ValidationError:     "VALIDATION_ERROR",
	TransformationError: "TRANSFORMATION_ERROR",
	UpdateError:         "UPDATE_ERROR",
}

func (c ErrorCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[GeneralError]
}

// MarshalText renders the category name so records serialise readably.
func (c ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a category name.
func (c *ErrorCategory) UnmarshalText(text []byte) error {
	for category, name := range categoryNames {
		if name == string(text) {
			*c = category
			return nil
		}
	}
	return fmt.Errorf("bridge: unknown error category %q", string(text))
}

var (
	ErrSnapshotUnavailable = errors.New("bridge: snapshot unavailable")
	ErrSnapshotInvalid     = errors.New("bridge: snapshot failed structural check")
	ErrValidationFailed    = errors.New("bridge: validation failed")
	ErrTransformFailed     = errors.New("bridge: transformation failed")
	ErrWriteFuncMissing    = errors.New("bridge: write function missing")
	ErrInvalidPayload      = errors.New("bridge: invalid payload")
	ErrTransferInProgress  = errors.New("bridge: transfer already in progress")
	ErrTransferTimeout     = fmt.Errorf("bridge: transfer timed out: %w", task.ErrTimeout)

	// Faults that cannot be fixed by trying again.
	ErrTypeMismatch = errors.New("bridge: type mismatch")
	ErrNilReference = errors.New("bridge: nil reference")
	ErrParse        = errors.New("bridge: parse error")
)

// Stage is one step of the transfer pipeline.
type Stage string

const (
	StageReading      Stage = "reading"
	StageValidating   Stage = "validating"
	StageTransforming Stage = "transforming"
	StageWriting      Stage = "writing"
)

// TransferError is the typed fault raised by a pipeline stage.
type TransferError struct {
	Category ErrorCategory
	Stage    Stage
	Err      error
	Context  map[string]any
}

func (e *TransferError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Stage == "" {
		return fmt.Sprintf("bridge: %s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("bridge: %s during %s: %v", e.Category, e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newTransferError(category ErrorCategory, stage Stage, err error) *TransferError {
	return &TransferError{Category: category, Stage: stage, Err: err}
}

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
	Where string
}

func (e *PanicError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Where == "" {
		return fmt.Sprintf("bridge: panic: %v", e.Value)
	}
	return fmt.Sprintf("bridge: panic in %s: %v", e.Where, e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if e == nil {
		return nil
	}
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Runtime reports whether the panic came from the Go runtime (nil deref,
// bad index, failed type assertion).
func (e *PanicError) Runtime() bool {
	if e == nil {
		return false
	}
	_, ok := e.Value.(runtime.Error)
	return ok
}

func categoryOf(err error, fallback ErrorCategory) ErrorCategory {
	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return transferErr.Category
	}
	return fallback
}

func stageOf(err error) Stage {
	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return transferErr.Stage
	}
	return ""
}
