package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formbridge/task"
)

// ErrorRecord is the classified form of a fault. It is the only error shape
// a caller of the bridge ever sees.
type ErrorRecord struct {
	Code          string         `json:"code"`
	Category      ErrorCategory  `json:"category"`
	Message       string         `json:"message"`
	Timestamp     time.Time      `json:"timestamp"`
	Context       map[string]any `json:"context,omitempty"`
	IsRecoverable bool           `json:"isRecoverable"`
	Recovery      []string       `json:"recovery,omitempty"`
}

func (r ErrorRecord) Error() string {
	return r.Code + ": " + r.Message
}

var criticalKeywords = []string{"fatal", "critical", "system", "memory", "security"}

// ErrorClassifier converts faults into ErrorRecords.
type ErrorClassifier struct {
	suffix IDGenerator
	now    func() time.Time
}

// NewErrorClassifier builds a classifier. A nil suffix generator uses
// ShortID(8).
func NewErrorClassifier(suffix IDGenerator) *ErrorClassifier {
	if suffix == nil {
		suffix = ShortID(8)
	}
	return &ErrorClassifier{suffix: suffix, now: time.Now}
}

// Classify builds a record for err. The code is
// <CATEGORY>_<unix-millis>_<suffix>; the context carries the stage and any
// context attached to a TransferError.
func (c *ErrorClassifier) Classify(err error, category ErrorCategory) ErrorRecord {
	if c == nil {
		c = NewErrorClassifier(nil)
	}
	now := c.now()
	if err == nil {
		err = errors.New("bridge: unknown error")
	}

	record := ErrorRecord{
		Code:          category.String() + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + c.suffix.next(),
		Category:      category,
		Message:       err.Error(),
		Timestamp:     now,
		Context:       map[string]any{},
		IsRecoverable: IsRecoverable(err),
	}

	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		maps.Copy(record.Context, transferErr.Context)
		if transferErr.Stage != "" {
			record.Context["stage"] = string(transferErr.Stage)
		}
	}
	var exhausted *task.ExhaustedError
	if errors.As(err, &exhausted) {
		record.Context["attempts"] = exhausted.Attempts
		record.Context["exhausted"] = true
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		record.Context["panic"] = fmt.Sprint(panicErr.Value)
	}
	if errors.Is(err, task.ErrTimeout) {
		record.Context["timeout"] = true
	}
	if len(record.Context) == 0 {
		record.Context = nil
	}
	return record
}

// IsRecoverable reports whether retrying or working around err is
// plausible. Type mismatches, nil references, parse failures, runtime
// panics and messages naming a critical condition are not recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrTypeMismatch) || errors.Is(err, ErrNilReference) || errors.Is(err, ErrParse) {
		return false
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) && panicErr.Runtime() {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, keyword := range criticalKeywords {
		if strings.Contains(message, keyword) {
			return false
		}
	}
	return true
}

// RecoveryStrategy suggests remediation steps for record. The steps are
// advisory text and never executed by the bridge.
func RecoveryStrategy(record ErrorRecord) []string {
	if !record.IsRecoverable {
		steps := []string{"stop automatic retries for this transfer"}
		switch record.Category {
		case ExtractionError, ValidationError:
			steps = append(steps, "inspect the source state for malformed data")
		case TransformationError:
			steps = append(steps, "report the content that failed to transform")
		case UpdateError:
			steps = append(steps, "check the destination store wiring")
		}
		return append(steps, "escalate to a developer with the error code")
	}

	switch record.Category {
	case ExtractionError:
		return []string{
			"reload the source state",
			"retry the transfer",
		}
	case ValidationError:
		return []string{
			"add the missing sections or blocks",
			"assign unassigned blocks to a section",
			"retry the transfer",
		}
	case TransformationError:
		return []string{
			"reload the source state",
			"retry the transfer",
			"fall back to the stored completed content",
		}
	case UpdateError:
		return []string{
			"retry the transfer",
			"reload the destination state",
			"fall back to default values",
		}
	default:
		if timedOut, _ := record.Context["timeout"].(bool); timedOut {
			return []string{
				"retry the transfer",
				"raise the configured timeout",
			}
		}
		return []string{
			"retry the transfer",
			"reload both states",
		}
	}
}
