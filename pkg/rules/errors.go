package rules

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable is returned when the JS engine is requested from a
// binary built without the js_eval tag.
var ErrEngineUnavailable = errors.New("rules: engine unavailable")

// ErrEmptyExpression is returned when a rule has nothing to compile.
var ErrEmptyExpression = errors.New("rules: expression must not be empty")

// EvaluationError ties an engine failure to the expression that caused it.
// Direction is empty for compile failures.
type EvaluationError struct {
	Engine    Engine
	Expr      string
	Direction string
	Err       error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := "compile"
	if e.Direction != "" {
		where = e.Direction
	}
	return fmt.Sprintf("rules: %s %s %q: %v", e.Engine, where, e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func compileError(engine Engine, expr string, err error) error {
	return &EvaluationError{Engine: engine, Expr: expr, Err: err}
}

func runError(engine Engine, expr, direction string, err error) error {
	var existing *EvaluationError
	if errors.As(err, &existing) {
		return err
	}
	if direction == "" {
		direction = "unknown"
	}
	return &EvaluationError{Engine: engine, Expr: expr, Direction: direction, Err: err}
}
