package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formbridge/pkg/activity"
	"github.com/goliatone/go-formbridge/task"
)

// TransferState is the state machine of one direction.
type TransferState string

const (
	StateIdle         TransferState = "idle"
	StateReading      TransferState = "reading"
	StateValidating   TransferState = "validating"
	StateTransforming TransferState = "transforming"
	StateWriting      TransferState = "writing"
	StateSucceeded    TransferState = "succeeded"
	StateFailed       TransferState = "failed"
)

var stageStates = map[Stage]TransferState{
	StageReading:      StateReading,
	StageValidating:   StateValidating,
	StageTransforming: StateTransforming,
	StageWriting:      StateWriting,
}

// Components are the four collaborators of a transfer. Validator may be nil
// when validation is disabled.
type Components[S, P any] struct {
	Reader      SnapshotReader[S]
	Validator   Validator[S]
	Transformer Transformer[S, P]
	Writer      StateWriter[P]
}

// TransferOrchestrator runs read, validate, transform and write for one
// direction under a bounded retry loop and a timeout. At most one transfer
// per orchestrator is in flight at a time.
type TransferOrchestrator[S, P any] struct {
	direction      Direction
	components     Components[S, P]
	cfg            Config
	logger         *slog.Logger
	transferLogger TransferLogger
	classifier     *ErrorClassifier
	emitter        *activity.Emitter
	ids            IDGenerator

	mu         sync.Mutex
	inFlight   bool
	generation uint64
	state      TransferState
}

// NewTransferOrchestrator wires components for direction.
func NewTransferOrchestrator[S, P any](direction Direction, components Components[S, P], opts ...Option) (*TransferOrchestrator[S, P], error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newTransferOrchestrator(direction, components, cfg)
}

func newTransferOrchestrator[S, P any](direction Direction, components Components[S, P], cfg Config) (*TransferOrchestrator[S, P], error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("bridge: unknown direction %q", direction)
	}
	switch {
	case components.Reader == nil:
		return nil, fmt.Errorf("bridge: %s reader is required", direction)
	case components.Transformer == nil:
		return nil, fmt.Errorf("bridge: %s transformer is required", direction)
	case components.Writer == nil:
		return nil, fmt.Errorf("bridge: %s writer is required", direction)
	case components.Validator == nil && cfg.EnableValidation:
		return nil, fmt.Errorf("bridge: %s validator is required when validation is enabled", direction)
	}

	ids := cfg.IDGenerator
	if ids == nil {
		ids = UUIDv7()
	}
	return &TransferOrchestrator[S, P]{
		direction:      direction,
		components:     components,
		cfg:            cfg,
		logger:         cfg.logger().With(slog.String("direction", direction.String())),
		transferLogger: cfg.transferLogger(),
		classifier:     cfg.classifier(),
		emitter:        cfg.emitter(),
		ids:            ids,
		state:          StateIdle,
	}, nil
}

// Direction reports the direction this orchestrator transfers.
func (o *TransferOrchestrator[S, P]) Direction() Direction {
	return o.direction
}

// State reports the current state machine position.
func (o *TransferOrchestrator[S, P]) State() TransferState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// InFlight reports whether a transfer is currently running.
func (o *TransferOrchestrator[S, P]) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Configuration returns a copy of the active configuration.
func (o *TransferOrchestrator[S, P]) Configuration() Config {
	cfg := o.cfg
	cfg.Rules = append(cfg.Rules[:0:0], o.cfg.Rules...)
	return cfg
}

// execution collects what the pipeline learned across attempts. The
// pipeline may still be running after a timeout, so every access locks.
type execution[P any] struct {
	mu         sync.Mutex
	attempts   int
	stage      Stage
	stages     map[Stage]time.Duration
	warnings   []string
	validation *ValidationResult
	payload    *TransformationResult[P]
}

func (e *execution[P]) enter(stage Stage) {
	e.mu.Lock()
	e.stage = stage
	e.mu.Unlock()
}

func (e *execution[P]) record(stage Stage, d time.Duration) {
	e.mu.Lock()
	e.stages[stage] += d
	e.mu.Unlock()
}

func (e *execution[P]) lastStage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stage
}

// ExecuteTransfer runs one transfer. It never returns an error: faults are
// classified into the result.
func (o *TransferOrchestrator[S, P]) ExecuteTransfer(ctx context.Context) OperationResult[P] {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	operationID := o.ids()

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return o.rejected(ctx, operationID, start)
	}
	o.inFlight = true
	o.generation++
	gen := o.generation
	o.state = StateIdle
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	exec := &execution[P]{stages: map[Stage]time.Duration{}}
	policy := task.RetryPolicy{
		Retries: o.cfg.MaxRetryAttempts,
		Delay:   o.cfg.RetryDelay(),
		RetryIf: IsRecoverable,
		OnAttempt: func(attempt task.Attempt) {
			exec.mu.Lock()
			exec.attempts = attempt.Number
			stage := exec.stage
			exec.mu.Unlock()
			o.transferLogger.LogTransfer(TransferLogEvent{
				Direction:   o.direction,
				OperationID: operationID,
				Attempt:     attempt.Number,
				Stage:       stage,
				Duration:    attempt.Duration,
				Err:         attempt.Err,
			})
		},
	}
	run := task.Timeout(task.Retry(o.pipeline(gen, exec), policy), o.cfg.Timeout())

	_, err := run.Run(ctx)
	if errors.Is(err, task.ErrTimeout) {
		err = fmt.Errorf("%w (limit %s)", ErrTransferTimeout, o.cfg.Timeout())
	}

	result := o.buildResult(err, exec, operationID, start)
	final := StateSucceeded
	if !result.Success {
		final = StateFailed
	}
	o.setState(gen, final)
	o.report(ctx, result)
	return result
}

func (o *TransferOrchestrator[S, P]) setState(gen uint64, state TransferState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == gen {
		o.state = state
	}
}

// pipeline is a single attempt. Late stages of an attempt that outlived its
// timeout see a cancelled context and stop before the next stage.
func (o *TransferOrchestrator[S, P]) pipeline(gen uint64, exec *execution[P]) task.Task[struct{}] {
	return func(ctx context.Context) (_ struct{}, err error) {
		var done struct{}
		defer func() {
			if rec := recover(); rec != nil {
				err = newTransferError(GeneralError, exec.lastStage(), &PanicError{Value: rec, Where: "transfer pipeline"})
			}
		}()

		enter := func(stage Stage) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			exec.enter(stage)
			o.setState(gen, stageStates[stage])
			return nil
		}

		if err := enter(StageReading); err != nil {
			return done, err
		}
		began := time.Now()
		snapshot, err := o.components.Reader.Snapshot(ctx)
		exec.record(StageReading, time.Since(began))
		if err != nil {
			return done, newTransferError(ExtractionError, StageReading, err)
		}
		if snapshot == nil {
			return done, newTransferError(ExtractionError, StageReading, ErrSnapshotUnavailable)
		}

		var warnings []string
		if o.cfg.EnableValidation {
			if err := enter(StageValidating); err != nil {
				return done, err
			}
			began = time.Now()
			validation := o.components.Validator.Validate(snapshot)
			exec.record(StageValidating, time.Since(began))
			exec.mu.Lock()
			exec.validation = &validation
			exec.mu.Unlock()
			if !validation.IsValidForTransfer {
				fault := newTransferError(ValidationError, StageValidating,
					fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(validation.Errors, "; ")))
				fault.Context = map[string]any{"errors": validation.Errors, "warnings": validation.Warnings}
				return done, fault
			}
			warnings = validation.Warnings
		}

		if err := enter(StageTransforming); err != nil {
			return done, err
		}
		began = time.Now()
		transformed := o.components.Transformer.Transform(snapshot)
		exec.record(StageTransforming, time.Since(began))
		exec.mu.Lock()
		exec.payload = &transformed
		exec.mu.Unlock()
		if !transformed.Success || transformed.Payload == nil {
			fault := newTransferError(TransformationError, StageTransforming,
				fmt.Errorf("%w: %s", ErrTransformFailed, strings.Join(transformed.Errors, "; ")))
			fault.Context = map[string]any{"errors": transformed.Errors}
			return done, fault
		}

		if err := enter(StageWriting); err != nil {
			return done, err
		}
		began = time.Now()
		err = o.components.Writer.Apply(ctx, transformed.Payload)
		exec.record(StageWriting, time.Since(began))
		if err != nil {
			return done, newTransferError(UpdateError, StageWriting, err)
		}

		exec.mu.Lock()
		exec.warnings = warnings
		exec.mu.Unlock()
		return done, nil
	}
}

func (o *TransferOrchestrator[S, P]) buildResult(err error, exec *execution[P], operationID string, start time.Time) OperationResult[P] {
	exec.mu.Lock()
	defer exec.mu.Unlock()

	result := OperationResult[P]{
		Success:     err == nil,
		Errors:      []ErrorRecord{},
		Warnings:    []string{},
		Payload:     exec.payload,
		OperationID: operationID,
		Direction:   o.direction,
		Attempts:    exec.attempts,
	}
	if err == nil {
		result.Warnings = append(result.Warnings, exec.warnings...)
	} else {
		record := o.classify(err, operationID)
		if _, ok := record.Context["attempts"]; !ok {
			record.Context["attempts"] = exec.attempts
		}
		result.Errors = append(result.Errors, record)
		o.logger.Warn("transfer failed",
			slog.String("operation_id", operationID),
			slog.String("code", record.Code),
			slog.Int("attempts", exec.attempts),
			slog.String("error", record.Message),
		)
	}
	if o.cfg.DebugMode {
		result.Debug = o.debugInfo(exec)
	}
	result.Duration = time.Since(start)
	return result
}

func (o *TransferOrchestrator[S, P]) classify(err error, operationID string) ErrorRecord {
	last := categoryOf(err, GeneralError)
	category := last
	// Running out of attempts is a general fault; the final attempt's
	// category stays in the context.
	exhausted := errors.As(err, new(*task.ExhaustedError))
	if exhausted || errors.Is(err, ErrTransferTimeout) || errors.Is(err, ErrTransferInProgress) {
		category = GeneralError
	}
	record := o.classifier.Classify(err, category)
	if record.Context == nil {
		record.Context = map[string]any{}
	}
	record.Context["direction"] = o.direction.String()
	record.Context["operationId"] = operationID
	if exhausted {
		record.Context["lastCategory"] = last.String()
	}
	if o.cfg.EnableErrorRecovery {
		hint := record
		if exhausted {
			hint.Category = last
		}
		record.Recovery = RecoveryStrategy(hint)
	}
	return record
}

func (o *TransferOrchestrator[S, P]) debugInfo(exec *execution[P]) map[string]any {
	stages := make(map[string]int64, len(exec.stages))
	for stage, d := range exec.stages {
		stages[string(stage)] = d.Microseconds()
	}
	info := map[string]any{
		"stageMicros":      stages,
		"lastStage":        string(exec.stage),
		"attempts":         exec.attempts,
		"maxRetryAttempts": o.cfg.MaxRetryAttempts,
		"timeoutMs":        o.cfg.TimeoutMs,
		"validationMode":   string(o.cfg.ValidationMode),
	}
	if exec.validation != nil {
		info["validation"] = *exec.validation
	}
	if exec.payload != nil {
		info["metadata"] = exec.payload.Metadata
	}
	return info
}

func (o *TransferOrchestrator[S, P]) rejected(ctx context.Context, operationID string, start time.Time) OperationResult[P] {
	record := o.classify(newTransferError(GeneralError, "", ErrTransferInProgress), operationID)
	o.logger.Debug("transfer rejected", slog.String("operation_id", operationID))
	result := OperationResult[P]{
		Errors:      []ErrorRecord{record},
		Warnings:    []string{},
		OperationID: operationID,
		Direction:   o.direction,
		Duration:    time.Since(start),
	}
	if o.emitter.Enabled() {
		event := activity.BuildTransferRejectedEvent(o.eventInput(result))
		if err := o.emitter.Emit(ctx, event); err != nil {
			o.logger.Debug("activity emit failed", slog.String("error", err.Error()))
		}
	}
	return result
}

func (o *TransferOrchestrator[S, P]) report(ctx context.Context, result OperationResult[P]) {
	if !o.emitter.Enabled() {
		return
	}
	input := o.eventInput(result)
	event := activity.BuildTransferSucceededEvent(input)
	if !result.Success {
		event = activity.BuildTransferFailedEvent(input)
	}
	if err := o.emitter.Emit(context.WithoutCancel(ctx), event); err != nil {
		o.logger.Debug("activity emit failed", slog.String("error", err.Error()))
	}
}

func (o *TransferOrchestrator[S, P]) eventInput(result OperationResult[P]) activity.TransferEventInput {
	input := activity.TransferEventInput{
		OperationID: result.OperationID,
		Direction:   o.direction.String(),
		Attempts:    result.Attempts,
		Duration:    result.Duration,
		Warnings:    len(result.Warnings),
	}
	if len(result.Errors) > 0 {
		input.ErrorCode = result.Errors[0].Code
		input.Category = result.Errors[0].Category.String()
	}
	return input
}
