package bridge

import (
	"context"
	"fmt"
	"time"
)

// PreconditionReport explains whether a transfer would currently pass its
// read and validation stages.
type PreconditionReport struct {
	IsValid bool           `json:"isValid"`
	Reason  string         `json:"reason"`
	Details map[string]any `json:"details,omitempty"`
}

// Diagnosis is a point-in-time health report for one direction.
type Diagnosis struct {
	Direction       Direction          `json:"direction"`
	Preconditions   PreconditionReport `json:"preconditions"`
	Configuration   Config             `json:"configuration"`
	ComponentHealth map[string]bool    `json:"componentHealth"`
	State           TransferState      `json:"state"`
	InFlight        bool               `json:"inFlight"`
	Timestamp       time.Time          `json:"timestamp"`
}

// CheckTransferPreconditions runs only the read and validation stages.
func (o *TransferOrchestrator[S, P]) CheckTransferPreconditions(ctx context.Context) bool {
	return o.CheckDetailedTransferPreconditions(ctx).IsValid
}

// CheckDetailedTransferPreconditions is CheckTransferPreconditions with the
// reason and validator output attached. Nothing is transformed or written.
func (o *TransferOrchestrator[S, P]) CheckDetailedTransferPreconditions(ctx context.Context) (report PreconditionReport) {
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if rec := recover(); rec != nil {
			report = PreconditionReport{
				Reason:  "precondition check failed",
				Details: map[string]any{"error": (&PanicError{Value: rec, Where: "precondition check"}).Error()},
			}
		}
	}()

	details := map[string]any{
		"direction": o.direction.String(),
		"inFlight":  o.InFlight(),
	}
	snapshot, err := o.components.Reader.Snapshot(ctx)
	if err != nil || snapshot == nil {
		if err == nil {
			err = ErrSnapshotUnavailable
		}
		details["error"] = err.Error()
		return PreconditionReport{Reason: "source snapshot unavailable", Details: details}
	}

	if !o.cfg.EnableValidation {
		return PreconditionReport{IsValid: true, Reason: "ready (validation disabled)", Details: details}
	}

	validation := o.components.Validator.Validate(snapshot)
	details["errors"] = validation.Errors
	details["warnings"] = validation.Warnings
	details["hasMinimumContent"] = validation.HasMinimumContent
	details["hasRequiredStructure"] = validation.HasRequiredStructure
	if !validation.IsValidForTransfer {
		reason := "validation failed"
		if len(validation.Errors) > 0 {
			reason = fmt.Sprintf("validation failed: %s", validation.Errors[0])
		}
		return PreconditionReport{Reason: reason, Details: details}
	}
	return PreconditionReport{IsValid: true, Reason: "ready", Details: details}
}

// DiagnoseStatus reports preconditions, configuration and component health.
func (o *TransferOrchestrator[S, P]) DiagnoseStatus(ctx context.Context) Diagnosis {
	health := map[string]bool{
		"reader":      o.components.Reader != nil,
		"validator":   o.components.Validator != nil || !o.cfg.EnableValidation,
		"transformer": o.components.Transformer != nil,
		"writer":      o.components.Writer != nil,
		"activity":    o.emitter.Enabled(),
	}
	if inspector, ok := o.components.Writer.(WriteInspector); ok {
		health["writer"] = health["writer"] && len(inspector.MissingWrites()) == 0
	}
	return Diagnosis{
		Direction:       o.direction,
		Preconditions:   o.CheckDetailedTransferPreconditions(ctx),
		Configuration:   o.Configuration(),
		ComponentHealth: health,
		State:           o.State(),
		InFlight:        o.InFlight(),
		Timestamp:       time.Now(),
	}
}
