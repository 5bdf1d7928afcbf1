package bridge

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// TransferLogEvent describes one finished pipeline attempt.
type TransferLogEvent struct {
	Direction   Direction
	OperationID string
	Attempt     int
	// Stage is the last stage the attempt reached.
	Stage    Stage
	Duration time.Duration
	Err      error
}

// TransferLogger records transfer attempts.
type TransferLogger interface {
	LogTransfer(TransferLogEvent)
}

// TransferLoggerFunc adapts a function to TransferLogger.
type TransferLoggerFunc func(TransferLogEvent)

// LogTransfer implements TransferLogger.
func (f TransferLoggerFunc) LogTransfer(event TransferLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopTransferLogger struct{}

func (noopTransferLogger) LogTransfer(TransferLogEvent) {}

// SlogTransferLogger writes attempts at debug level, or warn level when the
// attempt failed.
func SlogTransferLogger(logger *slog.Logger) TransferLogger {
	if logger == nil {
		return noopTransferLogger{}
	}
	return TransferLoggerFunc(func(event TransferLogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("direction", event.Direction.String()),
			slog.String("operation_id", event.OperationID),
			slog.Int("attempt", event.Attempt),
			slog.String("stage", string(event.Stage)),
			slog.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "transfer attempt", attrs...)
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
