// Package crashsink is the error-reporting collaborator. Resolution
// failures are recoverable by design, so everything lands here as a
// non-fatal observability event rather than a surfaced error.
package crashsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/infrastructure/monitoring"
	"github.com/deeptrail/appshell/internal/logging"
)

// Sink receives recovered errors and panics for observability.
type Sink interface {
	// ReportNonFatal records an error that was recovered locally.
	ReportNonFatal(ctx context.Context, err error, fields ...zap.Field)

	// ReportPanic records a recovered panic with its stack.
	ReportPanic(cause interface{}, stack []byte)
}

// LogSink reports through the structured logger and the metrics counter.
type LogSink struct {
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewLogSink creates a sink over the given logger and metrics. A nil
// metrics collector is allowed.
func NewLogSink(log *logging.Logger, metrics *monitoring.Metrics) *LogSink {
	return &LogSink{log: log, metrics: metrics}
}

// ReportNonFatal implements Sink.
func (s *LogSink) ReportNonFatal(_ context.Context, err error, fields ...zap.Field) {
	s.log.Warn("non-fatal error", append([]zap.Field{zap.Error(err)}, fields...)...)
	if s.metrics != nil {
		s.metrics.RecordNonFatal()
	}
}

// ReportPanic implements Sink.
func (s *LogSink) ReportPanic(cause interface{}, stack []byte) {
	s.log.Error("recovered panic",
		zap.Any("cause", cause),
		zap.ByteString("stack", stack),
	)
	if s.metrics != nil {
		s.metrics.RecordNonFatal()
	}
}
