package notify

import (
	"context"
	"log"
)

// LogSink writes notifications to a logger. Useful as a default sink and in
// development runs.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a log sink. A nil logger uses log.Default().
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

// Notify logs the event.
func (s *LogSink) Notify(_ context.Context, e *Event) error {
	s.logger.Printf("[notify] %s", FormatMessage(e))
	return nil
}

var _ Sink = (*LogSink)(nil)
