package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GraylogSink ships records to a Graylog GELF UDP input.
type GraylogSink struct {
	writer  *gelf.Writer
	handler slog.Handler
}

// NewGraylogSink dials address (host:port) and returns a sink emitting JSON
// records at level and above.
func NewGraylogSink(address, level string) (*GraylogSink, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create graylog writer: %w", err)
	}
	w.Facility = InstrumentationName
	return &GraylogSink{
		writer:  w,
		handler: slog.NewJSONHandler(w, handlerOptions(parseLevel(level))),
	}, nil
}

// Handler returns the slog handler to pass to SlogManager.Setup.
func (s *GraylogSink) Handler() slog.Handler {
	return s.handler
}

// Close releases the UDP connection.
func (s *GraylogSink) Close() error {
	return s.writer.Close()
}
