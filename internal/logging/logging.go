// Package logging sets up the process loggers: slog for application code
// with optional OTel and Graylog sinks, and zerolog for the dispatcher.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds <logsDir>/<name>.<start>.log.
func LogFilePath(logsDir, name string, start time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, start.Format("20060102_150405")),
	)
}
