package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath returns the session log path inside logsDir, named after the
// app and the session start, e.g. thingforge.20260102_150405.log.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}
