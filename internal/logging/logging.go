package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the log file of one client session, e.g.
// logs/tankbot.alice.20260212_213836.log.
func LogFilePath(logsDir, player string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.%s.log", ServiceName, player, sessionStart.Format("20060102_150405")),
	)
}
