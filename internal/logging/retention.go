package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dailyLogPrefix = "vimeodl-"
	dailyLogSuffix = ".log"
	dailyLogLayout = "20060102"
)

// PruneDailyLogs deletes daily log files in dir whose filename date is more
// than retentionDays before now. Files that do not follow the daily naming
// scheme are left alone. A retentionDays value of 0 or less disables pruning.
// It returns the number of files removed.
func PruneDailyLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := dailyLogDate(entry.Name())
		if !ok || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}

// dailyLogDate extracts the day from a vimeodl-YYYYMMDD.log name.
func dailyLogDate(name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, dailyLogPrefix)
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, dailyLogSuffix)
	if !ok {
		return time.Time{}, false
	}
	day, err := time.Parse(dailyLogLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
