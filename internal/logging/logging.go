// Package logging configures process-wide slog output and owns the log
// file naming scheme shared with older releases.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

const (
	// LogPrefix and LogSuffix bracket the timestamp in every log file name.
	LogPrefix = "photonvision-"
	LogSuffix = ".log"

	// logTimeLayout matches the timestamp format earlier releases wrote,
	// 12-hour clock included.
	logTimeLayout = "2006-1-2_03-04-05"

	// DefaultRetainedLogs is how many boot logs PruneOldLogs keeps.
	DefaultRetainedLogs = 100
)

// LogFilename returns the log file name for a boot at time t,
// e.g. "photonvision-2026-8-30_09-15-42.log".
func LogFilename(t time.Time) string {
	return LogPrefix + t.Format(logTimeLayout) + LogSuffix
}

// DateFromLogFilename parses the boot time back out of a log file name.
// Names that don't carry the expected prefix, suffix, and timestamp
// format return a parse error.
func DateFromLogFilename(name string) (time.Time, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, LogPrefix), LogSuffix)
	t, err := time.Parse(logTimeLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed log file name %q: %w", name, err)
	}
	return t, nil
}

// Setup points the default slog logger at stderr and, if logFilePath is
// non-empty, a per-boot log file as well. The returned closer flushes and
// closes the file.
func Setup(logFilePath string, debug bool) (func() error, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if logFilePath == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewTextHandler(f, opts),
	)))
	return f.Close, nil
}

// PruneOldLogs deletes all but the newest keep log files from logsDir.
// Files that don't parse as log file names are left alone.
func PruneOldLogs(logsDir string, keep int) {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return
	}

	type bootLog struct {
		name string
		date time.Time
	}
	var logs []bootLog
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, err := DateFromLogFilename(e.Name())
		if err != nil {
			continue
		}
		logs = append(logs, bootLog{e.Name(), date})
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].date.After(logs[j].date) })

	for _, l := range logs[min(keep, len(logs)):] {
		path := filepath.Join(logsDir, l.name)
		if err := os.Remove(path); err != nil {
			slog.Warn("logging: failed to prune old log", "file", path, "err", err)
		} else {
			slog.Info("logging: pruned old log", "file", path)
		}
	}
}
