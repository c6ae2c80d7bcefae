package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// SystemLogDir is where log files go when the process may write there.
	SystemLogDir = "/var/log/crowdstrike/kprotect"

	filePrefix = "kprotect-"
	fileSuffix = ".log"
)

// LogConfig holds configuration for structured log output.
type LogConfig struct {
	Level         string // "DEBUG" (default), "INFO", "WARN", "ERROR"
	Output        string // Path, "-" for stderr, "none" to disable
	Dir           string // Log directory (default: DefaultDir())
	RetentionDays int    // Days to retain log files (default: 7)
}

// LogFile manages a log file lifecycle.
type LogFile struct {
	Path   string   // Full path to the log file (empty if output is disabled)
	file   *os.File // Opened file handle (nil if stderr or disabled)
	writer io.Writer
}

// DefaultDir returns SystemLogDir when it is writable, otherwise
// $HOME/.kprotect/logs.
func DefaultDir() string {
	if dirWritable(SystemLogDir) {
		return SystemLogDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "kprotect", "logs")
	}
	return filepath.Join(home, ".kprotect", "logs")
}

func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// NewLogFile creates a new log file based on the configuration.
//
// Output behavior:
//   - empty/omitted: Create auto-generated file in Dir
//   - "-": Use os.Stderr
//   - "none": Disable logging (io.Discard)
//   - path: Use specified path (absolute or relative to Dir)
func NewLogFile(cfg *LogConfig) (*LogFile, error) {
	lf := &LogFile{}
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}

	switch strings.ToLower(cfg.Output) {
	case "none":
		lf.writer = io.Discard
		return lf, nil
	case "-":
		lf.writer = os.Stderr
		return lf, nil
	case "":
		lf.Path = filepath.Join(dir, GenerateLogFilename(time.Now().UTC()))
	default:
		if filepath.IsAbs(cfg.Output) {
			lf.Path = cfg.Output
		} else {
			lf.Path = filepath.Join(dir, cfg.Output)
		}
	}

	if err := os.MkdirAll(filepath.Dir(lf.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", filepath.Dir(lf.Path), err)
	}
	f, err := os.OpenFile(lf.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", lf.Path, err)
	}
	lf.file = f
	lf.writer = f
	return lf, nil
}

// Writer returns the io.Writer for log output.
func (lf *LogFile) Writer() io.Writer {
	return lf.writer
}

// Close closes the log file if it was opened.
func (lf *LogFile) Close() error {
	if lf.file != nil {
		return lf.file.Close()
	}
	return nil
}

// GenerateLogFilename returns kprotect-YYYYMMDD-HHMMSS-sss.log for t (UTC expected).
func GenerateLogFilename(t time.Time) string {
	return fmt.Sprintf("%s%s-%03d%s", filePrefix, t.Format("20060102-150405"), t.Nanosecond()/1_000_000, fileSuffix)
}

// CleanupOldLogFiles removes kprotect-*.log files older than retentionDays.
func CleanupOldLogFiles(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log directory %q: %w", dir, err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
	return nil
}
