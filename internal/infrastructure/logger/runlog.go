package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunLogPrefix is the filename prefix shared by every per-run log file.
// The retention job keys its deletions on this prefix.
const RunLogPrefix = "bkp_"

const runLogTimeLayout = "2006-01-02_15.04.05"

// RunLogName returns the log filename for a run started at the given time,
// e.g. bkp_2024-03-05_14.05.00.log.
func RunLogName(startedAt time.Time) string {
	return fmt.Sprintf("%s%s.log", RunLogPrefix, startedAt.Format(runLogTimeLayout))
}

// RunLog is the combined output of a single backup run: structured log
// lines plus raw subprocess output, all in one timestamped file.
type RunLog struct {
	*Logger
	path string
	file *os.File
}

// NewRunLog creates the run-log file for a run started at startedAt and
// returns a logger scoped to it. The caller must Close it when the run ends.
func NewRunLog(dir string, startedAt time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}

	path := filepath.Join(dir, RunLogName(startedAt))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(file),
		zapcore.DebugLevel,
	)
	zapLogger := zap.New(core)

	return &RunLog{
		Logger: &Logger{zapLogger.Sugar()},
		path:   path,
		file:   file,
	}, nil
}

// Path returns the run-log file path.
func (r *RunLog) Path() string {
	return r.path
}

// Writer exposes the underlying file so subprocess output (git clone/fetch)
// lands in the same log, interleaved with the structured lines.
func (r *RunLog) Writer() io.Writer {
	return r.file
}

func (r *RunLog) Close() {
	_ = r.Sync()
	_ = r.file.Close()
}
