package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents severity.
type LogLevel int8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]LogLevel{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var zapLevels = map[LogLevel]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

var (
	mu      sync.RWMutex
	atom    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	current = LevelInfo
	sugar   = newSugar(os.Stderr)
)

func newSugar(w io.Writer) *zap.SugaredLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), atom)
	return zap.New(core).Sugar()
}

// SetOutput redirects log output (tests, or a log file from the CLI).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sugar = newSugar(w)
}

// SetLogLevel parses and sets the global log level. Unknown names are ignored.
func SetLogLevel(s string) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return
	}
	mu.Lock()
	current = l
	mu.Unlock()
	atom.SetLevel(zapLevels[l])
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Sync flushes buffered output.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = sugar.Sync()
}

func logf(l LogLevel, format string, args ...interface{}) {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	// Messages without args are passed through untouched so literal % survives.
	switch l {
	case LevelDebug:
		if len(args) == 0 {
			s.Debug(format)
			return
		}
		s.Debugf(format, args...)
	case LevelWarn:
		if len(args) == 0 {
			s.Warn(format)
			return
		}
		s.Warnf(format, args...)
	case LevelError:
		if len(args) == 0 {
			s.Error(format)
			return
		}
		s.Errorf(format, args...)
	default:
		if len(args) == 0 {
			s.Info(format)
			return
		}
		s.Infof(format, args...)
	}
}

// Public helpers
func Debugf(format string, a ...interface{}) { logf(LevelDebug, format, a...) }
func Infof(format string, a ...interface{})  { logf(LevelInfo, format, a...) }
func Warnf(format string, a ...interface{})  { logf(LevelWarn, format, a...) }
func Errorf(format string, a ...interface{}) { logf(LevelError, format, a...) }

// TimeTrack logs the duration of a phase at debug level.
//
//	defer logging.TimeTrack(time.Now(), "render batch")
func TimeTrack(start time.Time, label string) {
	Debugf("%s took %s", label, time.Since(start))
}
