package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	logger  = zap.NewNop()
	file    *os.File
	enabled bool
)

// Enable starts logging JSON lines to path, truncating it. verbose turns
// on debug level.
func Enable(path string, verbose bool) (*zap.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return logger, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), level)

	file = f
	logger = zap.New(core, zap.AddCaller())
	enabled = true
	logger.Info("debug logging started", zap.String("path", path))
	return logger, nil
}

// Disable flushes and closes the log file
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}
	logger.Sync()
	file.Close()
	file = nil
	logger = zap.NewNop()
	enabled = false
}

// L returns the current logger (a no-op logger when disabled)
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a formatted debug message under a category
func Log(category, format string, args ...any) {
	L().Debug(fmt.Sprintf(format, args...), zap.String("category", category))
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	if !enabled {
		mu.Unlock()
		return
	}
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
