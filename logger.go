package shadercompat

import (
	"context"
	"log/slog"
	"sync/atomic"

	gpuimpl "github.com/gogpu/shadercompat/internal/gpu"
	"github.com/gogpu/shadercompat/internal/opencl"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for shadercompat and its device
// backends. By default nothing is logged. Pass nil to restore the silent
// default.
//
// Log levels used by shadercompat:
//   - [slog.LevelDebug]: buffer sizes, pass counts, the first output values
//   - [slog.LevelInfo]: lifecycle (device opened, worker count, test passed)
//   - [slog.LevelWarn]: non-fatal issues (backend fallback, lanes skipped)
//   - [slog.LevelError]: cross-validation mismatches
//
// Example:
//
//	shadercompat.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	gpuimpl.SetLogger(l)
	opencl.SetLogger(l)
}

// Logger returns the current logger. The gpu package and the command-line
// driver share it through this function.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
