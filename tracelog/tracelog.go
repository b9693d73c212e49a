// Package tracelog wraps go-kit/kit/log into the logfmt logger shape used
// throughout trackkit, mirroring the teacher's own estimate.go pattern
// (kitlog.NewLogfmtLogger + kitlog.With for per-component context).
package tracelog

import (
	"io"
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// New returns a logfmt logger writing to w (os.Stdout if w is nil).
func New(w io.Writer) kitlog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
}

// With attaches static key/value context (e.g. session id, component name)
// to every subsequent log line.
func With(logger kitlog.Logger, keyvals ...interface{}) kitlog.Logger {
	return kitlog.With(logger, keyvals...)
}

// Nop returns a logger that discards everything, for tests and callers
// that never configured a sink.
func Nop() kitlog.Logger { return kitlog.NewNopLogger() }
