// Package klog is the kernel's structured logging facade.
//
// Design Decision: a package-level global is appropriate here, the same
// way eventloop/logging.go justifies it for the event loop - diagnostics
// are an infrastructure cross-cutting concern, every kernel instance
// shares logging semantics, and the fast scheduling path never touches
// this package at all (only configuration-time and port-contract-
// violation paths log anything).
//
// Backed by github.com/joeycumines/logiface, using
// github.com/joeycumines/stumpy as the default event encoder, the same
// pairing eventloop's sibling packages in the monorepo use.
package klog

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var global struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

// SetLogger installs the process-wide kernel logger. Passing nil disables
// logging (the default).
func SetLogger(logger *logiface.Logger[*stumpy.Event]) {
	global.Lock()
	defer global.Unlock()
	global.logger = logger
}

func current() *logiface.Logger[*stumpy.Event] {
	global.RLock()
	defer global.RUnlock()
	return global.logger
}

// NewStumpyLogger builds a ready-to-use logger writing newline-delimited
// JSON at the given level, suitable for SetLogger.
func NewStumpyLogger(level logiface.Level, opts ...stumpy.Option) *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.WithStumpy(opts...),
		stumpy.L.WithLevel(level),
	)
}

// Debug, Info, Warn, and Error return a field builder at the named level,
// or nil if no logger is installed or the level is disabled; all methods
// on a nil *logiface.Builder are no-ops, so call sites never need a nil
// check of their own.
func Debug() *logiface.Builder[*stumpy.Event] { return build(logiface.LevelDebug) }
func Info() *logiface.Builder[*stumpy.Event]  { return build(logiface.LevelInformational) }
func Warn() *logiface.Builder[*stumpy.Event]  { return build(logiface.LevelWarning) }
func Error() *logiface.Builder[*stumpy.Event] { return build(logiface.LevelError) }

func build(level logiface.Level) *logiface.Builder[*stumpy.Event] {
	l := current()
	if l == nil {
		return nil
	}
	return l.Build(level)
}
