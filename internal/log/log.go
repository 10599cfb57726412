// Copyright 2024 The corenet Authors
// This file is part of the corenet library.
//
// The corenet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The corenet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the corenet library. If not, see <http://www.gnu.org/licenses/>.

// Package log is a small structured logger in the shape of go-ethereum's own
// log package: a slog record model, a terminal handler that color-codes by
// level when its output is a real TTY, and a logfmt fallback otherwise.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Logger is the interface every component in this module logs through.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	With(ctx ...interface{}) Logger
}

const levelTrace = slog.Level(-8)
const levelCrit = slog.Level(12)

var levelNames = map[slog.Level]string{
	levelTrace:      "TRACE",
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
	levelCrit:       "CRIT",
}

var levelColors = map[slog.Level]int{
	levelTrace:      35, // magenta
	slog.LevelDebug: 36, // cyan
	slog.LevelInfo:  32, // green
	slog.LevelWarn:  33, // yellow
	slog.LevelError: 31, // red
	levelCrit:       41, // red background
}

type logger struct {
	inner *slog.Logger
}

// New constructs a root logger writing to w. If w is a real terminal
// (detected via go-isatty) the output is color coded; otherwise it is plain
// logfmt-like key=value pairs, wrapped through go-colorable so Windows
// consoles still render the (absent, in that case) ANSI codes correctly.
func New(w io.Writer) Logger {
	h := &handler{mu: new(sync.Mutex), w: wrapWriter(w), color: isTerminal(w)}
	return &logger{inner: slog.New(h)}
}

func wrapWriter(w io.Writer) io.Writer {
	if f, ok := w.(*os.File); ok {
		return colorable.NewColorable(f)
	}
	return w
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var root = New(os.Stderr)

// Root returns the module-wide default logger. Components should prefer an
// explicitly injected Logger; Root exists for package-level convenience in
// tests and examples.
func Root() Logger { return root }

func (l *logger) log(level slog.Level, msg string, ctx []interface{}) {
	if level == levelCrit {
		ctx = append(ctx, "stack", stack.Trace().TrimRuntime().String())
	}
	attrs := make([]slog.Attr, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, _ := ctx[i].(string)
		attrs = append(attrs, slog.Any(key, ctx[i+1]))
	}
	l.inner.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.log(levelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.log(slog.LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.log(slog.LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.log(slog.LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.log(slog.LevelError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.log(levelCrit, msg, ctx) }

func (l *logger) With(ctx ...interface{}) Logger {
	attrs := make([]any, 0, len(ctx))
	for i := 0; i+1 < len(ctx); i += 2 {
		attrs = append(attrs, ctx[i], ctx[i+1])
	}
	return &logger{inner: slog.New(l.inner.Handler()).With(attrs...)}
}

// handler is a minimal slog.Handler rendering logfmt, colorized when color
// is true.
type handler struct {
	mu    *sync.Mutex
	w     io.Writer
	color bool
	attrs []slog.Attr
}

func (h *handler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := levelNames[r.Level]
	if name == "" {
		name = r.Level.String()
	}
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var line string
	if h.color {
		color := levelColors[r.Level]
		line = fmt.Sprintf("\x1b[%dm%-5s\x1b[0m[%s] %s", color, name, ts.Format("01-02|15:04:05.000"), r.Message)
	} else {
		line = fmt.Sprintf("%-5s[%s] %s", name, ts.Format("01-02|15:04:05.000"), r.Message)
	}
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
		return true
	})
	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{mu: h.mu, w: h.w, color: h.color, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}
func (h *handler) WithGroup(_ string) slog.Handler { return h }
