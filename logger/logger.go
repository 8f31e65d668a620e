/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger is the structured logging collaborator used by the
// framework and the gtlssh client. It is a thin, stderr-only trim of the
// teacher's logrus-backed logger: one Level, one Fields type, one hook.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the structured logging contract. Every method is safe for
// concurrent use, matching the single-reactor-thread-plus-goroutines
// model the framework runs under.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level

	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, err error, f Fields)

	// WithFields returns a logger that merges f into every entry it emits.
	WithFields(f Fields) Logger
}

type stderrHook struct {
	mu    sync.Mutex
	color bool
}

func (h *stderrHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *stderrHook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	line, err := e.String()
	if err != nil {
		return err
	}

	if h.color {
		_, _ = fmt.Fprint(os.Stderr, colorForLevel(e.Level).Sprint(line))
	} else {
		_, _ = fmt.Fprint(os.Stderr, line)
	}
	return nil
}

func colorForLevel(lvl logrus.Level) *color.Color {
	switch lvl {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return color.New(color.FgRed)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	case logrus.DebugLevel:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

type logg struct {
	l *logrus.Logger
	f Fields
}

// New returns a Logger that writes colorized entries to stderr at lvl,
// via a logrus hook (the teacher's logger routes every sink through a
// hook rather than logrus's base output, so AddHook + io.Discard here
// mirrors that instead of calling SetOutput).
func New(lvl Level) Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	l.SetLevel(lvl.Logrus())
	l.AddHook(&stderrHook{color: color.NoColor == false})
	return &logg{l: l}
}

func (g *logg) SetLevel(lvl Level) {
	g.l.SetLevel(lvl.Logrus())
}

func (g *logg) GetLevel() Level {
	switch g.l.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return DebugLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.WarnLevel:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func (g *logg) entry(f Fields) *logrus.Entry {
	merged := make(Fields, len(g.f)+len(f))
	for k, v := range g.f {
		merged[k] = v
	}
	for k, v := range f {
		merged[k] = v
	}
	return g.l.WithFields(merged.Logrus())
}

func (g *logg) Debug(msg string, f Fields) {
	g.entry(f).Debug(msg)
}

func (g *logg) Info(msg string, f Fields) {
	g.entry(f).Info(msg)
}

func (g *logg) Warn(msg string, f Fields) {
	g.entry(f).Warn(msg)
}

func (g *logg) Error(msg string, err error, f Fields) {
	if err != nil {
		f = f.Add("error", err.Error())
	}
	g.entry(f).Error(msg)
}

func (g *logg) WithFields(f Fields) Logger {
	merged := make(Fields, len(g.f)+len(f))
	for k, v := range g.f {
		merged[k] = v
	}
	for k, v := range f {
		merged[k] = v
	}
	return &logg{l: g.l, f: merged}
}
