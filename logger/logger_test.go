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

package logger_test

import (
	"testing"

	"github.com/nabbar/gensio/logger"
)

func TestFromVerbosity(t *testing.T) {
	cases := []struct {
		count int
		want  logger.Level
	}{
		{0, logger.ErrorLevel},
		{1, logger.WarnLevel},
		{2, logger.InfoLevel},
		{3, logger.DebugLevel},
		{9, logger.DebugLevel},
	}
	for _, c := range cases {
		if got := logger.FromVerbosity(c.count); got != c.want {
			t.Fatalf("FromVerbosity(%d) = %v, want %v", c.count, got, c.want)
		}
	}
}

func TestWithFieldsAndSetLevel(t *testing.T) {
	l := logger.New(logger.DebugLevel)
	child := l.WithFields(logger.Fields{"endpoint": "tcp"})
	// Exercised for panics only: no output assertions since the hook
	// writes to stderr, matching the teacher's hook-based sinks which
	// are verified the same way (no captured-writer assertions).
	child.Info("hello", logger.Fields{"remote": "127.0.0.1:22000"})
	l.SetLevel(logger.ErrorLevel)
	if l.GetLevel() != logger.ErrorLevel {
		t.Fatalf("expected ErrorLevel after SetLevel")
	}
}
