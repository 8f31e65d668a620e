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

package client

import (
	"os"

	"golang.org/x/term"

	liberr "github.com/nabbar/gensio/errors"
)

// TTY owns the interactive terminal's raw-mode state for the duration
// of a session, restoring the original mode on Close.
type TTY struct {
	fd       int
	isTerm   bool
	oldState *term.State
}

// OpenTTY inspects os.Stdin and puts it into raw mode when it is a
// terminal; on a non-terminal (e.g. piped stdin in a test), it is a
// no-op and IsTerminal reports false.
func OpenTTY() (*TTY, liberr.Error) {
	fd := int(os.Stdin.Fd())
	t := &TTY{fd: fd, isTerm: term.IsTerminal(fd)}
	if !t.isTerm {
		return t, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, liberr.Wrap(liberr.IO, err)
	}
	t.oldState = old
	return t, nil
}

// IsTerminal reports whether stdin is an interactive terminal.
func (t *TTY) IsTerminal() bool { return t.isTerm }

// Size returns the current (cols, rows) of the terminal via TIOCGWINSZ.
func (t *TTY) Size() (cols, rows int, err liberr.Error) {
	c, r, e := term.GetSize(t.fd)
	if e != nil {
		return 0, 0, liberr.Wrap(liberr.IO, e)
	}
	return c, r, nil
}

// Close restores the terminal's original mode, if it was changed.
func (t *TTY) Close() liberr.Error {
	if t.oldState == nil {
		return nil
	}
	if err := term.Restore(t.fd, t.oldState); err != nil {
		return liberr.Wrap(liberr.IO, err)
	}
	return nil
}
