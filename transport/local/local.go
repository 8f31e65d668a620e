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

// Package local plugs the "stdio" and "serialdev" transport tokens
// into the lower-layer engine: the two non-socket endpoint kinds the
// original tool dials for its own (terminal-side) io1, reused here as
// a remote-dial transport to keep the endpoint-string grammar's
// promise that both tokens name real transports. Neither token has a
// SO_ERROR-style deferred connect, so SubOpen always resolves
// synchronously. Serial line discipline (baud rate, parity, raw mode)
// is not configured here: a caller needing that puts the device in
// the right mode before the endpoint opens it.
package local

import (
	"os"

	liberr "github.com/nabbar/gensio/errors"
	liblwl "github.com/nabbar/gensio/lowerlayer"
	librct "github.com/nabbar/gensio/reactor"
)

// stdioSource pairs os.Stdin and os.Stdout into a single
// reactor.Source; Close deliberately leaves both open since the
// process does not own them.
type stdioSource struct{}

func (stdioSource) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioSource) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// StdioOps is the Ops vector for the "stdio" transport token: the
// process's own standard input/output, wired in directly rather than
// dialed.
type StdioOps struct{}

// NewStdioOps builds a "stdio" transport Ops vector.
func NewStdioOps() *StdioOps { return &StdioOps{} }

func (o *StdioOps) SubOpen() (librct.Source, error) { return stdioSource{}, nil }
func (o *StdioOps) CheckOpen() error                { return nil }

func (o *StdioOps) RetryOpen() (librct.Source, error) {
	return nil, liblwl.ErrExhausted
}

func (o *StdioOps) Write(p []byte, oob bool) (int, error) {
	if oob {
		return 0, liberr.New(liberr.NotSup, "oob write not supported on stdio")
	}
	return os.Stdout.Write(p)
}

func (o *StdioOps) ExceptReady() ([]byte, error) {
	return nil, liberr.New(liberr.NotSup, "except condition not supported on stdio")
}

func (o *StdioOps) Close() error { return nil }

// SerialDevOps is the Ops vector for the "serialdev,devpath" transport
// token: a direct open of the device special file, read/write like
// any other file.
type SerialDevOps struct {
	path string
	f    *os.File
}

// NewSerialDevOps builds a "serialdev" transport Ops vector over the
// device at path.
func NewSerialDevOps(path string) *SerialDevOps {
	return &SerialDevOps{path: path}
}

func (o *SerialDevOps) SubOpen() (librct.Source, error) {
	f, err := os.OpenFile(o.path, os.O_RDWR, 0)
	if err != nil {
		return nil, liberr.Wrap(liberr.IO, err)
	}
	o.f = f
	return f, nil
}

func (o *SerialDevOps) CheckOpen() error { return nil }

func (o *SerialDevOps) RetryOpen() (librct.Source, error) {
	return nil, liblwl.ErrExhausted
}

func (o *SerialDevOps) Write(p []byte, oob bool) (int, error) {
	if oob {
		return 0, liberr.New(liberr.NotSup, "oob write not supported on serialdev")
	}
	if o.f == nil {
		return 0, liberr.New(liberr.IO, "write on unopened serial device")
	}
	return o.f.Write(p)
}

func (o *SerialDevOps) ExceptReady() ([]byte, error) {
	return nil, liberr.New(liberr.NotSup, "except condition not supported on serialdev")
}

func (o *SerialDevOps) Close() error {
	if o.f == nil {
		return nil
	}
	return o.f.Close()
}
