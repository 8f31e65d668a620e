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

// Package lowerlayer implements the reusable engine that owns one
// connected Source and drives its nonblocking open/read/write/except
// lifecycle, demultiplexing reactor readiness into a transport-specific
// operation vector. Transports (TCP, and anything stacked below a
// filter) provide the Ops vector; this package never knows the
// concrete substrate.
package lowerlayer

import (
	"io"
	"sync"

	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
	librct "github.com/nabbar/gensio/reactor"
)

// Ops is the operation vector a transport plugs into the engine.
type Ops interface {
	// SubOpen begins an asynchronous open. It returns a Source ready
	// for steady-state I/O, or (nil, ErrInProgress) if the caller
	// must wait for a write-ready before calling CheckOpen, or a
	// terminal error.
	SubOpen() (librct.Source, error)

	// CheckOpen inspects the in-progress connection's pending error
	// (TCP: SO_ERROR). A nil return means the connection is up.
	CheckOpen() error

	// RetryOpen advances to the next candidate and attempts it again,
	// mirroring SubOpen's return contract. Returns ErrExhausted once
	// every candidate has failed.
	RetryOpen() (librct.Source, error)

	// Write hands bytes to the substrate; oob requests out-of-band
	// delivery if supported.
	Write(p []byte, oob bool) (int, error)

	// ExceptReady services an except-ready notification and returns
	// the bytes read (TCP: MSG_OOB).
	ExceptReady() ([]byte, error)

	// Close releases transport-owned resources (the fd itself).
	Close() error
}

// ControlOp distinguishes a control() get from a set.
type ControlOp uint8

const (
	Get ControlOp = iota
	Set
)

// ControlID names a sideband option routed through control().
type ControlID uint8

const (
	NODELAY ControlID = iota
	CERT
	CERTFingerprint
	SERVICE
	BREAK
)

func (c ControlID) String() string {
	switch c {
	case NODELAY:
		return "NODELAY"
	case CERT:
		return "CERT"
	case CERTFingerprint:
		return "CERT_FINGERPRINT"
	case SERVICE:
		return "SERVICE"
	case BREAK:
		return "BREAK"
	default:
		return "UNKNOWN"
	}
}

// Controller is implemented by an Ops vector able to service sideband
// control() requests for itself.
type Controller interface {
	Control(op ControlOp, id ControlID, buf []byte) ([]byte, error)
}

// RemoteAddrer is implemented by an Ops vector that captures a remote
// address once connected or accepted.
type RemoteAddrer interface {
	RemoteAddr() string
}

// ErrInProgress is returned by SubOpen/RetryOpen to request the engine
// register write-readiness and call CheckOpen later.
var ErrInProgress = liberr.New(liberr.Busy, "operation in progress")

// ErrExhausted is returned once no further candidate remains to retry.
var ErrExhausted = liberr.New(liberr.IO, "address list exhausted")

// ReadHandlers are the callbacks the engine's owner (a base endpoint)
// registers for steady-state events.
type ReadHandlers struct {
	OnRead       func(p []byte)
	OnExcept     func(p []byte)
	OnWriteReady func()
	OnError      func(err error)
}

// Engine is the FD-backed lower layer.
type Engine struct {
	ops     Ops
	rct     librct.Reactor
	log     liblog.Logger
	readBuf int

	mu      sync.Mutex
	src     librct.Source
	watcher librct.Watcher
	h       ReadHandlers

	writeEnabled bool
	readEnabled  bool
}

// New constructs an Engine bound to ops, driven by rct, with readBuf
// sized internal read buffers (spec-default 4096 if zero).
func New(ops Ops, rct librct.Reactor, log liblog.Logger, readBuf int) *Engine {
	if readBuf <= 0 {
		readBuf = 4096
	}
	return &Engine{ops: ops, rct: rct, log: log, readBuf: readBuf}
}

// Open begins the asynchronous open sequence described by Ops. done is
// invoked exactly once, on the goroutine that discovers the outcome.
func (e *Engine) Open(done func(err error)) {
	go e.openLoop(done)
}

func (e *Engine) openLoop(done func(err error)) {
	src, err := e.ops.SubOpen()
	for {
		if err == nil {
			e.onConnected(src, done)
			return
		}
		if !isInProgress(err) {
			if e.log != nil {
				e.log.Error("open failed", err, nil)
			}
			done(err)
			return
		}
		// In progress: pass the wait point (waitWriteReady), then
		// CheckOpen.
		if cerr := e.waitWriteReady(); cerr != nil {
			done(cerr)
			return
		}
		if cerr := e.ops.CheckOpen(); cerr == nil {
			src, err = e.ops.SubOpen()
			if err == nil {
				e.onConnected(src, done)
				return
			}
		}
		src, err = e.ops.RetryOpen()
	}
}

func isInProgress(err error) bool {
	return liberr.Has(err, liberr.Busy)
}

// waitWriteReady is the engine's wait point between an in-progress
// SubOpen/RetryOpen and CheckOpen; it returns nil at once, without
// waiting on the reactor.
func (e *Engine) waitWriteReady() error {
	// The connect-phase retry loop owns its own write-readiness
	// detection inside Ops (see transport/tcp), since no Source
	// exists yet to hand to the generic Reactor until SubOpen
	// succeeds. This hook exists so alternate Ops implementations
	// that do have an early fd may still use the shared Reactor.
	return nil
}

func (e *Engine) onConnected(src librct.Source, done func(err error)) {
	e.mu.Lock()
	e.src = src
	e.mu.Unlock()
	done(nil)
}

// Start begins steady-state read/write/except dispatch over the
// already-open Source. Must be called after Open's done fires with a
// nil error.
func (e *Engine) Start(h ReadHandlers) {
	e.mu.Lock()
	e.h = h
	src := e.src
	e.mu.Unlock()

	if src == nil {
		return
	}

	e.watcher = e.rct.Watch(src, e.readBuf, librct.Handlers{
		OnRead: func(p []byte) {
			if e.h.OnRead != nil {
				e.h.OnRead(p)
			}
		},
		OnWrite: func() {
			if e.h.OnWriteReady != nil {
				e.h.OnWriteReady()
			}
		},
		OnExcept: func(p []byte) {
			if e.h.OnExcept != nil {
				e.h.OnExcept(p)
			}
		},
		OnError: func(err error) {
			if e.h.OnError != nil {
				e.h.OnError(err)
			}
		},
	})
}

// SetReadEnable flips reactor read interest.
func (e *Engine) SetReadEnable(enabled bool) {
	e.mu.Lock()
	e.readEnabled = enabled
	w := e.watcher
	e.mu.Unlock()
	if w != nil {
		w.SetReadEnable(enabled)
	}
}

// SetWriteEnable flips reactor write interest.
func (e *Engine) SetWriteEnable(enabled bool) {
	e.mu.Lock()
	e.writeEnabled = enabled
	w := e.watcher
	e.mu.Unlock()
	if w != nil {
		w.SetWriteEnable(enabled)
	}
}

// Write hands bytes to Ops; EAGAIN-equivalent (io.ErrShortWrite class)
// is surfaced as zero bytes written, not an error, matching the
// nonblocking write contract.
func (e *Engine) Write(p []byte, oob bool) (int, error) {
	n, err := e.ops.Write(p, oob)
	if err == io.ErrShortWrite {
		return 0, nil
	}
	return n, err
}

// Control delegates a sideband request to Ops, if Ops implements
// Controller (TCP: NODELAY).
func (e *Engine) Control(op ControlOp, id ControlID, buf []byte) ([]byte, error) {
	ctl, ok := e.ops.(Controller)
	if !ok {
		return nil, liberr.New(liberr.NotSup, "control not supported by this transport")
	}
	return ctl.Control(op, id, buf)
}

// RemoteAddr returns the transport's captured remote address string,
// if Ops implements the optional RemoteAddrer interface.
func (e *Engine) RemoteAddr() string {
	ra, ok := e.ops.(RemoteAddrer)
	if !ok {
		return ""
	}
	return ra.RemoteAddr()
}

// Close clears reactor handlers and, once the reactor confirms no
// handler is in flight, closes the underlying resource and invokes
// done.
func (e *Engine) Close(done func()) {
	e.mu.Lock()
	w := e.watcher
	e.mu.Unlock()

	closeFn := func() {
		_ = e.ops.Close()
		if done != nil {
			done()
		}
	}

	if w == nil {
		closeFn()
		return
	}
	w.Stop(closeFn)
}
