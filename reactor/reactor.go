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

// Package reactor abstracts the file-descriptor readiness event loop
// that drives a lower layer's reads, writes and exceptional conditions:
// the lower layer only depends on the Reactor interface below. Go has
// no portable epoll/kqueue handle to expose at this layer, so this
// package also ships the one concrete implementation the rest of the
// module actually runs against, built from goroutines and channels
// instead of a poll loop.
package reactor

import "io"

// Source is the steady-state stream a Watcher drives: an already
// established connection (accepted or connected), not the transport's
// connect/accept machinery itself.
type Source interface {
	io.Reader
	io.Writer
}

// ExceptSource is implemented by sources that can service an
// except-ready notification (TCP out-of-band data).
type ExceptSource interface {
	ReadExcept(p []byte) (n int, err error)
}

// Handlers are the callbacks a Watcher invokes. None are called
// reentrantly and none are called after Stop's done callback fires.
type Handlers struct {
	OnRead   func(p []byte)
	OnWrite  func()
	OnExcept func(p []byte)
	OnError  func(err error)
}

// Watcher is the per-Source registration a lower layer holds.
// SetReadEnable and SetWriteEnable are idempotent and safe to call from
// within a handler.
type Watcher interface {
	SetReadEnable(enabled bool)
	SetWriteEnable(enabled bool)

	// Stop clears handlers and calls done once no handler is in flight
	// and none will run again, mirroring a cleared file descriptor.
	Stop(done func())
}

// Reactor watches one Source at a time per Watch call.
type Reactor interface {
	Watch(src Source, readBuf int, h Handlers) Watcher
}

// Waiter is a one-shot, signal-once condition variable used to implement
// an endpoint's synchronous open: the caller blocks in Wait until Done
// is called (possibly already before Wait runs).
type Waiter interface {
	Done(err error)
	Wait() error
}
