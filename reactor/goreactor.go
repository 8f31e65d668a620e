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

package reactor

import "sync"

// Go is the default Reactor: one read goroutine and one write-ready
// goroutine per watched Source, parked on a condition variable while
// their direction is disabled. It satisfies the same contract a
// poll-loop reactor would, without needing a raw file descriptor.
type Go struct{}

// New returns the default goroutine-driven Reactor.
func New() Reactor {
	return Go{}
}

func (Go) Watch(src Source, readBuf int, h Handlers) Watcher {
	if readBuf <= 0 {
		readBuf = 4096
	}

	w := &watcher{
		src:     src,
		h:       h,
		readBuf: readBuf,
	}
	w.cond = sync.NewCond(&w.mu)

	w.wg.Add(1)
	go w.readLoop()

	w.wg.Add(1)
	go w.writeLoop()

	if ex, ok := src.(ExceptSource); ok {
		w.except = ex
		w.wg.Add(1)
		go w.exceptLoop()
	}

	return w
}

type watcher struct {
	mu   sync.Mutex
	cond *sync.Cond
	wg   sync.WaitGroup

	src     Source
	except  ExceptSource
	h       Handlers
	readBuf int

	readEnabled  bool
	writeEnabled bool
	stopped      bool
}

func (w *watcher) SetReadEnable(enabled bool) {
	w.mu.Lock()
	w.readEnabled = enabled
	w.mu.Unlock()
	w.cond.Broadcast()
}

func (w *watcher) SetWriteEnable(enabled bool) {
	w.mu.Lock()
	w.writeEnabled = enabled
	w.mu.Unlock()
	w.cond.Broadcast()
}

func (w *watcher) Stop(done func()) {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cond.Broadcast()

	go func() {
		w.wg.Wait()
		if done != nil {
			done()
		}
	}()
}

// waitUntil blocks until stopped, or until cond holds; returns false if
// the watcher was stopped while waiting.
func (w *watcher) waitUntil(ready func() bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.stopped && !ready() {
		w.cond.Wait()
	}
	return !w.stopped
}

func (w *watcher) readLoop() {
	defer w.wg.Done()

	buf := make([]byte, w.readBuf)
	for {
		if !w.waitUntil(func() bool { return w.readEnabled }) {
			return
		}

		n, err := w.src.Read(buf)
		if n > 0 && w.h.OnRead != nil {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			w.h.OnRead(cp)
		}
		if err != nil {
			if w.h.OnError != nil {
				w.h.OnError(err)
			}
			return
		}
	}
}

func (w *watcher) writeLoop() {
	defer w.wg.Done()

	for {
		if !w.waitUntil(func() bool { return w.writeEnabled }) {
			return
		}

		// Deliver exactly one write-ready notification per enable
		// toggle; the caller re-arms via SetWriteEnable(true) for
		// the next opportunity.
		w.mu.Lock()
		w.writeEnabled = false
		w.mu.Unlock()

		if w.h.OnWrite != nil {
			w.h.OnWrite()
		}
	}
}

func (w *watcher) exceptLoop() {
	defer w.wg.Done()

	buf := make([]byte, w.readBuf)
	for {
		if w.waitUntilStopped() {
			return
		}

		n, err := w.except.ReadExcept(buf)
		if err != nil {
			return
		}
		if n > 0 && w.h.OnExcept != nil {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			w.h.OnExcept(cp)
		}
	}
}

func (w *watcher) waitUntilStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}
