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

package tcp

import (
	"net"
	"sync"

	libatm "github.com/nabbar/gensio/atomic"
	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
)

// AccessCheck is the host-based access-check hook (classic TCP
// wrappers): given the peer address, it returns a non-empty rejection
// string to have the connection refused and closed.
type AccessCheck func(remote net.Addr) string

// NewConnHandler is delivered one accepted connection at a time,
// already wrapped as a net.Conn; the caller is responsible for
// building the base endpoint and emitting NEW_CONNECTION upward.
type NewConnHandler func(conn net.Conn)

type acceptState uint8

const (
	stateClosed acceptState = iota
	stateSetup
	stateInShutdown
)

// Accepter owns a set of listening sockets and demultiplexes incoming
// connections to NewConnHandler, implementing the state machine
// closed -> (startup) -> setup(+enabled) -> (shutdown) -> in_shutdown
// -> closed, refcounted so Free is safe to call concurrently with a
// Shutdown already in flight.
type Accepter struct {
	list    List
	access  AccessCheck
	onConn  NewConnHandler
	log     liblog.Logger
	refs    libatm.Counter
	enabled libatm.Flag

	mu        sync.Mutex
	state     acceptState
	listeners []net.Listener
	waiting   int
	doneCb    func()
}

// NewAccepter constructs an Accepter over list, not yet started.
func NewAccepter(list List, access AccessCheck, onConn NewConnHandler, log liblog.Logger) *Accepter {
	a := &Accepter{list: list, access: access, onConn: onConn, log: log}
	a.refs.Add(1) // caller's hold
	return a
}

// Startup creates the listening sockets (one per address in the list)
// and begins accepting; it also takes the "setup" refcount hold.
func (a *Accepter) Startup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateClosed {
		return liberr.New(liberr.Busy, "accepter already started")
	}

	listeners := make([]net.Listener, 0, a.list.Len())
	for i := 0; i < a.list.Len(); i++ {
		addr := a.list.At(i)
		ln, err := net.Listen(addr.DialNetwork(), addr.DialAddress())
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return liberr.Wrap(liberr.IO, err)
		}
		listeners = append(listeners, ln)
	}
	if len(listeners) == 0 {
		return liberr.New(liberr.Invalid, "accepter has no addresses to listen on")
	}

	a.listeners = listeners
	a.state = stateSetup
	a.refs.Add(1) // setup hold
	a.enabled.Set(true)

	for _, ln := range listeners {
		go a.acceptLoop(ln)
	}
	return nil
}

// SetEnable flips accept readiness without tearing down the listening
// sockets. The flip is guarded by the accepter's own mutex rather than
// the Flag alone, since enable must not race a concurrent Shutdown.
func (a *Accepter) SetEnable(enable bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != stateSetup {
		return
	}
	a.enabled.Set(enable)
}

func (a *Accepter) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			a.fdCleared()
			return
		}
		if !a.enabled.Get() {
			_ = conn.Close()
			continue
		}
		if a.access != nil {
			if reason := a.access(conn.RemoteAddr()); reason != "" {
				_, _ = conn.Write([]byte(reason))
				_ = conn.Close()
				continue
			}
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetKeepAlive(true)
		}
		if a.onConn != nil {
			a.onConn(conn)
		}
	}
}

// fdCleared is invoked once a listener's Accept loop has returned for
// good (the listener was closed). Once every listener has cleared,
// shutdown's done callback fires and the "setup" hold is dropped.
func (a *Accepter) fdCleared() {
	a.mu.Lock()
	a.waiting--
	done := a.waiting <= 0
	cb := a.doneCb
	if done {
		a.state = stateClosed
		a.doneCb = nil
	}
	a.mu.Unlock()

	if done {
		a.refs.Add(-1) // drop the setup hold
		if cb != nil {
			cb()
		}
	}
}

// Shutdown clears accept readiness on every listen socket; done fires
// once every listener's accept loop has actually returned.
func (a *Accepter) Shutdown(done func()) error {
	a.mu.Lock()
	if a.state != stateSetup {
		a.mu.Unlock()
		return liberr.New(liberr.Invalid, "accepter not set up")
	}
	a.state = stateInShutdown
	a.waiting = len(a.listeners)
	a.doneCb = done
	listeners := a.listeners
	a.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}
	return nil
}

// Free drops the caller's hold, performing a shutdown-with-nil-done
// first if the accepter is still set up.
func (a *Accepter) Free() {
	a.mu.Lock()
	setUp := a.state == stateSetup
	a.mu.Unlock()

	if setUp {
		_ = a.Shutdown(nil)
	}
	a.refs.Add(-1)
}

// RefCount reports the current reference count, for diagnostics and
// tests only.
func (a *Accepter) RefCount() int64 { return a.refs.Load() }

// ListenerAddr returns the bound address of the i-th listening socket,
// or "" if out of range; useful once an ephemeral port (":0") has been
// resolved by Startup.
func (a *Accepter) ListenerAddr(i int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.listeners) {
		return ""
	}
	return a.listeners[i].Addr().String()
}
