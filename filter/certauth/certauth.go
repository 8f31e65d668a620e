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

// Package certauth implements the "certauth" filter: it sits between
// ssl and the endpoint above it, gating Open on an optional password
// exchange (REQUEST_PASSWORD) once the inner (ssl) endpoint has
// completed its own certificate handshake. The certauth wire protocol
// itself (the peer-to-peer exchange that negotiates this) is out of
// scope; this filter supplies the option surface
// (enable-password, username=, cert=, key=) and the event contract a
// caller above it observes, passthrough otherwise.
package certauth

import (
	"sync"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
)

// Options are the certauth(...) endpoint-string arguments, as parsed by
// filter/parser: enable-password requests a REQUEST_PASSWORD round
// trip before Open completes, username/cert/key name the client
// identity material to present.
type Options struct {
	EnablePassword bool
	Username       string
	Cert           string
	Key            string
}

// FromTokenOptions builds Options from a parser.Token's raw option map.
func FromTokenOptions(raw map[string]string) Options {
	o := Options{Username: raw["username"], Cert: raw["cert"], Key: raw["key"]}
	if _, ok := raw["enable-password"]; ok {
		o.EnablePassword = true
	}
	return o
}

// Filter wraps an inner endpoint.Endpoint, gating Open on a password
// prompt when configured to, and otherwise passing every operation
// straight through to inner.
type Filter struct {
	inner libep.Endpoint
	opts  Options

	mu      sync.Mutex
	handler libep.EventHandler
}

// New constructs a certauth Filter over inner with the given options.
// inner's own event handler is taken over to intercept REQUEST_PASSWORD
// during Open; callers should install their handler on the Filter.
func New(inner libep.Endpoint, opts Options) *Filter {
	f := &Filter{inner: inner, opts: opts}
	inner.SetEventHandler(f.onInnerEvent)
	return f
}

func (f *Filter) onInnerEvent(_ libep.Endpoint, ev *libep.Event) {
	f.emit(ev)
}

func (f *Filter) emit(ev *libep.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(f, ev)
	}
}

func (f *Filter) Open(done libep.OpenDone) error {
	return f.inner.Open(func(_ libep.Endpoint, err error) {
		if err != nil || !f.opts.EnablePassword {
			if done != nil {
				done(f, err)
			}
			return
		}

		ev := &libep.Event{Kind: libep.RequestPassword}
		f.emit(ev)
		if !ev.Accept {
			if done != nil {
				done(f, liberr.New(liberr.AuthReject, "password prompt declined or unanswered"))
			}
			return
		}
		if done != nil {
			done(f, nil)
		}
	})
}

func (f *Filter) OpenSync() error {
	errc := make(chan error, 1)
	if err := f.Open(func(_ libep.Endpoint, err error) { errc <- err }); err != nil {
		return err
	}
	return <-errc
}

func (f *Filter) Close(done libep.CloseDone) error {
	return f.inner.Close(func(libep.Endpoint) {
		if done != nil {
			done(f)
		}
	})
}

func (f *Filter) Write(buf []byte, aux []string) (int, error) { return f.inner.Write(buf, aux) }

func (f *Filter) SetReadCallbackEnable(enabled bool)  { f.inner.SetReadCallbackEnable(enabled) }
func (f *Filter) SetWriteCallbackEnable(enabled bool) { f.inner.SetWriteCallbackEnable(enabled) }

func (f *Filter) Control(depth libep.Depth, op libep.ControlOp, id libep.ControlID, buf []byte) ([]byte, error) {
	if depth == libep.DepthSelf && id == libep.SERVICE && op == libep.Get {
		return []byte(f.opts.Username), nil
	}
	return f.inner.Control(shiftDepth(depth), op, id, buf)
}

func (f *Filter) GetType(depth libep.Depth) string {
	if depth == libep.DepthSelf {
		return "certauth"
	}
	return f.inner.GetType(shiftDepth(depth))
}

func (f *Filter) GetChild(depth libep.Depth) libep.Endpoint {
	if depth == libep.DepthSelf {
		return f.inner
	}
	return f.inner.GetChild(shiftDepth(depth))
}

func (f *Filter) RAddrToStr(depth libep.Depth) (string, error) {
	return f.inner.RAddrToStr(shiftDepth(depth))
}

func shiftDepth(depth libep.Depth) libep.Depth {
	if depth == libep.DepthAll || depth <= libep.DepthSelf {
		return depth
	}
	return depth - 1
}

func (f *Filter) SetEventHandler(h libep.EventHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *Filter) SetUserData(v any) { f.inner.SetUserData(v) }
func (f *Filter) UserData() any     { return f.inner.UserData() }
func (f *Filter) State() libep.State { return f.inner.State() }
