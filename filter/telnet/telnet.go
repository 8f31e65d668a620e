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

// Package telnet implements the "telnet" filter: when stacked as
// telnet(rfc2217) it sits outermost over a client session and surfaces
// SEND_BREAK as a Control(BREAK) passthrough. The RFC2217 option
// negotiation itself is out of scope; this filter supplies the
// endpoint contract and option surface a caller above it observes.
package telnet

import (
	"sync"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
)

// Options are the telnet(...) endpoint-string arguments.
type Options struct {
	RFC2217 bool
}

// FromTokenOptions builds Options from a parser.Token's raw option map.
func FromTokenOptions(raw map[string]string) Options {
	_, rfc2217 := raw["rfc2217"]
	return Options{RFC2217: rfc2217}
}

// Filter wraps an inner endpoint.Endpoint, passing every operation
// straight through while adding a SEND_BREAK control passthrough.
type Filter struct {
	inner libep.Endpoint
	opts  Options

	mu      sync.Mutex
	handler libep.EventHandler
}

// New constructs a telnet Filter over inner. inner's own event handler
// is taken over to relay events unchanged; callers should install
// their handler on the Filter, not on inner.
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
		if done != nil {
			done(f, err)
		}
	})
}

func (f *Filter) OpenSync() error { return f.inner.OpenSync() }

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

// SendBreak requests a SEND_BREAK be signalled to the remote end, via
// Control(Set, BREAK); only meaningful when RFC2217 is enabled.
func (f *Filter) SendBreak() error {
	if !f.opts.RFC2217 {
		return liberr.New(liberr.NotSup, "send-break requires telnet(rfc2217)")
	}
	_, err := f.inner.Control(libep.DepthSelf, libep.Set, libep.BREAK, nil)
	return err
}

func (f *Filter) Control(depth libep.Depth, op libep.ControlOp, id libep.ControlID, buf []byte) ([]byte, error) {
	if depth == libep.DepthSelf && id == libep.BREAK {
		return nil, f.SendBreak()
	}
	return f.inner.Control(shiftDepth(depth), op, id, buf)
}

func (f *Filter) GetType(depth libep.Depth) string {
	if depth == libep.DepthSelf {
		return "telnet"
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

func (f *Filter) SetUserData(v any)  { f.inner.SetUserData(v) }
func (f *Filter) UserData() any      { return f.inner.UserData() }
func (f *Filter) State() libep.State { return f.inner.State() }
