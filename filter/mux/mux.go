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

// Package mux implements the "mux" filter: it demultiplexes a single
// inner endpoint's byte stream into named sub-channels framed with
// CBOR, surfacing each newly observed channel key to the user as a
// NEW_CHANNEL event and shuttling bytes for already-known channels to
// their own Endpoint façade.
package mux

import (
	"bytes"
	"sync"

	libcbr "github.com/fxamacker/cbor/v2"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
)

// Message is one CBOR-framed unit on the wire: Stream names the
// logical channel (a port-forward service id, or a free-form string
// for the default channel), Message carries the payload.
type Message struct {
	Stream  string `cbor:"stream"`
	Message []byte `cbor:"message"`
}

// Filter wraps an inner endpoint.Endpoint, multiplexing named
// channels over it.
type Filter struct {
	inner libep.Endpoint

	mu       sync.Mutex
	handler  libep.EventHandler
	channels map[string]*Channel
	userData any
}

// New constructs a mux Filter over inner. inner's own event handler is
// taken over by the Filter to demultiplex incoming frames; callers
// should install their handler on the Filter, not on inner.
func New(inner libep.Endpoint) *Filter {
	f := &Filter{inner: inner, channels: map[string]*Channel{}}
	inner.SetEventHandler(f.onInnerEvent)
	return f
}

func (f *Filter) onInnerEvent(_ libep.Endpoint, ev *libep.Event) {
	if ev.Kind != libep.Read {
		f.emit(ev)
		return
	}

	dec := libcbr.NewDecoder(bytes.NewReader(ev.Data))
	for {
		var m Message
		if err := dec.Decode(&m); err != nil {
			return
		}
		if m.Stream == "" || len(m.Message) == 0 {
			continue
		}
		f.dispatch(m.Stream, m.Message)
	}
}

func (f *Filter) dispatch(stream string, payload []byte) {
	f.mu.Lock()
	ch, ok := f.channels[stream]
	if !ok {
		ch = newChannel(f, stream)
		f.channels[stream] = ch
	}
	f.mu.Unlock()

	if !ok {
		f.emit(&libep.Event{Kind: libep.NewChannel, Channel: ch, Service: stream})
	}
	ch.deliver(payload)
}

func (f *Filter) emit(ev *libep.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(f, ev)
	}
}

func (f *Filter) writeFrame(stream string, p []byte) (int, error) {
	var buf bytes.Buffer
	if err := libcbr.NewEncoder(&buf).Encode(Message{Stream: stream, Message: p}); err != nil {
		return 0, liberr.Wrap(liberr.IO, err)
	}
	if _, err := f.inner.Write(buf.Bytes(), nil); err != nil {
		return 0, err
	}
	return len(p), nil
}

// OpenChannel returns (creating if necessary) the local façade for
// stream; used by local port forwarding to address a new mux channel
// by the connect-address service string without waiting to observe it
// on the wire first.
func (f *Filter) OpenChannel(stream string) *Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[stream]
	if !ok {
		ch = newChannel(f, stream)
		f.channels[stream] = ch
	}
	return ch
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

func (f *Filter) Write(buf []byte, aux []string) (int, error) {
	return f.writeFrame("", buf)
}

func (f *Filter) SetReadCallbackEnable(enabled bool)  { f.inner.SetReadCallbackEnable(enabled) }
func (f *Filter) SetWriteCallbackEnable(enabled bool) { f.inner.SetWriteCallbackEnable(enabled) }

func (f *Filter) Control(depth libep.Depth, op libep.ControlOp, id libep.ControlID, buf []byte) ([]byte, error) {
	if depth == libep.DepthSelf {
		return nil, liberr.New(liberr.NotSup, "mux has no self control options")
	}
	return f.inner.Control(shiftDepth(depth), op, id, buf)
}

func (f *Filter) GetType(depth libep.Depth) string {
	if depth == libep.DepthSelf {
		return "mux"
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

func (f *Filter) SetUserData(v any) {
	f.mu.Lock()
	f.userData = v
	f.mu.Unlock()
}

func (f *Filter) UserData() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userData
}

func (f *Filter) State() libep.State { return f.inner.State() }
