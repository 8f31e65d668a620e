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

package endpoint

import (
	"sync"

	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
	"github.com/nabbar/gensio/lowerlayer"
	librct "github.com/nabbar/gensio/reactor"
)

// Base is the leaf endpoint every transport constructs and every
// filter wraps. It owns no child of its own (GetChild at depth 0
// returns nil); filters compose by embedding a Base-backed Endpoint as
// their child and answering GetChild/GetType themselves.
type Base struct {
	typ string
	eng *lowerlayer.Engine
	rct librct.Reactor
	log liblog.Logger

	mu       sync.Mutex
	state    State
	handler  EventHandler
	userData any
}

// NewBase constructs a Base endpoint of the given type tag, driven by
// eng.
func NewBase(typ string, eng *lowerlayer.Engine, rct librct.Reactor, log liblog.Logger) *Base {
	return &Base{typ: typ, eng: eng, rct: rct, log: log}
}

func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Base) SetEventHandler(h EventHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

func (b *Base) SetUserData(v any) {
	b.mu.Lock()
	b.userData = v
	b.mu.Unlock()
}

func (b *Base) UserData() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userData
}

func (b *Base) emit(ev *Event) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(b, ev)
	}
}

func (b *Base) Open(done OpenDone) error {
	b.mu.Lock()
	if b.state != Closed {
		b.mu.Unlock()
		return liberr.New(liberr.Busy, "endpoint already opening or open")
	}
	b.state = Opening
	b.mu.Unlock()

	b.eng.Open(func(err error) {
		b.mu.Lock()
		if err != nil {
			b.state = Closed
		} else {
			b.state = Open
		}
		b.mu.Unlock()

		if err == nil {
			b.eng.Start(lowerlayer.ReadHandlers{
				OnRead: func(p []byte) {
					b.emit(&Event{Kind: Read, Data: p})
				},
				OnExcept: func(p []byte) {
					b.emit(&Event{Kind: Read, Data: p, Aux: []string{"oob"}})
				},
				OnWriteReady: func() {
					b.emit(&Event{Kind: WriteReady})
				},
				OnError: func(err error) {
					if b.log != nil {
						b.log.Error("lower layer error", err, nil)
					}
				},
			})
		}
		if done != nil {
			done(b, err)
		}
	})
	return nil
}

func (b *Base) OpenSync() error {
	w := librct.NewWaiter()
	if err := b.Open(func(_ Endpoint, err error) { w.Done(err) }); err != nil {
		return err
	}
	return w.Wait()
}

func (b *Base) Close(done CloseDone) error {
	b.mu.Lock()
	if b.state == Closed {
		b.mu.Unlock()
		if done != nil {
			done(b)
		}
		return nil
	}
	b.state = Closing
	b.mu.Unlock()

	b.eng.Close(func() {
		b.mu.Lock()
		b.state = Closed
		b.mu.Unlock()
		if done != nil {
			done(b)
		}
	})
	return nil
}

func (b *Base) Write(buf []byte, aux []string) (int, error) {
	oob := false
	for _, a := range aux {
		switch a {
		case "oob":
			oob = true
		default:
			return 0, liberr.New(liberr.Invalid, "unrecognized write aux tag: "+a)
		}
	}
	return b.eng.Write(buf, oob)
}

func (b *Base) SetReadCallbackEnable(enabled bool)  { b.eng.SetReadEnable(enabled) }
func (b *Base) SetWriteCallbackEnable(enabled bool) { b.eng.SetWriteEnable(enabled) }

func (b *Base) Control(depth Depth, op ControlOp, id ControlID, buf []byte) ([]byte, error) {
	if depth != DepthSelf && depth != DepthAll {
		return nil, liberr.New(liberr.Invalid, "base endpoint has no children")
	}
	return b.eng.Control(op, id, buf)
}

func (b *Base) GetType(depth Depth) string {
	if depth != DepthSelf {
		return ""
	}
	return b.typ
}

func (b *Base) GetChild(depth Depth) Endpoint { return nil }

func (b *Base) RAddrToStr(depth Depth) (string, error) {
	if depth != DepthSelf {
		return "", liberr.New(liberr.Invalid, "base endpoint has no children")
	}
	addr := b.eng.RemoteAddr()
	if addr == "" {
		return "", liberr.New(liberr.NotSup, "remote address not available")
	}
	return addr, nil
}
