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

package mux

import (
	"sync"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
)

// Channel is a single demultiplexed sub-stream of a mux Filter. It has
// no child of its own and exists for the lifetime of its parent
// Filter.
type Channel struct {
	parent *Filter
	stream string

	mu       sync.Mutex
	handler  libep.EventHandler
	enabled  bool
	state    libep.State
	userData any
}

func newChannel(parent *Filter, stream string) *Channel {
	return &Channel{parent: parent, stream: stream, state: libep.Open, enabled: true}
}

func (c *Channel) deliver(payload []byte) {
	c.mu.Lock()
	h := c.handler
	enabled := c.enabled
	c.mu.Unlock()
	if h != nil && enabled {
		h(c, &libep.Event{Kind: libep.Read, Data: payload})
	}
}

func (c *Channel) Open(done libep.OpenDone) error {
	if done != nil {
		done(c, nil)
	}
	return nil
}

func (c *Channel) OpenSync() error { return nil }

func (c *Channel) Close(done libep.CloseDone) error {
	c.mu.Lock()
	c.state = libep.Closed
	c.mu.Unlock()
	if done != nil {
		done(c)
	}
	return nil
}

func (c *Channel) Write(buf []byte, aux []string) (int, error) {
	if len(aux) > 0 {
		return 0, liberr.New(liberr.Invalid, "mux channels do not support aux write tags")
	}
	return c.parent.writeFrame(c.stream, buf)
}

func (c *Channel) SetReadCallbackEnable(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

func (c *Channel) SetWriteCallbackEnable(enabled bool) {}

func (c *Channel) Control(depth libep.Depth, op libep.ControlOp, id libep.ControlID, buf []byte) ([]byte, error) {
	if depth != libep.DepthSelf && depth != libep.DepthAll {
		return nil, liberr.New(liberr.Invalid, "mux channel has no children")
	}
	if id == libep.SERVICE && op == libep.Get {
		return []byte(c.stream), nil
	}
	return nil, liberr.New(liberr.NotSup, "control "+id.String()+" not supported on a mux channel")
}

func (c *Channel) GetType(depth libep.Depth) string {
	if depth != libep.DepthSelf {
		return ""
	}
	return "mux-channel"
}

func (c *Channel) GetChild(depth libep.Depth) libep.Endpoint { return nil }

func (c *Channel) RAddrToStr(depth libep.Depth) (string, error) {
	return c.parent.RAddrToStr(libep.DepthSelf)
}

func (c *Channel) SetEventHandler(h libep.EventHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *Channel) SetUserData(v any) {
	c.mu.Lock()
	c.userData = v
	c.mu.Unlock()
}

func (c *Channel) UserData() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userData
}

func (c *Channel) State() libep.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Service returns the channel's stream key (the remote-forward
// service id or local-forward connect-address string).
func (c *Channel) Service() string { return c.stream }
