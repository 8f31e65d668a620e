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

// Package tcp plugs TCP's (and, with a documented fallback, SCTP's)
// connect-side and accept-side operation vector into the lower-layer
// engine, and implements the TCP accepter's reference-counted
// lifecycle.
package tcp

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	libadr "github.com/nabbar/gensio/address"
	liberr "github.com/nabbar/gensio/errors"
	liblwl "github.com/nabbar/gensio/lowerlayer"
	librct "github.com/nabbar/gensio/reactor"
)

// List is the minimal address-list view ConnectOps needs: an ordered
// sequence of dial targets. address.List satisfies it directly.
type List interface {
	Len() int
	At(i int) libadr.Addr
}

// ConnectOps is the Ops vector for the connect side of the TCP
// transport: an ordered address list is tried in turn, matching the
// address-list-fallback invariant (a successful open's remote equals
// the first candidate that accepted a connection, with every earlier
// candidate's descriptor closed exactly once).
type ConnectOps struct {
	list List
	cur  int

	mu      sync.Mutex
	conn    net.Conn
	remote  string
	nodelay bool
}

// NewConnectOps builds a connect-side Ops vector over list. Go's
// net.Dialer performs the nonblocking connect and its SO_ERROR check
// internally, so SubOpen here runs the whole address-list fallback
// loop itself rather than returning lowerlayer.ErrInProgress for the
// engine to drive one candidate at a time (see DESIGN.md).
func NewConnectOps(list List) *ConnectOps {
	return &ConnectOps{list: list}
}

func (c *ConnectOps) SubOpen() (librct.Source, error) {
	c.cur = 0
	return c.tryFrom(c.cur)
}

func (c *ConnectOps) CheckOpen() error { return nil }

func (c *ConnectOps) RetryOpen() (librct.Source, error) {
	c.cur++
	return c.tryFrom(c.cur)
}

func (c *ConnectOps) tryFrom(start int) (librct.Source, error) {
	var lastErr error
	for i := start; i < c.list.Len(); i++ {
		a := c.list.At(i)
		d := net.Dialer{Timeout: 10 * time.Second}
		conn, err := d.DialContext(context.Background(), a.DialNetwork(), a.DialAddress())
		if err != nil {
			lastErr = err
			continue
		}
		c.cur = i
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetKeepAlive(true)
		}
		c.mu.Lock()
		c.conn = conn
		c.remote = a.String()
		c.mu.Unlock()
		return conn, nil
	}
	if lastErr == nil {
		lastErr = liblwl.ErrExhausted
	}
	return nil, liberr.Wrap(liberr.IO, lastErr)
}

// Write hands bytes to the connected socket. oob is honored only for a
// *net.TCPConn, via the out-of-band helper in oob_unix.go; the
// standard library exposes no portable MSG_OOB primitive.
func (c *ConnectOps) Write(p []byte, oob bool) (int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return 0, liberr.New(liberr.IO, "write on unconnected tcp endpoint")
	}
	if oob {
		if tc, ok := conn.(*net.TCPConn); ok {
			return sendOOB(tc, p)
		}
		return 0, liberr.New(liberr.Invalid, "oob write not supported on this connection")
	}
	n, err := conn.Write(p)
	return n, err
}

func (c *ConnectOps) ExceptReady() ([]byte, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, nil
	}
	return recvOOB(tc)
}

func (c *ConnectOps) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *ConnectOps) RemoteAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

func (c *ConnectOps) Control(op liblwl.ControlOp, id liblwl.ControlID, buf []byte) ([]byte, error) {
	if id != liblwl.NODELAY {
		return nil, liberr.New(liberr.NotSup, "control "+id.String()+" not supported by tcp")
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, liberr.New(liberr.NotSup, "NODELAY requires an active tcp connection")
	}
	if op == liblwl.Set {
		on := len(buf) > 0 && strings.TrimSpace(string(buf)) != "0"
		if err := tc.SetNoDelay(on); err != nil {
			return nil, liberr.Wrap(liberr.IO, err)
		}
		c.mu.Lock()
		c.nodelay = on
		c.mu.Unlock()
		return nil, nil
	}
	c.mu.Lock()
	on := c.nodelay
	c.mu.Unlock()
	v := "0"
	if on {
		v = "1"
	}
	return []byte(v), nil
}
