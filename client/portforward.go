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

package client

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"sync"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
	libmux "github.com/nabbar/gensio/filter/mux"
)

// netTarget turns an accepter_str/connecter_str ("tcp,host,port" /
// "tcp,port" / "unix,/path") into a net.Listen/net.Dial-compatible
// (network, address) pair. SCTP targets use TCP, since the standard
// library has no SCTP support.
func netTarget(s string) (network, address string, err liberr.Error) {
	parts := strings.Split(s, ",")
	switch parts[0] {
	case "unix":
		if len(parts) != 2 {
			return "", "", liberr.New(liberr.Invalid, "malformed unix target: "+s)
		}
		return "unix", parts[1], nil
	case "tcp", "sctp":
		switch len(parts) {
		case 2:
			return "tcp", net.JoinHostPort("", parts[1]), nil
		case 3:
			return "tcp", net.JoinHostPort(parts[1], parts[2]), nil
		default:
			return "", "", liberr.New(liberr.Invalid, "malformed tcp target: "+s)
		}
	default:
		return "", "", liberr.New(liberr.Invalid, "unrecognized target: "+s)
	}
}

// RemotePort is a remote-forward record (RP in the data model): a
// monotonic 4-digit service id, the accepter description sent OOB to
// the peer, and the local connecter string dialed whenever the peer
// opens a mux channel addressed by that service id.
type RemotePort struct {
	ID           string
	AccepterStr  string
	ConnecterStr string
}

// PortForwarder owns the session's local and remote forwarding state
// and shuttles bytes once forwards are established; the remote-port
// table is built before the session starts and treated as immutable
// thereafter (§5).
type PortForwarder struct {
	mux *libmux.Filter
	log liblog.Logger

	mu      sync.Mutex
	remotes []RemotePort
	nextID  int

	listeners []net.Listener
}

// NewPortForwarder constructs a forwarder shuttling bytes over m's
// sub-channels.
func NewPortForwarder(m *libmux.Filter, log liblog.Logger) *PortForwarder {
	return &PortForwarder{mux: m, log: log}
}

// AddLocalForward opens a local listener for spec.AccepterStr; each
// accepted connection asks the remote to open a new mux channel whose
// service string is spec.ConnecterStr, then shuttles bytes both ways
// until either side closes (§4.7 local forward).
func (p *PortForwarder) AddLocalForward(spec PortSpec) liberr.Error {
	network, address, err := netTarget(spec.AccepterStr)
	if err != nil {
		return err
	}
	ln, lerr := net.Listen(network, address)
	if lerr != nil {
		return liberr.Wrap(liberr.IO, lerr)
	}

	p.mu.Lock()
	p.listeners = append(p.listeners, ln)
	p.mu.Unlock()

	go func() {
		for {
			conn, aerr := ln.Accept()
			if aerr != nil {
				return
			}
			go p.shuttleLocal(conn, spec.ConnecterStr)
		}
	}()
	return nil
}

func (p *PortForwarder) shuttleLocal(conn net.Conn, service string) {
	defer conn.Close()
	ch := p.mux.OpenChannel(service)
	ch.SetEventHandler(func(_ libep.Endpoint, ev *libep.Event) {
		if ev.Kind == libep.Read {
			_, _ = conn.Write(ev.Data)
		}
	})
	ch.SetReadCallbackEnable(true)

	buf := make([]byte, 32*1024)
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			if _, werr := ch.Write(buf[:n], nil); werr != nil {
				break
			}
		}
		if rerr != nil {
			break
		}
	}
	_ = ch.Close(nil)
}

// AddRemoteForward allocates the next 4-digit service id for spec and
// records it in the remote-port table; the OOB frame itself is sent by
// SendRemoteForwardFrames once the session transport is up.
func (p *PortForwarder) AddRemoteForward(spec PortSpec) RemotePort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	rp := RemotePort{ID: fmt.Sprintf("%04d", p.nextID%10000), AccepterStr: spec.AccepterStr, ConnecterStr: spec.ConnecterStr}
	p.remotes = append(p.remotes, rp)
	return rp
}

// RemoteForwardFrame builds the "register remote forward" OOB frame
// (§4.10, resolved from the original's add_remote_port): 'r' ' ' ' ' +
// a big-endian u16 body length + the 4-digit ascii id + the accepter
// string + a trailing NUL. body length covers everything after the
// 2-byte length field: id + accepter string + NUL.
func RemoteForwardFrame(rp RemotePort) []byte {
	body := rp.ID + rp.AccepterStr + "\x00"
	frame := make([]byte, 3+2+len(body))
	frame[0], frame[1], frame[2] = 'r', ' ', ' '
	binary.BigEndian.PutUint16(frame[3:5], uint16(len(body)))
	copy(frame[5:], body)
	return frame
}

// SendRemoteForwardFrames writes one RemoteForwardFrame per registered
// remote forward over sess's OOB-tagged write, once the session
// transport is established.
func (p *PortForwarder) SendRemoteForwardFrames(write func(frame []byte) error) liberr.Error {
	p.mu.Lock()
	remotes := append([]RemotePort(nil), p.remotes...)
	p.mu.Unlock()

	for _, rp := range remotes {
		if err := write(RemoteForwardFrame(rp)); err != nil {
			return liberr.Wrap(liberr.IO, err)
		}
	}
	return nil
}

// HandleNewChannel matches an incoming mux NEW_CHANNEL event's service
// string against the remote-port table and, on a match, dials the
// recorded connecter string and shuttles bytes; used for remote
// forwards, where the peer opens the channel after accepting a
// connection on the accepter it was told to create.
func (p *PortForwarder) HandleNewChannel(ch *libmux.Channel) {
	p.mu.Lock()
	var matched *RemotePort
	for i := range p.remotes {
		if p.remotes[i].ID == ch.Service() {
			matched = &p.remotes[i]
			break
		}
	}
	p.mu.Unlock()
	if matched == nil {
		return
	}

	network, address, err := netTarget(matched.ConnecterStr)
	if err != nil {
		if p.log != nil {
			p.log.Error("remote forward: bad connecter string", err, nil)
		}
		return
	}
	conn, derr := net.Dial(network, address)
	if derr != nil {
		if p.log != nil {
			p.log.Error("remote forward: dial failed", derr, nil)
		}
		return
	}

	ch.SetEventHandler(func(_ libep.Endpoint, ev *libep.Event) {
		if ev.Kind == libep.Read {
			_, _ = conn.Write(ev.Data)
		}
	})
	ch.SetReadCallbackEnable(true)

	go func() {
		defer conn.Close()
		buf := make([]byte, 32*1024)
		for {
			n, rerr := conn.Read(buf)
			if n > 0 {
				if _, werr := ch.Write(buf[:n], nil); werr != nil {
					break
				}
			}
			if rerr != nil {
				break
			}
		}
		_ = ch.Close(nil)
	}()
}

// Close tears down every local listener this forwarder opened.
func (p *PortForwarder) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ln := range p.listeners {
		_ = ln.Close()
	}
}
