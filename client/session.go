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
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	libcertauth "github.com/nabbar/gensio/filter/certauth"
	libmux "github.com/nabbar/gensio/filter/mux"
	libparser "github.com/nabbar/gensio/filter/parser"
	libssl "github.com/nabbar/gensio/filter/ssl"
	libtelnet "github.com/nabbar/gensio/filter/telnet"

	libadr "github.com/nabbar/gensio/address"
	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
	liblwl "github.com/nabbar/gensio/lowerlayer"
	librct "github.com/nabbar/gensio/reactor"
	liblocal "github.com/nabbar/gensio/transport/local"
	libtcp "github.com/nabbar/gensio/transport/tcp"
)

// Session ties a Config, the stacked endpoint it describes, and the
// ancillary client-side machinery (TOFU verification, port forwarding,
// window-change propagation) into one open/run/close lifecycle (§7).
type Session struct {
	cfg *Config

	ep    libep.Endpoint
	sess  libep.Endpoint // the session's own mux channel, or ep itself without mux
	ssl   *libssl.Filter
	mux   *libmux.Filter
	tofu  *TOFU
	fwd   *PortForwarder
	tty   *TTY
	winch *WinchSignaller

	mu       sync.Mutex
	closed   bool
	closeErr error
	done     chan struct{}
}

// Connect builds and opens a Session with a one-shot transport
// fallback: the endpoint string names the sctp transport first unless
// --nosctp, and a failed open retries once with tcp unless --notcp.
// The sctp transport dials over TCP (see address.Addr.DialNetwork), so
// no SCTP association is attempted.
// cert is the client's own TLS certificate (from DiscoverCredentials),
// presented during the ssl filter's handshake.
func Connect(cfg *Config, tofu *TOFU, cert tls.Certificate) (*Session, liberr.Error) {
	transport := "tcp"
	if !cfg.NoSCTP {
		transport = "sctp"
	}

	sess, err := NewSession(cfg, tofu, transport, cert)
	if err != nil {
		return nil, err
	}
	if operr := sess.Open(); operr != nil {
		if transport != "sctp" || cfg.NoTCP {
			return nil, operr
		}
		fallback, ferr := NewSession(cfg, tofu, "tcp", cert)
		if ferr != nil {
			return nil, ferr
		}
		if operr2 := fallback.Open(); operr2 != nil {
			return nil, operr2
		}
		return fallback, nil
	}
	return sess, nil
}

// NewSession builds (but does not open) the endpoint stack described by
// cfg.EndpointString(transport), wiring tofu into the ssl filter's
// PostCertVerify event once the handshake completes and presenting
// cert as the client's own TLS identity.
func NewSession(cfg *Config, tofu *TOFU, transport string, cert tls.Certificate) (*Session, liberr.Error) {
	log := cfg.logger()

	chain, perr := libparser.Parse(cfg.EndpointString(transport))
	if perr != nil {
		return nil, perr
	}

	s := &Session{cfg: cfg, tofu: tofu, done: make(chan struct{})}

	filters := chain.Filters
	var inner libep.Endpoint

	if isLocalTransport(chain.Transport[0]) {
		if n := len(filters); n > 0 && filters[n-1].Name == "ssl" {
			return nil, liberr.New(liberr.Invalid, "ssl cannot be stacked over a local stdio/serialdev transport")
		}
		ops, lerr := newLocalOps(chain.Transport)
		if lerr != nil {
			return nil, lerr
		}
		eng := liblwl.New(ops, librct.New(), log, 0)
		inner = libep.NewBase(transport, eng, librct.New(), log)
	} else {
		addrs, aerr := libadr.Parse(context.Background(), strings.Join(chain.Transport, ","))
		if aerr != nil {
			return nil, aerr
		}

		if n := len(filters); n > 0 && filters[n-1].Name == "ssl" {
			conn, derr := dialFirst(addrs)
			if derr != nil {
				return nil, derr
			}
			roots, rerr := caPoolFromOption(filters[n-1].Options)
			if rerr != nil {
				return nil, rerr
			}
			s.ssl = libssl.NewClient(conn, cfg.Host, roots, cert)
			inner = s.ssl
			filters = filters[:n-1]
		} else {
			ops := libtcp.NewConnectOps(addrs)
			eng := liblwl.New(ops, librct.New(), log, 0)
			inner = libep.NewBase(transport, eng, librct.New(), log)
		}
	}

	for i := len(filters) - 1; i >= 0; i-- {
		tok := filters[i]
		switch tok.Name {
		case "mux":
			m := libmux.New(inner)
			s.mux = m
			inner = m
		case "certauth":
			inner = libcertauth.New(inner, libcertauth.FromTokenOptions(tok.Options))
		case "telnet":
			inner = libtelnet.New(inner, libtelnet.FromTokenOptions(tok.Options))
		default:
			return nil, liberr.New(liberr.Invalid, "unsupported filter in endpoint string: "+tok.Name)
		}
	}

	s.ep = inner
	s.ep.SetEventHandler(s.onEvent)

	if s.mux != nil {
		s.sess = s.mux.OpenChannel(cfg.Service())
		s.sess.SetEventHandler(s.onSessionEvent)
	} else {
		s.sess = s.ep
	}

	s.fwd = NewPortForwarder(s.mux, log)
	for _, raw := range cfg.LocalForwards {
		spec, serr := ParsePortSpec(raw)
		if serr != nil {
			return nil, serr
		}
		if err := s.fwd.AddLocalForward(spec); err != nil {
			return nil, err
		}
	}
	for _, raw := range cfg.RemoteForwards {
		spec, serr := ParsePortSpec(raw)
		if serr != nil {
			return nil, serr
		}
		s.fwd.AddRemoteForward(spec)
	}

	return s, nil
}

// isLocalTransport reports whether kind names one of the non-dialed
// transport tokens (§6 grammar: "stdio"[(opts)] | "serialdev",devpath)
// that bypass address resolution entirely.
func isLocalTransport(kind string) bool {
	return kind == "stdio" || kind == "serialdev"
}

// newLocalOps builds the Ops vector for a "stdio" or "serialdev,path"
// transport segment.
func newLocalOps(transport []string) (liblwl.Ops, liberr.Error) {
	switch transport[0] {
	case "stdio":
		return liblocal.NewStdioOps(), nil
	case "serialdev":
		return liblocal.NewSerialDevOps(transport[1]), nil
	default:
		return nil, liberr.New(liberr.Invalid, "not a local transport: "+transport[0])
	}
}

// caPoolFromOption builds the root pool for the ssl filter's
// CA=/path/to/file.pem endpoint-string option (§4.5); absent the
// option, nil roots are returned and the ssl filter falls back to
// InsecureSkipVerify, leaving trust entirely to the TOFU pin compare.
func caPoolFromOption(opts map[string]string) (*x509.CertPool, liberr.Error) {
	path := opts["CA"]
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, liberr.Wrap(liberr.CertNotFound, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, liberr.New(liberr.CertInvalid, "no usable certificate found in CA file: "+path)
	}
	return pool, nil
}

// dialFirst connects to the first address in list that accepts,
// mirroring transport/tcp.ConnectOps' fallback loop but returning a
// bare net.Conn for the ssl filter to wrap directly (§4.3: ssl sits
// adjacent to the raw transport, not above a lowerlayer endpoint).
func dialFirst(list libadr.List) (net.Conn, liberr.Error) {
	ops := libtcp.NewConnectOps(list)
	src, err := ops.SubOpen()
	if err != nil {
		return nil, liberr.Wrap(liberr.IO, err)
	}
	conn, ok := src.(net.Conn)
	if !ok {
		return nil, liberr.New(liberr.Invalid, "transport source is not a net.Conn")
	}
	return conn, nil
}

// writeOOB delivers an out-of-band control frame (window size, remote
// forward registration). When mux is stacked, the module's CBOR
// framing has no side channel separate from its default stream, so OOB
// frames travel as ordinary payload on mux's unnamed ("") stream
// instead; without mux they use the transport's own aux="oob" tag.
func (s *Session) writeOOB(frame []byte) error {
	if s.mux != nil {
		_, err := s.mux.Write(frame, nil)
		return err
	}
	_, err := s.ep.Write(frame, []string{"oob"})
	return err
}

// onSessionEvent handles traffic on the session's own mux channel
// (opened with service cfg.Service()); only meaningful when mux is
// stacked, since otherwise s.sess is s.ep and onEvent covers Read too.
func (s *Session) onSessionEvent(_ libep.Endpoint, ev *libep.Event) {
	if ev.Kind == libep.Read {
		_, _ = os.Stdout.Write(ev.Data)
	}
}

func (s *Session) onEvent(_ libep.Endpoint, ev *libep.Event) {
	switch ev.Kind {
	case libep.Read:
		_, _ = os.Stdout.Write(ev.Data)
	case libep.RequestPassword:
		s.handlePasswordRequest(ev)
	case libep.PostCertVerify:
		s.handlePostCertVerify(ev)
	case libep.NewChannel:
		if ch, ok := ev.Channel.(*libmux.Channel); ok && s.fwd != nil {
			s.fwd.HandleNewChannel(ch)
		}
	}
}

func (s *Session) handlePasswordRequest(ev *libep.Event) {
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", s.cfg.Username, s.cfg.Host)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		ev.Accept = false
		return
	}
	ev.Password = string(pw)
	ev.Accept = true
}

func (s *Session) handlePostCertVerify(ev *libep.Event) {
	if s.ssl == nil || s.tofu == nil {
		return
	}
	peer, perr := s.ssl.PeerCertificate()
	if perr != nil {
		s.abort(liberr.Wrap(liberr.CertNotFound, perr))
		return
	}
	if verr := s.tofu.Verify(peer, ev.Err); verr != nil {
		s.abort(verr)
	}
}

// abort records the first fatal error observed asynchronously and
// begins a clean shutdown of the endpoint stack (§7: any endpoint
// error maps to a user-visible error and initiates close on both
// sides).
func (s *Session) abort(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = err
	s.mu.Unlock()

	fmt.Fprintf(os.Stderr, "gtlssh: %v\n", err)
	_ = s.ep.Close(func(libep.Endpoint) { close(s.done) })
}

// Open establishes the transport and filter stack and, once up, sends
// any queued remote-forward registration frames.
func (s *Session) Open() liberr.Error {
	if err := s.ep.OpenSync(); err != nil {
		if e, ok := err.(liberr.Error); ok {
			return e
		}
		return liberr.Wrap(liberr.IO, err)
	}
	s.ep.SetReadCallbackEnable(true)
	s.sess.SetReadCallbackEnable(true)

	if s.fwd != nil {
		if err := s.fwd.SendRemoteForwardFrames(s.writeOOB); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the interactive session: raw-mode stdin is copied to the
// endpoint, WINCH changes are propagated, and Run blocks until the
// endpoint closes or the copy loop hits EOF.
func (s *Session) Run() error {
	tty, terr := OpenTTY()
	if terr != nil {
		return terr
	}
	s.tty = tty
	defer tty.Close()

	if tty.IsTerminal() {
		s.winch = NewWinchSignaller(tty, s.writeOOB)
		s.winch.Watch()
		defer s.winch.Stop()
	}

	go s.copyStdin()

	<-s.done

	s.mu.Lock()
	err := s.closeErr
	s.mu.Unlock()
	return err
}

// escapeExit reports whether buf ends in the escape sequence that
// requests a local disconnect: the configured escape character
// followed by '.', matching the interactive convention the escchar
// flag exists to customize. Disabled entirely when EscChar is -1.
func (s *Session) escapeExit(buf []byte) bool {
	if s.cfg.EscChar < 0 || len(buf) < 2 {
		return false
	}
	last := len(buf) - 1
	return buf[last] == '.' && buf[last-1] == byte(s.cfg.EscChar)
}

func (s *Session) copyStdin() {
	buf := make([]byte, 4096)
	for {
		n, rerr := os.Stdin.Read(buf)
		if n > 0 {
			if s.escapeExit(buf[:n]) {
				_ = s.ep.Close(func(libep.Endpoint) {
					s.mu.Lock()
					closed := s.closed
					s.closed = true
					s.mu.Unlock()
					if !closed {
						close(s.done)
					}
				})
				return
			}
			if _, werr := s.sess.Write(buf[:n], nil); werr != nil {
				s.abort(werr)
				return
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				s.abort(liberr.Wrap(liberr.IO, rerr))
			} else {
				_ = s.ep.Close(func(libep.Endpoint) {
					s.mu.Lock()
					closed := s.closed
					s.closed = true
					s.mu.Unlock()
					if !closed {
						close(s.done)
					}
				})
			}
			return
		}
	}
}

// Close tears down port forwarding listeners and the endpoint stack.
func (s *Session) Close() {
	if s.fwd != nil {
		s.fwd.Close()
	}
	_ = s.ep.Close(nil)
}
