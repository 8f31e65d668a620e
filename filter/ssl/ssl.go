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

// Package ssl implements the "ssl" filter: it wraps a connected net.Conn
// in a crypto/tls client or server connection and, once the handshake
// completes, emits a PostCertVerify event carrying the library's own
// verdict so the caller can layer additional trust policy (TOFU
// pinning) on top. The TLS implementation itself is out of scope here;
// this filter only adapts the standard library's Conn to the endpoint
// contract.
package ssl

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"sync"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
	librct "github.com/nabbar/gensio/reactor"
)

// Source is the connected, already-open connection the ssl filter
// wraps in a TLS client or server handshake; transports expose it as
// their underlying net.Conn once their own Open has completed.
type Source = net.Conn

// Filter wraps a tls.Conn, built over src, as an endpoint.
type Filter struct {
	conn   *tls.Conn
	config *tls.Config
	client bool
	rct    librct.Reactor

	mu       sync.Mutex
	handler  libep.EventHandler
	state    libep.State
	watcher  librct.Watcher
	userData any
}

// NewClient wraps src in a TLS client connection. serverName is used
// for SNI and, when roots is non-nil, certificate chain verification.
// A nil roots skips library-side verification entirely (InsecureSkipVerify),
// handing the peer certificate to the PostCertVerify event with a nil
// Err so a caller-supplied trust policy (TOFU pinning) is the sole
// arbiter — the expected mode here, since TOFU servers present
// self-signed certificates no public root would ever chain to. A zero
// cert omits client certificate authentication at the TLS layer,
// leaving identity to whatever filter sits above (certauth).
func NewClient(src Source, serverName string, roots *x509.CertPool, cert tls.Certificate) *Filter {
	cfg := &tls.Config{ServerName: serverName, RootCAs: roots, InsecureSkipVerify: roots == nil}
	if len(cert.Certificate) > 0 {
		cfg.Certificates = []tls.Certificate{cert}
	}
	return &Filter{conn: tls.Client(src, cfg), config: cfg, client: true, rct: librct.New()}
}

// NewServer wraps src in a TLS server connection using the given
// server certificate chain.
func NewServer(src Source, cert tls.Certificate) *Filter {
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	return &Filter{conn: tls.Server(src, cfg), config: cfg, rct: librct.New()}
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
	f.mu.Lock()
	if f.state != libep.Closed {
		f.mu.Unlock()
		return liberr.New(liberr.Busy, "ssl endpoint already opening or open")
	}
	f.state = libep.Opening
	f.mu.Unlock()

	go func() {
		err := f.conn.Handshake()

		reason := "accepted"
		var verifyErr error
		if err != nil {
			verifyErr = liberr.Wrap(classifyHandshakeError(err), err)
			reason = err.Error()
		}
		f.emit(&libep.Event{Kind: libep.PostCertVerify, Err: verifyErr, Reason: reason})

		f.mu.Lock()
		if err != nil {
			f.state = libep.Closed
		} else {
			f.state = libep.Open
			f.watcher = f.rct.Watch(f.conn, 4096, librct.Handlers{
				OnRead: func(p []byte) { f.emit(&libep.Event{Kind: libep.Read, Data: p}) },
				OnWrite: func() { f.emit(&libep.Event{Kind: libep.WriteReady}) },
				OnError: func(error) {},
			})
		}
		f.mu.Unlock()

		if done != nil {
			done(f, err)
		}
	}()
	return nil
}

func classifyHandshakeError(err error) liberr.Kind {
	var cie x509.CertificateInvalidError
	if errors.As(err, &cie) {
		if cie.Reason == x509.Expired {
			return liberr.CertExpired
		}
		return liberr.CertInvalid
	}
	var uae x509.UnknownAuthorityError
	if errors.As(err, &uae) {
		return liberr.CertNotFound
	}
	return liberr.CertInvalid
}

func (f *Filter) OpenSync() error {
	w := librct.NewWaiter()
	if err := f.Open(func(_ libep.Endpoint, err error) { w.Done(err) }); err != nil {
		return err
	}
	return w.Wait()
}

func (f *Filter) Close(done libep.CloseDone) error {
	f.mu.Lock()
	w := f.watcher
	f.mu.Unlock()

	closeFn := func() {
		err := f.conn.Close()
		f.mu.Lock()
		f.state = libep.Closed
		f.mu.Unlock()
		if done != nil {
			done(f)
		}
		_ = err
	}
	if w != nil {
		w.Stop(closeFn)
	} else {
		closeFn()
	}
	return nil
}

func (f *Filter) Write(buf []byte, aux []string) (int, error) {
	if len(aux) > 0 {
		return 0, liberr.New(liberr.Invalid, "ssl filter does not support write aux tags")
	}
	return f.conn.Write(buf)
}

func (f *Filter) SetReadCallbackEnable(enabled bool) {
	f.mu.Lock()
	w := f.watcher
	f.mu.Unlock()
	if w != nil {
		w.SetReadEnable(enabled)
	}
}

func (f *Filter) SetWriteCallbackEnable(enabled bool) {
	f.mu.Lock()
	w := f.watcher
	f.mu.Unlock()
	if w != nil {
		w.SetWriteEnable(enabled)
	}
}

// FingerprintSHA256 returns the hex-encoded SHA-256 fingerprint of the
// peer's leaf certificate, used for control(CERT_FINGERPRINT).
func (f *Filter) FingerprintSHA256() (string, error) {
	state := f.conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return "", liberr.New(liberr.CertNotFound, "no peer certificate presented")
	}
	sum := sha256.Sum256(state.PeerCertificates[0].Raw)
	return hex.EncodeToString(sum[:]), nil
}

// PeerCertificate returns the peer's leaf certificate, used to compare
// against an on-disk pin.
func (f *Filter) PeerCertificate() (*x509.Certificate, error) {
	state := f.conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, liberr.New(liberr.CertNotFound, "no peer certificate presented")
	}
	return state.PeerCertificates[0], nil
}

func (f *Filter) Control(depth libep.Depth, op libep.ControlOp, id libep.ControlID, buf []byte) ([]byte, error) {
	if depth != libep.DepthSelf && depth != libep.DepthAll {
		return nil, liberr.New(liberr.Invalid, "ssl filter has no children")
	}
	switch id {
	case libep.CERTFingerprint:
		if op != libep.Get {
			return nil, liberr.New(liberr.NotSup, "CERT_FINGERPRINT is read-only")
		}
		s, err := f.FingerprintSHA256()
		return []byte(s), err
	case libep.CERT:
		if op != libep.Get {
			return nil, liberr.New(liberr.NotSup, "CERT is read-only")
		}
		cert, err := f.PeerCertificate()
		if err != nil {
			return nil, err
		}
		return cert.Raw, nil
	default:
		return nil, liberr.New(liberr.NotSup, fmt.Sprintf("control %s not supported by ssl", id))
	}
}

func (f *Filter) GetType(depth libep.Depth) string {
	if depth != libep.DepthSelf {
		return ""
	}
	return "ssl"
}

func (f *Filter) GetChild(depth libep.Depth) libep.Endpoint { return nil }

func (f *Filter) RAddrToStr(depth libep.Depth) (string, error) {
	if depth != libep.DepthSelf {
		return "", liberr.New(liberr.Invalid, "ssl filter has no children")
	}
	return f.conn.RemoteAddr().String(), nil
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

func (f *Filter) State() libep.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
