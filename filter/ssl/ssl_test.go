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

package ssl_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
	libssl "github.com/nabbar/gensio/filter/ssl"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("unexpected key generation error: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("unexpected cert creation error: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func TestHandshakeEmitsPostCertVerifyAndDeliversRead(t *testing.T) {
	cert := selfSignedCert(t)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	roots := x509.NewCertPool()
	roots.AddCert(leaf)

	server, client := net.Pipe()

	srv := libssl.NewServer(server, cert)
	cli := libssl.NewClient(client, "localhost", roots, tls.Certificate{})

	srvVerify := make(chan *libep.Event, 1)
	srv.SetEventHandler(func(self libep.Endpoint, ev *libep.Event) {})
	cli.SetEventHandler(func(self libep.Endpoint, ev *libep.Event) {
		if ev.Kind == libep.PostCertVerify {
			srvVerify <- ev
		}
	})

	srvDone := make(chan error, 1)
	cliDone := make(chan error, 1)
	go func() { srvDone <- srv.OpenSync() }()
	go func() { cliDone <- cli.OpenSync() }()

	select {
	case err := <-srvDone:
		if err != nil {
			t.Fatalf("unexpected server handshake error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server handshake")
	}
	select {
	case err := <-cliDone:
		if err != nil {
			t.Fatalf("unexpected client handshake error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for client handshake")
	}

	select {
	case ev := <-srvVerify:
		if ev.Err != nil {
			t.Fatalf("unexpected verify error: %v", ev.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PostCertVerify")
	}

	fp, err := cli.FingerprintSHA256()
	if err != nil || len(fp) != 64 {
		t.Fatalf("unexpected fingerprint: %q err=%v", fp, err)
	}
}

func expiredSelfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("unexpected key generation error: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-2 * time.Hour),
		NotAfter:     time.Now().Add(-time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("unexpected cert creation error: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func TestExpiredCertClassifiesAsCertExpired(t *testing.T) {
	cert := expiredSelfSignedCert(t)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	roots := x509.NewCertPool()
	roots.AddCert(leaf)

	server, client := net.Pipe()

	srv := libssl.NewServer(server, cert)
	cli := libssl.NewClient(client, "localhost", roots, tls.Certificate{})

	verify := make(chan *libep.Event, 1)
	srv.SetEventHandler(func(self libep.Endpoint, ev *libep.Event) {})
	cli.SetEventHandler(func(self libep.Endpoint, ev *libep.Event) {
		if ev.Kind == libep.PostCertVerify {
			verify <- ev
		}
	})

	go func() { _ = srv.OpenSync() }()
	go func() { _ = cli.OpenSync() }()

	select {
	case ev := <-verify:
		if ev.Err == nil || !liberr.Has(ev.Err, liberr.CertExpired) {
			t.Fatalf("expected a CertExpired verify error, got: %v", ev.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PostCertVerify")
	}
}

func TestNilRootsSkipsVerificationForPinningPolicy(t *testing.T) {
	cert := selfSignedCert(t)

	server, client := net.Pipe()

	srv := libssl.NewServer(server, cert)
	cli := libssl.NewClient(client, "localhost", nil, tls.Certificate{})

	verify := make(chan *libep.Event, 1)
	srv.SetEventHandler(func(self libep.Endpoint, ev *libep.Event) {})
	cli.SetEventHandler(func(self libep.Endpoint, ev *libep.Event) {
		if ev.Kind == libep.PostCertVerify {
			verify <- ev
		}
	})

	go func() { _ = srv.OpenSync() }()
	go func() { _ = cli.OpenSync() }()

	select {
	case ev := <-verify:
		if ev.Err != nil {
			t.Fatalf("expected nil verify error with a nil root pool, got: %v", ev.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PostCertVerify")
	}

	peer, err := cli.PeerCertificate()
	if err != nil {
		t.Fatalf("unexpected error fetching peer certificate: %v", err)
	}
	if peer.Subject.CommonName != "localhost" {
		t.Fatalf("unexpected peer certificate: %+v", peer.Subject)
	}
}
