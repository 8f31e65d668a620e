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

package address_test

import (
	"context"
	"testing"

	libadr "github.com/nabbar/gensio/address"
	liberr "github.com/nabbar/gensio/errors"
)

func TestParseUnixPath(t *testing.T) {
	l, err := libadr.Parse(context.Background(), "/tmp/sock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Len() != 1 || l.At(0).Net != libadr.Unix || l.At(0).Path != "/tmp/sock" {
		t.Fatalf("unexpected result: %+v", l.At(0))
	}
}

func TestParseUnixForm(t *testing.T) {
	l, err := libadr.Parse(context.Background(), "unix,/var/run/gtlssh.sock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.At(0).Path != "/var/run/gtlssh.sock" {
		t.Fatalf("unexpected path: %q", l.At(0).Path)
	}
}

func TestParseTCPForm(t *testing.T) {
	l, err := libadr.Parse(context.Background(), "tcp,127.0.0.1,22000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected exactly one candidate for a literal IP, got %d", l.Len())
	}
	if l.At(0).Net != libadr.TCP || l.At(0).Port != 22000 {
		t.Fatalf("unexpected candidate: %+v", l.At(0))
	}
}

func TestParseSCTPForm(t *testing.T) {
	l, err := libadr.Parse(context.Background(), "sctp,127.0.0.1,9000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.At(0).Net != libadr.SCTP {
		t.Fatalf("expected sctp network")
	}
}

func TestParseHostPortDefaultsTCP(t *testing.T) {
	l, err := libadr.Parse(context.Background(), "127.0.0.1:22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.At(0).Net != libadr.TCP || l.At(0).Port != 22 {
		t.Fatalf("unexpected candidate: %+v", l.At(0))
	}
}

func TestParseBindPrefix(t *testing.T) {
	l, err := libadr.Parse(context.Background(), "bind:10.0.0.5,tcp,127.0.0.1,2000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.At(0).Bind != "10.0.0.5" {
		t.Fatalf("unexpected bind: %q", l.At(0).Bind)
	}
}

func TestParseBadPortIsInvalid(t *testing.T) {
	_, err := libadr.Parse(context.Background(), "tcp,127.0.0.1,99999")
	if err == nil || !liberr.Has(err, liberr.Invalid) {
		t.Fatalf("expected Invalid error, got %v", err)
	}
}

func TestParseUnrecognizedFormIsInvalid(t *testing.T) {
	_, err := libadr.Parse(context.Background(), "sctp,onlyonefield")
	if err == nil || !liberr.Has(err, liberr.Invalid) {
		t.Fatalf("expected Invalid error, got %v", err)
	}
}

func TestAddrStringRendersTransportForm(t *testing.T) {
	a := libadr.Addr{Net: libadr.TCP, Host: "example.com", Port: 22}
	if got := a.String(); got != "tcp,example.com,22" {
		t.Fatalf("unexpected String(): %q", got)
	}
}

func TestClonePreservesLength(t *testing.T) {
	l, err := libadr.Parse(context.Background(), "tcp,127.0.0.1,22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cp := l.Clone()
	if cp.Len() != l.Len() {
		t.Fatalf("clone length mismatch")
	}
}
