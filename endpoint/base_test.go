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

package endpoint_test

import (
	"net"
	"testing"
	"time"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
	liblwl "github.com/nabbar/gensio/lowerlayer"
	librct "github.com/nabbar/gensio/reactor"
)

type pipeOps struct {
	src librct.Source
}

func (p *pipeOps) SubOpen() (librct.Source, error)   { return p.src, nil }
func (p *pipeOps) CheckOpen() error                  { return nil }
func (p *pipeOps) RetryOpen() (librct.Source, error) { return nil, liblwl.ErrExhausted }
func (p *pipeOps) Write(b []byte, oob bool) (int, error) {
	return p.src.Write(b)
}
func (p *pipeOps) ExceptReady() ([]byte, error) { return nil, nil }
func (p *pipeOps) Close() error                 { return nil }

func newTestEndpoint(src librct.Source) libep.Endpoint {
	eng := liblwl.New(&pipeOps{src: src}, librct.New(), liblog.New(liblog.ErrorLevel), 256)
	return libep.NewBase("test", eng, librct.New(), liblog.New(liblog.ErrorLevel))
}

func TestOpenSyncThenClose(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	ep := newTestEndpoint(client)
	if err := ep.OpenSync(); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	if ep.State() != libep.Open {
		t.Fatalf("expected Open state, got %v", ep.State())
	}

	done := make(chan struct{})
	if err := ep.Close(func(libep.Endpoint) { close(done) }); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}
	if ep.State() != libep.Closed {
		t.Fatalf("expected Closed state, got %v", ep.State())
	}
}

func TestOpenWhileOpeningFailsBusy(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	ep := newTestEndpoint(client)
	if err := ep.Open(nil); err != nil {
		t.Fatalf("unexpected error on first open: %v", err)
	}
	err := ep.Open(nil)
	if err == nil || !liberr.Has(err, liberr.Busy) {
		t.Fatalf("expected Busy error, got %v", err)
	}
}

func TestWriteRejectsUnknownAuxTag(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	ep := newTestEndpoint(client)
	if err := ep.OpenSync(); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	_, err := ep.Write([]byte("x"), []string{"bogus"})
	if err == nil || !liberr.Has(err, liberr.Invalid) {
		t.Fatalf("expected Invalid error, got %v", err)
	}
}

func TestEventHandlerReceivesRead(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	ep := newTestEndpoint(client)
	got := make(chan string, 1)
	ep.SetEventHandler(func(self libep.Endpoint, ev *libep.Event) {
		if ev.Kind == libep.Read {
			got <- string(ev.Data)
		}
	})
	if err := ep.OpenSync(); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	ep.SetReadCallbackEnable(true)

	go func() { _, _ = server.Write([]byte("ping")) }()

	select {
	case s := <-got:
		if s != "ping" {
			t.Fatalf("expected 'ping', got %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Read event")
	}
}
