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

package lowerlayer_test

import (
	"net"
	"testing"
	"time"

	liblog "github.com/nabbar/gensio/logger"
	liblwl "github.com/nabbar/gensio/lowerlayer"
	librct "github.com/nabbar/gensio/reactor"
)

type fakeOps struct {
	src     librct.Source
	closed  bool
	nodelay bool
}

func (f *fakeOps) SubOpen() (librct.Source, error)  { return f.src, nil }
func (f *fakeOps) CheckOpen() error                 { return nil }
func (f *fakeOps) RetryOpen() (librct.Source, error) { return nil, liblwl.ErrExhausted }
func (f *fakeOps) Write(p []byte, oob bool) (int, error) {
	return f.src.Write(p)
}
func (f *fakeOps) ExceptReady() ([]byte, error) { return nil, nil }
func (f *fakeOps) Close() error {
	f.closed = true
	return nil
}

func (f *fakeOps) Control(op liblwl.ControlOp, id liblwl.ControlID, buf []byte) ([]byte, error) {
	if id == liblwl.NODELAY && op == liblwl.Set {
		f.nodelay = true
		return nil, nil
	}
	return nil, nil
}

func TestEngineOpenStartReadWriteClose(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	ops := &fakeOps{src: client}
	eng := liblwl.New(ops, librct.New(), liblog.New(liblog.ErrorLevel), 256)

	openDone := make(chan error, 1)
	eng.Open(func(err error) { openDone <- err })

	select {
	case err := <-openDone:
		if err != nil {
			t.Fatalf("unexpected open error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for open")
	}

	readCh := make(chan []byte, 1)
	eng.Start(liblwl.ReadHandlers{
		OnRead: func(p []byte) { readCh <- p },
	})
	eng.SetReadEnable(true)

	go func() { _, _ = server.Write([]byte("hi")) }()

	select {
	case p := <-readCh:
		if string(p) != "hi" {
			t.Fatalf("expected 'hi', got %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read")
	}

	serverRead := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		serverRead <- string(buf[:n])
	}()

	writeDone := make(chan struct{})
	var n int
	var werr error
	go func() {
		n, werr = eng.Write([]byte("ok"), false)
		close(writeDone)
	}()

	select {
	case got := <-serverRead:
		if got != "ok" {
			t.Fatalf("expected 'ok', got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server read")
	}
	<-writeDone
	if werr != nil || n != 2 {
		t.Fatalf("unexpected write result: n=%d err=%v", n, werr)
	}

	if _, err := eng.Control(liblwl.Set, liblwl.NODELAY, nil); err != nil {
		t.Fatalf("unexpected control error: %v", err)
	}
	if !ops.nodelay {
		t.Fatalf("expected NODELAY to be set")
	}

	closeDone := make(chan struct{})
	eng.Close(func() { close(closeDone) })

	select {
	case <-closeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}
	if !ops.closed {
		t.Fatalf("expected ops.Close to have been called")
	}
}
