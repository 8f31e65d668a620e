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

package telnet_test

import (
	"testing"

	libep "github.com/nabbar/gensio/endpoint"
	liberr "github.com/nabbar/gensio/errors"
	libtn "github.com/nabbar/gensio/filter/telnet"
)

type fakeInner struct {
	handler     libep.EventHandler
	lastControl libep.ControlID
}

func (f *fakeInner) Open(done libep.OpenDone) error {
	if done != nil {
		done(f, nil)
	}
	return nil
}
func (f *fakeInner) OpenSync() error { return f.Open(nil) }
func (f *fakeInner) Close(done libep.CloseDone) error {
	if done != nil {
		done(f)
	}
	return nil
}
func (f *fakeInner) Write(buf []byte, aux []string) (int, error) { return len(buf), nil }
func (f *fakeInner) SetReadCallbackEnable(bool)                   {}
func (f *fakeInner) SetWriteCallbackEnable(bool)                  {}
func (f *fakeInner) Control(depth libep.Depth, op libep.ControlOp, id libep.ControlID, buf []byte) ([]byte, error) {
	f.lastControl = id
	return nil, nil
}
func (f *fakeInner) GetType(libep.Depth) string             { return "fake" }
func (f *fakeInner) GetChild(libep.Depth) libep.Endpoint     { return nil }
func (f *fakeInner) RAddrToStr(libep.Depth) (string, error) { return "fake-addr", nil }
func (f *fakeInner) SetEventHandler(h libep.EventHandler)   { f.handler = h }
func (f *fakeInner) SetUserData(any)                        {}
func (f *fakeInner) UserData() any                          { return nil }
func (f *fakeInner) State() libep.State                     { return libep.Open }

func TestSendBreakRequiresRFC2217(t *testing.T) {
	inner := &fakeInner{}
	f := libtn.New(inner, libtn.Options{})
	err := f.SendBreak()
	if err == nil || !liberr.Has(err, liberr.NotSup) {
		t.Fatalf("expected NotSup, got %v", err)
	}
}

func TestSendBreakDelegatesControl(t *testing.T) {
	inner := &fakeInner{}
	f := libtn.New(inner, libtn.Options{RFC2217: true})
	if err := f.SendBreak(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastControl != libep.BREAK {
		t.Fatalf("expected BREAK control, got %v", inner.lastControl)
	}
}

func TestFromTokenOptionsDetectsRFC2217(t *testing.T) {
	o := libtn.FromTokenOptions(map[string]string{"rfc2217": ""})
	if !o.RFC2217 {
		t.Fatal("expected RFC2217 true")
	}
	o2 := libtn.FromTokenOptions(map[string]string{})
	if o2.RFC2217 {
		t.Fatal("expected RFC2217 false")
	}
}
