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

// Package endpoint defines the polymorphic stream-endpoint contract
// every transport and filter in this module implements, and supplies
// the Base implementation that filters wrap.
package endpoint

// State is an endpoint's open-state.
type State uint8

const (
	Closed State = iota
	Opening
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "closed"
	}
}

// Endpoint is the uniform polymorphic façade every transport and
// filter in this module exposes.
type Endpoint interface {
	// Open begins asynchronous establishment. Idempotent only while
	// Closed; calling while Opening or Open fails with Busy.
	Open(done OpenDone) error

	// OpenSync blocks until the asynchronous result of Open is known.
	OpenSync() error

	// Close begins asynchronous teardown. done fires once the lower
	// layer's readiness handlers are fully quiesced.
	Close(done CloseDone) error

	// Write is a nonblocking write; partial writes are the norm. aux
	// tags not understood by this endpoint type fail with Invalid.
	Write(buf []byte, aux []string) (int, error)

	SetReadCallbackEnable(enabled bool)
	SetWriteCallbackEnable(enabled bool)

	// Control routes a sideband get/set to the endpoint at depth in
	// the filter stack. DepthSelf targets this endpoint, DepthAll
	// broadcasts to the whole stack, any other value addresses a
	// descendant by 1-based index.
	Control(depth Depth, op ControlOp, id ControlID, buf []byte) ([]byte, error)

	GetType(depth Depth) string
	GetChild(depth Depth) Endpoint
	RAddrToStr(depth Depth) (string, error)

	SetEventHandler(h EventHandler)

	SetUserData(v any)
	UserData() any

	State() State
}
