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

package endpoint

// EventKind enumerates the callbacks delivered to a user's EventHandler.
type EventKind uint8

const (
	// Read carries newly arrived bytes, with aux tags (e.g. "oob").
	Read EventKind = iota
	// WriteReady signals the endpoint can accept more writes.
	WriteReady
	// NewChannel carries a freshly demultiplexed sub-endpoint (mux).
	NewChannel
	// RequestPassword asks the user to fill an in/out password buffer.
	RequestPassword
	// PostCertVerify is fired by the ssl filter after its own
	// verification pass, carrying the library's verdict for the
	// caller to apply additional trust policy (TOFU pinning).
	PostCertVerify
	// SendBreak notifies of a peer-requested break condition.
	SendBreak
)

func (k EventKind) String() string {
	switch k {
	case Read:
		return "read"
	case WriteReady:
		return "write_ready"
	case NewChannel:
		return "new_channel"
	case RequestPassword:
		return "request_password"
	case PostCertVerify:
		return "postcert_verify"
	case SendBreak:
		return "send_break"
	default:
		return "unknown"
	}
}

// Event is the payload handed to an EventHandler. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Read
	Data []byte
	Aux  []string

	// NewChannel
	Channel Endpoint
	Service string

	// RequestPassword: handler sets Password and Accept.
	Password string
	Accept   bool

	// PostCertVerify
	Err    error
	Reason string
}

// EventHandler is the user callback every endpoint delivers events to.
type EventHandler func(self Endpoint, ev *Event)

// OpenDone is invoked when an asynchronous open completes.
type OpenDone func(self Endpoint, err error)

// CloseDone is invoked once an endpoint's lower layer is fully quiesced.
type CloseDone func(self Endpoint)
