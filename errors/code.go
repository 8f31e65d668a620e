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

package errors

import "runtime"

// Kind classifies a status value returned by a framework or client
// operation. The zero Kind (Unknown) never escapes New/Newf.
type Kind uint8

const (
	Unknown Kind = iota

	// Invalid marks a malformed argument, unknown filter/option name, or
	// unparseable address.
	Invalid
	// NoMem marks an allocation failure.
	NoMem
	// Busy marks an operation attempted in the wrong lifecycle state
	// (e.g. open() on an endpoint that is already opening).
	Busy
	// IO wraps an underlying syscall/network failure.
	IO
	// NotSup marks an unrecognized control() option.
	NotSup
	// CertNotFound marks a TOFU probe that found no pinned certificate.
	CertNotFound
	// CertInvalid marks a certificate that fails comparison against a pin.
	CertInvalid
	// CertRevoked marks a certificate rejected as revoked.
	CertRevoked
	// CertExpired marks a certificate rejected as expired.
	CertExpired
	// AuthReject marks a user-declined TOFU prompt or failed credential
	// exchange.
	AuthReject
	// KeyInvalid marks a private key that fails the checkout policy
	// (permissions, ownership, unreadable).
	KeyInvalid
	// E2Big marks an address or buffer too large for fixed storage.
	E2Big
	// Pipe marks a peer-closed stream.
	Pipe
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case NoMem:
		return "nomem"
	case Busy:
		return "busy"
	case IO:
		return "io"
	case NotSup:
		return "notsup"
	case CertNotFound:
		return "cert_not_found"
	case CertInvalid:
		return "cert_invalid"
	case CertRevoked:
		return "cert_revoked"
	case CertExpired:
		return "cert_expired"
	case AuthReject:
		return "auth_reject"
	case KeyInvalid:
		return "key_invalid"
	case E2Big:
		return "e2big"
	case Pipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// Error is the classified error interface every framework/client
// operation returns. It extends the standard error with a Kind and an
// optional parent chain, modeled on the teacher's errors.Error but keyed
// to the Kind values this module needs instead of HTTP-like codes.
type Error interface {
	error

	// Kind returns the classification of this error.
	Kind() Kind
	// HasKind reports whether this error, or any parent in its chain,
	// carries Kind k.
	HasKind(k Kind) bool
	// Frame returns the call site that created this error.
	Frame() runtime.Frame
	// Add appends parent errors to this error's chain.
	Add(parent ...error)
	// Unwrap exposes the parent chain to errors.Is/errors.As.
	Unwrap() []error
}
