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

// Package errors classifies every status value the framework and the
// gtlssh client return. Every asynchronous operation described by the
// endpoint contract resolves to either a nil Error or one carrying one
// of the Kind values in code.go.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ers is the concrete Error implementation: a classified message with an
// optional parent chain and the call-site frame that created it.
type ers struct {
	k Kind
	m string
	p []error
	f runtime.Frame
}

func (e *ers) Error() string {
	if len(e.p) == 0 {
		return e.m
	}

	s := e.m
	for _, p := range e.p {
		s += ": " + p.Error()
	}

	return s
}

func (e *ers) Unwrap() []error {
	return e.p
}

func (e *ers) Is(target error) bool {
	var o *ers
	if !errors.As(target, &o) {
		return false
	}
	return o.k == e.k
}

func (e *ers) Kind() Kind {
	return e.k
}

func (e *ers) HasKind(k Kind) bool {
	if e.k == k {
		return true
	}
	for _, p := range e.p {
		if Has(p, k) {
			return true
		}
	}
	return false
}

func (e *ers) Frame() runtime.Frame {
	return e.f
}

func (e *ers) Add(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.p = append(e.p, p)
		}
	}
}

func callerFrame() runtime.Frame {
	var pc [1]uintptr
	// skip: Callers, callerFrame, New/Newf
	if n := runtime.Callers(3, pc[:]); n == 0 {
		return runtime.Frame{}
	}
	f, _ := runtime.CallersFrames(pc[:]).Next()
	return f
}

// New builds a classified Error, chaining any given parent errors.
func New(k Kind, msg string, parent ...error) Error {
	e := &ers{k: k, m: msg, f: callerFrame()}
	e.Add(parent...)
	return e
}

// Newf is New with fmt.Sprintf-style formatting of msg.
func Newf(k Kind, format string, args ...any) Error {
	return New(k, fmt.Sprintf(format, args...))
}

// Wrap classifies a plain error (typically a syscall/net error) as k,
// unless it is already a classified Error, in which case it is returned
// unchanged.
func Wrap(k Kind, err error) Error {
	if err == nil {
		return nil
	}
	if e := Get(err); e != nil {
		return e
	}
	return New(k, err.Error())
}

// Is reports whether err is a classified Error.
func Is(err error) bool {
	var e Error
	return errors.As(err, &e)
}

// Get returns err as an Error, or nil if it is not one.
func Get(err error) Error {
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Has reports whether err, or any of its parents, carries Kind k.
func Has(err error, k Kind) bool {
	if e := Get(err); e != nil {
		return e.HasKind(k)
	}
	return false
}
