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

// Package atomic provides small generic lock-free building blocks used by
// the framework's concurrent state: the TCP accepter's reference count
// and enabled bit, and the window-change-signal sending/pending
// reentrancy pair.
package atomic

import "sync/atomic"

// Value is a type-safe wrapper over atomic.Value.
type Value[T any] struct {
	v atomic.Value
}

type box[T any] struct {
	t T
}

// Load returns the current value, or the zero value of T if never Stored.
func (o *Value[T]) Load() T {
	if b, ok := o.v.Load().(box[T]); ok {
		return b.t
	}
	var zero T
	return zero
}

// Store sets the current value.
func (o *Value[T]) Store(val T) {
	o.v.Store(box[T]{t: val})
}

// Flag is a lock-free boolean, used for one-shot reentrancy guards such
// as a window-change signal's sending/pending pair.
type Flag struct {
	v atomic.Bool
}

// Set sets the flag and returns the previous value.
func (f *Flag) Set(val bool) (previous bool) {
	return f.v.Swap(val)
}

// Get returns the current value.
func (f *Flag) Get() bool {
	return f.v.Load()
}

// Counter is a lock-free reference counter, used for the TCP accepter's
// refcount.
type Counter struct {
	v atomic.Int64
}

// Add adds delta (may be negative) and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	return c.v.Add(delta)
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	return c.v.Load()
}
