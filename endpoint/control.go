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

import "github.com/nabbar/gensio/lowerlayer"

// ControlOp, ControlID and Controller are aliases onto the lowerlayer
// package's types: the Ops vector a transport plugs into its Engine is
// the same value a Base endpoint's Control() delegates to, so both
// packages must agree on identical types rather than look-alikes.
type (
	ControlOp  = lowerlayer.ControlOp
	ControlID  = lowerlayer.ControlID
	Controller = lowerlayer.Controller
)

const (
	Get = lowerlayer.Get
	Set = lowerlayer.Set

	NODELAY         = lowerlayer.NODELAY
	CERT            = lowerlayer.CERT
	CERTFingerprint = lowerlayer.CERTFingerprint
	SERVICE         = lowerlayer.SERVICE
	BREAK           = lowerlayer.BREAK
)

// Depth selects which endpoint in a filter stack a control() call
// targets: DepthSelf is the endpoint itself, DepthAll broadcasts to
// every endpoint in the stack, any other value is a 1-based child
// index (1 = immediate child, 2 = grandchild, ...).
type Depth int

const (
	DepthSelf Depth = 0
	DepthAll  Depth = -1
)
