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

package client

import (
	"strconv"
	"strings"

	liberr "github.com/nabbar/gensio/errors"
)

// PortSpec is a parsed -L/-R argument: an accept-side address string
// and a connect-side address string, both already in the
// "type,host,port" / "unix,path" form filter/parser and address.Parse
// understand.
type PortSpec struct {
	AccepterStr  string
	ConnecterStr string
}

// ParsePortSpec splits a colon-separated -L/-R value into its accept
// and connect halves, following the same field-counting rules as the
// original tool: up to 4 colon-separated fields, a leading "/" marks a
// Unix socket path (which may only be the last field of its half), and
// a 4-field form implies a bind address on the accept side.
func ParsePortSpec(raw string) (PortSpec, liberr.Error) {
	fields := strings.Split(raw, ":")
	if len(fields) > 4 {
		return PortSpec{}, liberr.New(liberr.Invalid, "too many fields in port spec: "+raw)
	}
	if len(fields) < 2 {
		return PortSpec{}, liberr.New(liberr.Invalid, "not enough fields in port spec: "+raw)
	}

	n := len(fields)
	hasBind := false
	switch {
	case fields[n-1][0:1] == "/":
		if fields[0][0:1] == "/" {
			if n > 2 {
				return PortSpec{}, liberr.New(liberr.Invalid, "too many fields in port spec: "+raw)
			}
		} else if n > 3 {
			return PortSpec{}, liberr.New(liberr.Invalid, "too many fields in port spec: "+raw)
		} else if n == 3 {
			hasBind = true
		}
	case fields[0][0:1] == "/":
		if n > 3 {
			return PortSpec{}, liberr.New(liberr.Invalid, "too many fields in port spec: "+raw)
		}
	case n < 3:
		return PortSpec{}, liberr.New(liberr.Invalid, "not enough fields in port spec: "+raw)
	case n == 4:
		hasBind = true
	}

	pos := 0
	var accepter string
	switch {
	case hasBind:
		typ, port, err := validatePort(fields[pos+1], raw)
		if err != nil {
			return PortSpec{}, err
		}
		accepter = typ + "," + fields[pos] + "," + port
		pos += 2
	case fields[pos][0:1] == "/":
		accepter = "unix," + fields[pos]
		pos++
	default:
		typ, port, err := validatePort(fields[pos], raw)
		if err != nil {
			return PortSpec{}, err
		}
		accepter = typ + "," + port
		pos++
	}

	var connecter string
	if fields[pos][0:1] == "/" {
		connecter = "unix," + fields[pos]
	} else {
		if pos+1 >= n {
			return PortSpec{}, liberr.New(liberr.Invalid, "not enough fields in port spec: "+raw)
		}
		typ, port, err := validatePort(fields[pos+1], raw)
		if err != nil {
			return PortSpec{}, err
		}
		connecter = typ + "," + fields[pos] + "," + port
	}

	return PortSpec{AccepterStr: accepter, ConnecterStr: connecter}, nil
}

// validatePort strips an optional "tcp,"/"sctp," prefix from field,
// validates the remainder is a numeric port in [0,65535], and returns
// the resolved transport keyword alongside the bare port string.
func validatePort(field, raw string) (string, string, liberr.Error) {
	typ := "tcp"
	port := field
	switch {
	case strings.HasPrefix(field, "tcp,"):
		port = field[4:]
	case strings.HasPrefix(field, "sctp,"):
		port = field[5:]
		typ = "sctp"
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return "", "", liberr.New(liberr.Invalid, "invalid port given in: "+raw)
	}
	return typ, port, nil
}
