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

// Package parser turns an endpoint string such as
// "mux,ssl(CA=/path),tcp,host,port" into a chain of filter tokens
// wrapping a terminal transport token; client.NewSession builds the
// endpoint stack from a Chain.
package parser

import (
	"strings"

	liberr "github.com/nabbar/gensio/errors"
)

// Token is one comma-separated segment: a filter name with optional
// "k=v" options, or (for the rightmost segment(s)) a transport.
type Token struct {
	Name    string
	Options map[string]string
}

// Chain is the parsed result: zero or more filter Tokens (outermost
// first) plus the terminal transport token and its own arguments
// (e.g. ["tcp", "host", "port"] or ["unix", "/path"]).
type Chain struct {
	Filters   []Token
	Transport []string
}

var knownTransports = map[string]int{
	"tcp":       2, // host, port
	"sctp":      2,
	"unix":      1,
	"stdio":     0,
	"serialdev": 1, // devpath
}

// Parse splits raw into a Chain. The first (leftmost) field naming a
// known transport anchors the transport segment and is followed by that
// transport's own arguments; fields after those are not examined.
// Everything to its left is a
// filter token, each of the form "name" or "name(k=v,k=v)". An
// unrecognized filter name anywhere in the chain fails with Invalid.
func Parse(raw string) (Chain, liberr.Error) {
	fields, err := splitTopLevel(raw)
	if err != nil {
		return Chain{}, err
	}
	if len(fields) == 0 {
		return Chain{}, liberr.New(liberr.Invalid, "empty endpoint string")
	}

	transIdx := -1
	for i, f := range fields {
		name := f
		if p := strings.IndexByte(f, '('); p >= 0 {
			name = f[:p]
		}
		if _, ok := knownTransports[name]; ok {
			transIdx = i
			break
		}
	}
	if transIdx < 0 {
		return Chain{}, liberr.New(liberr.Invalid, "no transport segment found in: "+raw)
	}

	transName := fields[transIdx]
	nArgs := knownTransports[transName]
	if transIdx+nArgs >= len(fields) {
		return Chain{}, liberr.New(liberr.Invalid, "truncated transport arguments in: "+raw)
	}

	transport := append([]string{transName}, fields[transIdx+1:transIdx+1+nArgs]...)

	filterFields := fields[:transIdx]
	filters := make([]Token, 0, len(filterFields))
	for _, f := range filterFields {
		tok, terr := parseToken(f)
		if terr != nil {
			return Chain{}, terr
		}
		if !isKnownFilter(tok.Name) {
			return Chain{}, liberr.New(liberr.Invalid, "unrecognized filter: "+tok.Name)
		}
		filters = append(filters, tok)
	}

	return Chain{Filters: filters, Transport: transport}, nil
}

var knownFilters = map[string]bool{
	"telnet":   true,
	"mux":      true,
	"certauth": true,
	"ssl":      true,
}

func isKnownFilter(name string) bool { return knownFilters[name] }

func parseToken(f string) (Token, liberr.Error) {
	p := strings.IndexByte(f, '(')
	if p < 0 {
		return Token{Name: f}, nil
	}
	if !strings.HasSuffix(f, ")") {
		return Token{}, liberr.New(liberr.Invalid, "malformed filter options in: "+f)
	}
	name := f[:p]
	body := f[p+1 : len(f)-1]

	opts := map[string]string{}
	if body != "" {
		for _, kv := range strings.Split(body, ",") {
			if kv == "" {
				continue
			}
			if eq := strings.IndexByte(kv, '='); eq >= 0 {
				opts[kv[:eq]] = kv[eq+1:]
			} else {
				opts[kv] = ""
			}
		}
	}
	return Token{Name: name, Options: opts}, nil
}

// splitTopLevel splits raw on commas that are not nested inside a
// "name(...)" option group: "certauth(a,b=c),tcp,host,port" splits
// into ["certauth(a,b=c)", "tcp", "host", "port"], keeping the
// option group's own comma-separated k=v list intact.
func splitTopLevel(raw string) ([]string, liberr.Error) {
	var fields []string
	depth := 0
	start := 0
	for i, r := range raw {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, liberr.New(liberr.Invalid, "unbalanced parentheses in: "+raw)
			}
		case ',':
			if depth == 0 {
				fields = append(fields, raw[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, liberr.New(liberr.Invalid, "unbalanced parentheses in: "+raw)
	}
	fields = append(fields, raw[start:])
	return fields, nil
}
