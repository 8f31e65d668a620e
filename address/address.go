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

// Package address resolves the textual addresses accepted at the CLI
// and endpoint-string surfaces ("host:port", "tcp,host,port",
// "sctp,host,port", "unix,/path", with an optional "bind:" prefix) into
// an ordered, immutable list of candidate socket addresses.
package address

import (
	"context"
	"net"
	"strconv"
	"strings"

	liberr "github.com/nabbar/gensio/errors"
)

// Network names the transport family of a resolved address.
type Network uint8

const (
	TCP Network = iota
	SCTP
	Unix
)

func (n Network) String() string {
	switch n {
	case TCP:
		return "tcp"
	case SCTP:
		return "sctp"
	case Unix:
		return "unix"
	default:
		return "unknown"
	}
}

// Addr is a single resolved candidate, immutable once built.
type Addr struct {
	Net  Network
	Host string // empty for Unix
	Port int    // zero for Unix
	Path string // only for Unix
	Bind string // local bind address, may be empty
	IP   net.IP // resolved IP, nil for Unix or unresolved names
}

// String renders Addr the way it would appear inside a raddr_to_str
// control query.
func (a Addr) String() string {
	switch a.Net {
	case Unix:
		return "unix," + a.Path
	default:
		host := a.Host
		if a.IP != nil {
			host = a.IP.String()
		}
		return a.Net.String() + "," + host + "," + strconv.Itoa(a.Port)
	}
}

// DialNetwork returns the net.Dial-compatible network string ("tcp",
// "unix"); an SCTP address also returns "tcp", since the standard
// library has no SCTP dialer or listener.
func (a Addr) DialNetwork() string {
	switch a.Net {
	case Unix:
		return "unix"
	default:
		return "tcp"
	}
}

// DialAddress returns the net.Dial-compatible address string.
func (a Addr) DialAddress() string {
	if a.Net == Unix {
		return a.Path
	}
	host := a.Host
	if a.IP != nil {
		host = a.IP.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

// List is an ordered, finite, immutable sequence of candidate
// addresses. A List is safe to share; callers that want an independent
// copy should call Clone.
type List struct {
	items []Addr
}

// Len returns the number of candidates.
func (l List) Len() int { return len(l.items) }

// At returns the candidate at index i.
func (l List) At(i int) Addr { return l.items[i] }

// Clone returns a deep, independent copy of the list.
func (l List) Clone() List {
	cp := make([]Addr, len(l.items))
	copy(cp, l.items)
	return List{items: cp}
}

// Parse splits a textual endpoint transport segment ("host:port",
// "tcp,host,port", "sctp,host,port", "unix,/path") optionally prefixed
// by "bind:bindaddr,", and resolves it via the standard resolver,
// producing one Addr per A (IPv4/IPv6) record returned.
func Parse(ctx context.Context, raw string) (List, liberr.Error) {
	var bind string

	s := raw
	if idx := strings.Index(s, "bind:"); idx == 0 {
		rest := s[len("bind:"):]
		comma := strings.Index(rest, ",")
		if comma < 0 {
			return List{}, liberr.New(liberr.Invalid, "malformed bind prefix: "+raw)
		}
		bind = rest[:comma]
		s = rest[comma+1:]
	}

	net_, host, port, path, err := splitForm(s)
	if err != nil {
		return List{}, err
	}

	if net_ == Unix {
		return List{items: []Addr{{Net: Unix, Path: path, Bind: bind}}}, nil
	}

	ips, rerr := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if rerr != nil {
		return List{}, liberr.Wrap(liberr.IO, rerr)
	}

	items := make([]Addr, 0, len(ips))
	for _, ip := range ips {
		items = append(items, Addr{Net: net_, Host: host, Port: port, Bind: bind, IP: ip})
	}
	return List{items: items}, nil
}

// splitForm parses the transport-segment grammar without resolving
// hostnames: "host:port" defaults to tcp; "tcp,host,port" and
// "sctp,host,port" name the transport explicitly; "unix,/path" (or any
// segment starting with "/") is a Unix socket path.
func splitForm(s string) (Network, string, int, string, liberr.Error) {
	if strings.HasPrefix(s, "/") {
		return Unix, "", 0, s, nil
	}

	parts := strings.Split(s, ",")
	switch {
	case len(parts) == 3 && (parts[0] == "tcp" || parts[0] == "sctp"):
		port, perr := strconv.Atoi(parts[2])
		if perr != nil || port < 0 || port > 65535 {
			return 0, "", 0, "", liberr.New(liberr.Invalid, "bad port in "+s)
		}
		n := TCP
		if parts[0] == "sctp" {
			n = SCTP
		}
		return n, parts[1], port, "", nil

	case len(parts) == 2 && parts[0] == "unix":
		return Unix, "", 0, parts[1], nil

	case len(parts) == 1:
		host, portStr, serr := net.SplitHostPort(s)
		if serr != nil {
			return 0, "", 0, "", liberr.Wrap(liberr.Invalid, serr)
		}
		port, perr := strconv.Atoi(portStr)
		if perr != nil || port < 0 || port > 65535 {
			return 0, "", 0, "", liberr.New(liberr.Invalid, "bad port in "+s)
		}
		return TCP, host, port, "", nil

	default:
		return 0, "", 0, "", liberr.New(liberr.Invalid, "unrecognized address form: "+s)
	}
}
