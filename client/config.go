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

// Package client implements gtlssh: a TLS-secured remote shell built on
// the endpoint framework, with trust-on-first-use server certificate
// pinning and local/remote port forwarding.
package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
)

// Config is the client's module-level state (spec'd as global in the
// original C: username, hostname, CAdir, port, debug, remote_ports),
// threaded explicitly here instead of living in package globals.
type Config struct {
	Username string
	Host     string
	Port     int

	Program []string // if non-empty, session service is "program:arg..."
	Term    string

	KeyFile  string
	CertFile string

	EscChar int // -1 disables

	Telnet bool // adds telnet(rfc2217)
	NoMux  bool // omits mux
	NoSCTP bool
	NoTCP  bool

	LocalForwards  []string // -L accept:connect, raw CLI values
	RemoteForwards []string // -R accept:connect, raw CLI values

	TLSSHDir string // overrides $HOME/.gtlssh
	Debug    int    // cumulative -d count

	Log liblog.Logger
}

// TLSSHDirPath resolves the credential/pin root directory: c.TLSSHDir if
// set, else "$HOME/.gtlssh" via go-homedir (picked for its Windows-safe
// $HOME fallback, matching the teacher's own home-directory lookup).
func (c *Config) TLSSHDirPath() (string, liberr.Error) {
	if c.TLSSHDir != "" {
		return c.TLSSHDir, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", liberr.Wrap(liberr.IO, err)
	}
	return filepath.Join(home, ".gtlssh"), nil
}

// Service returns the session service string sent as the mux login
// channel's name: "program:arg1\0arg2\0...\0" when a program was given,
// else "login:[TERM=<term>]\0".
func (c *Config) Service() string {
	if len(c.Program) > 0 {
		s := "program:"
		for _, a := range c.Program {
			s += a + "\x00"
		}
		return s
	}
	if c.Term != "" {
		return fmt.Sprintf("login:TERM=%s\x00", c.Term)
	}
	return "login:\x00"
}

// EndpointString builds the comma-separated filter-chain-over-transport
// string (§4.5) that the parser package turns into a stacked endpoint,
// given the already-resolved transport keyword ("tcp" or "sctp").
func (c *Config) EndpointString(transport string) string {
	s := ""
	if c.Telnet {
		s += "telnet(rfc2217),"
	}
	if !c.NoMux {
		s += "mux,"
	}
	s += "certauth(username=" + c.Username + "),"
	s += "ssl,"
	s += fmt.Sprintf("%s,%s,%d", transport, c.Host, c.Port)
	return s
}

func (c *Config) logger() liblog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return liblog.New(liblog.FromVerbosity(c.Debug))
}

// ensureDir creates dir (and parents) with mode 0700 if it does not
// already exist, matching the private-by-default posture of
// $HOME/.gtlssh's credential subtrees.
func ensureDir(dir string) liberr.Error {
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return liberr.Newf(liberr.Invalid, "%s exists and is not a directory", dir)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return liberr.Wrap(liberr.IO, err)
	}
	return nil
}
