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

// Command gtlssh is a TLS-secured remote shell client: it dials a
// gtlsshd server over TCP (an sctp transport request is also dialed
// over TCP), authenticates
// with a client certificate, pins the server's certificate on first
// use, and drops the caller into an interactive session or a single
// remote program, with optional local/remote TCP port forwarding.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	libclient "github.com/nabbar/gensio/client"
	liblog "github.com/nabbar/gensio/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliFlags struct {
	port      int
	keyFile   string
	certFile  string
	escChar   string
	telnet    bool
	noMux     bool
	noSCTP    bool
	noTCP     bool
	localFwd  []string
	remoteFwd []string
	debug     int
	tlsshDir  string
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "gtlssh [user@]host [program [args...]]",
		Short: "TLS-secured remote shell with certificate pinning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f, args)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.IntVarP(&f.port, "port", "p", 852, "remote port")
	flags.StringVarP(&f.keyFile, "keyfile", "i", "", "client private key file (certfile inferred by default)")
	flags.StringVar(&f.certFile, "certfile", "", "client certificate file (overrides keyfile inference)")
	flags.StringVarP(&f.escChar, "escchar", "e", "", "escape character, or \"none\"/\"-1\" to disable")
	flags.BoolVarP(&f.telnet, "telnet", "r", false, "wrap the connection in telnet RFC2217 framing")
	flags.BoolVar(&f.noMux, "nomux", false, "do not multiplex the connection")
	flags.BoolVar(&f.noSCTP, "nosctp", false, "do not attempt SCTP, use TCP directly")
	flags.BoolVar(&f.noTCP, "notcp", false, "do not fall back to TCP if SCTP fails")
	flags.StringArrayVarP(&f.localFwd, "local-forward", "L", nil, "forward a local port to the remote side (accept:connect)")
	flags.StringArrayVarP(&f.remoteFwd, "remote-forward", "R", nil, "forward a remote port to the local side (accept:connect)")
	flags.CountVarP(&f.debug, "debug", "d", "increase debug verbosity (repeatable)")
	flags.StringVar(&f.tlsshDir, "tlsshdir", "", "override the credential/pin directory (default $HOME/.gtlssh)")

	return cmd
}

func run(f *cliFlags, args []string) error {
	userHost := args[0]
	program := args[1:]

	username := ""
	host := userHost
	if idx := strings.IndexByte(userHost, '@'); idx >= 0 {
		username = userHost[:idx]
		host = userHost[idx+1:]
	}
	if username == "" {
		if u := os.Getenv("USER"); u != "" {
			username = u
		} else {
			username = "root"
		}
	}
	if host == "" {
		return fmt.Errorf("gtlssh: missing host")
	}

	log := liblog.New(liblog.FromVerbosity(f.debug))

	sid, uerr := uuid.GenerateUUID()
	if uerr != nil {
		sid = "unknown"
	}
	log = log.WithFields(liblog.Fields{"session": sid, "host": host})

	cfg := &libclient.Config{
		Username:       username,
		Host:           host,
		Port:           f.port,
		Program:        program,
		Term:           os.Getenv("TERM"),
		KeyFile:        f.keyFile,
		CertFile:       f.certFile,
		EscChar:        parseEscChar(f.escChar, term.IsTerminal(int(os.Stdin.Fd()))),
		Telnet:         f.telnet,
		NoMux:          f.noMux,
		NoSCTP:         f.noSCTP,
		NoTCP:          f.noTCP,
		LocalForwards:  f.localFwd,
		RemoteForwards: f.remoteFwd,
		TLSSHDir:       f.tlsshDir,
		Debug:          f.debug,
		Log:            log,
	}

	dir, direrr := cfg.TLSSHDirPath()
	if direrr != nil {
		return fatal(direrr)
	}

	cert, cerr := libclient.DiscoverCredentials(dir, cfg)
	if cerr != nil {
		return fatal(cerr)
	}

	peerIP := resolvePeerIP(host)

	tofu := &libclient.TOFU{
		Dir:    dir,
		Host:   host,
		Port:   f.port,
		PeerIP: peerIP,
		Prompt: coloredPrompter,
		Log:    log,
	}

	sess, serr := libclient.Connect(cfg, tofu, cert)
	if serr != nil {
		return fatal(serr)
	}
	defer sess.Close()

	if err := sess.Run(); err != nil {
		return fatal(err)
	}
	return nil
}

// parseEscChar maps the -e flag's value to the escape-character byte
// used to detect an in-band disconnect request. An unset flag defaults
// to ^\ on a terminal stdin and disabled otherwise; "none" or "-1"
// always disable it.
func parseEscChar(raw string, isTTY bool) int {
	switch raw {
	case "":
		if isTTY {
			return int('\\') & 0x1f
		}
		return -1
	case "none", "-1":
		return -1
	case "^\\":
		return int('\\') & 0x1f
	default:
		if len(raw) == 1 {
			return int(raw[0])
		}
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
		return -1
	}
}

// resolvePeerIP best-effort resolves host to its first reachable
// address, used as the by-address half of the TOFU dual pin; an empty
// result degrades to host-only pinning.
func resolvePeerIP(host string) string {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

// coloredPrompter renders the TOFU yes/no prompt in yellow, matching
// the library's own warn-level coloring convention.
func coloredPrompter(question string) bool {
	warn := color.New(color.FgYellow).SprintFunc()
	return libclient.StdinPrompter(warn(question))
}

func fatal(err error) error {
	fmt.Fprintf(os.Stderr, "gtlssh: %v\n", err)
	return err
}
