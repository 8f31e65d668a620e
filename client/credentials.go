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
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	liberr "github.com/nabbar/gensio/errors"
	liblog "github.com/nabbar/gensio/logger"
)

// credentialCandidate names one probe of the discovery order (§4.6):
// per-host/port, per-host, then the default fallback.
type credentialCandidate struct {
	key string
	crt string
}

func discoveryOrder(dir, host string, port int) []credentialCandidate {
	kc := filepath.Join(dir, "keycerts")
	return []credentialCandidate{
		{key: filepath.Join(kc, fmt.Sprintf("%s,%d.key", host, port)), crt: filepath.Join(kc, fmt.Sprintf("%s,%d.crt", host, port))},
		{key: filepath.Join(kc, host+".key"), crt: filepath.Join(kc, host+".crt")},
		{key: filepath.Join(dir, "default.key"), crt: filepath.Join(dir, "default.crt")},
	}
}

// DiscoverCredentials resolves the client's own TLS certificate: an
// explicit KeyFile/CertFile override wins outright (certFile inferred
// from keyFile by substituting ".key" -> ".crt" when certFile is
// empty); otherwise the three on-disk probes under dir/keycerts and
// dir/default.* are tried in order. The first candidate whose key file
// exists is checked out (permissions, ownership) and loaded.
func DiscoverCredentials(dir string, c *Config) (tls.Certificate, liberr.Error) {
	log := c.logger()

	if err := checkoutCADir(dir); err != nil {
		return tls.Certificate{}, err
	}

	if c.KeyFile != "" {
		cert := c.CertFile
		if cert == "" {
			cert = strings.TrimSuffix(c.KeyFile, ".key") + ".crt"
		}
		return loadCheckedOutPair(c.KeyFile, cert, log)
	}

	for _, cand := range discoveryOrder(dir, c.Host, c.Port) {
		if _, err := os.Stat(cand.key); err == nil {
			return loadCheckedOutPair(cand.key, cand.crt, log)
		}
	}
	return tls.Certificate{}, liberr.New(liberr.KeyInvalid, "no client credential found under "+dir)
}

// checkoutCADir enforces the checkout policy's CAdir invariant (§4.6):
// the server-certificate pin store rooted at tlsshDir/server_certs
// must be a directory, matching the same path gtlssh-keygen rehash is
// later invoked against (tofu.go's rehash). Created with the
// credential tree's private-by-default permissions on first use.
func checkoutCADir(tlsshDir string) liberr.Error {
	return ensureDir(filepath.Join(tlsshDir, "server_certs"))
}

// checkoutCertFile enforces the checkout policy's "certificate
// readable" invariant (§4.6) with an actual read attempt rather than
// relying on tls.LoadX509KeyPair's own error to surface it indirectly.
func checkoutCertFile(path string) liberr.Error {
	f, err := os.Open(path)
	if err != nil {
		return liberr.Wrap(liberr.KeyInvalid, err)
	}
	return liberr.Wrap(liberr.KeyInvalid, f.Close())
}

func loadCheckedOutPair(keyFile, crtFile string, log liblog.Logger) (tls.Certificate, liberr.Error) {
	if err := checkoutKeyFile(keyFile); err != nil {
		return tls.Certificate{}, err
	}
	if err := checkoutCertFile(crtFile); err != nil {
		return tls.Certificate{}, err
	}
	cert, err := tls.LoadX509KeyPair(crtFile, keyFile)
	if err != nil {
		return tls.Certificate{}, liberr.Wrap(liberr.KeyInvalid, err)
	}
	if warn := checkExpiry(cert, "local client certificate"); warn != "" {
		log.Warn(warn, nil)
	}
	return cert, nil
}

// checkExpiry parses cert's leaf and returns a non-empty warning string
// when it expires within 30 days; used both for the client's own
// certificate at startup and the peer's certificate on each TOFU
// acceptance (§4.6, §4.10).
func checkExpiry(cert tls.Certificate, label string) string {
	leaf := cert.Leaf
	if leaf == nil && len(cert.Certificate) > 0 {
		var err error
		leaf, err = parseLeaf(cert.Certificate[0])
		if err != nil {
			return ""
		}
	}
	if leaf == nil {
		return ""
	}
	if d := time.Until(leaf.NotAfter); d > 0 && d < 30*24*time.Hour {
		return fmt.Sprintf("%s expires in %s (on %s)", label, d.Round(time.Hour), leaf.NotAfter.Format(time.RFC3339))
	}
	return ""
}
