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

//go:build !windows

package client

import (
	"os"
	"path/filepath"
	"testing"

	liberr "github.com/nabbar/gensio/errors"
)

func TestCheckoutKeyFileRejectsLooseMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.key")
	if err := os.WriteFile(path, []byte("key"), 0644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := checkoutKeyFile(path); err == nil || !liberr.Has(err, liberr.KeyInvalid) {
		t.Fatalf("expected KeyInvalid error, got %v", err)
	}
}

func TestCheckoutKeyFileAcceptsMode0600(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.key")
	if err := os.WriteFile(path, []byte("key"), 0600); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := checkoutKeyFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckoutCADirRejectsPlainFile(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "server_certs")
	if err := os.WriteFile(blocked, []byte("not a directory"), 0600); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := checkoutCADir(dir); err == nil || !liberr.Has(err, liberr.Invalid) {
		t.Fatalf("expected Invalid error, got %v", err)
	}
}

func TestCheckoutCADirCreatesMissingDir(t *testing.T) {
	dir := t.TempDir()
	if err := checkoutCADir(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fi, serr := os.Stat(filepath.Join(dir, "server_certs"))
	if serr != nil || !fi.IsDir() {
		t.Fatalf("expected server_certs to be created as a directory, stat err=%v", serr)
	}
}

func TestCheckoutCertFileRejectsMissingFile(t *testing.T) {
	if err := checkoutCertFile(filepath.Join(t.TempDir(), "missing.crt")); err == nil || !liberr.Has(err, liberr.KeyInvalid) {
		t.Fatalf("expected KeyInvalid error, got %v", err)
	}
}
