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

package local_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	liberr "github.com/nabbar/gensio/errors"
	liblocal "github.com/nabbar/gensio/transport/local"
)

func TestSerialDevOpsReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	ops := liblocal.NewSerialDevOps(path)
	src, err := ops.SubOpen()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ops.Close()

	if _, err := ops.Write([]byte("hello"), false); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	f, ok := src.(*os.File)
	if !ok {
		t.Fatalf("expected *os.File source, got %T", src)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("unexpected seek error: %v", err)
	}

	buf := make([]byte, 5)
	n, err := f.Read(buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("unexpected read: n=%d err=%v buf=%q", n, err, buf)
	}
}

func TestSerialDevOpsOobUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}
	ops := liblocal.NewSerialDevOps(path)
	if _, err := ops.SubOpen(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ops.Close()

	if _, err := ops.Write([]byte("x"), true); err == nil || !liberr.Has(err, liberr.NotSup) {
		t.Fatalf("expected NotSup error, got %v", err)
	}
}

func TestSerialDevOpsRetryExhausted(t *testing.T) {
	ops := liblocal.NewSerialDevOps(filepath.Join(t.TempDir(), "line"))
	if _, err := ops.RetryOpen(); err == nil || !liberr.Has(err, liberr.IO) {
		t.Fatalf("expected an exhausted IO error, got %v", err)
	}
}

func TestStdioOpsRetryExhausted(t *testing.T) {
	ops := liblocal.NewStdioOps()
	if _, err := ops.RetryOpen(); err == nil || !liberr.Has(err, liberr.IO) {
		t.Fatalf("expected an exhausted IO error, got %v", err)
	}
}
