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

package client_test

import (
	"encoding/binary"
	"testing"

	libclient "github.com/nabbar/gensio/client"
)

func TestWinchFrameLayout(t *testing.T) {
	frame := libclient.WinchFrame(24, 80, 640, 480)
	if len(frame) != 11 {
		t.Fatalf("expected an 11-byte frame, got %d", len(frame))
	}
	if frame[0] != 'w' {
		t.Fatalf("expected leading 'w', got %q", frame[0])
	}
	if got := binary.BigEndian.Uint16(frame[1:3]); got != 8 {
		t.Fatalf("expected body length 8, got %d", got)
	}
	if got := binary.BigEndian.Uint16(frame[3:5]); got != 24 {
		t.Fatalf("expected rows 24, got %d", got)
	}
	if got := binary.BigEndian.Uint16(frame[5:7]); got != 80 {
		t.Fatalf("expected cols 80, got %d", got)
	}
	if got := binary.BigEndian.Uint16(frame[7:9]); got != 640 {
		t.Fatalf("expected xpix 640, got %d", got)
	}
	if got := binary.BigEndian.Uint16(frame[9:11]); got != 480 {
		t.Fatalf("expected ypix 480, got %d", got)
	}
}
