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
	"encoding/binary"

	libatm "github.com/nabbar/gensio/atomic"
)

// WinchFrame builds the 11-byte window-size OOB frame (§3): 'w' | u16
// len=8 | u16 rows | u16 cols | u16 xpix | u16 ypix.
func WinchFrame(rows, cols, xpix, ypix int) []byte {
	frame := make([]byte, 11)
	frame[0] = 'w'
	binary.BigEndian.PutUint16(frame[1:3], 8)
	binary.BigEndian.PutUint16(frame[3:5], uint16(rows))
	binary.BigEndian.PutUint16(frame[5:7], uint16(cols))
	binary.BigEndian.PutUint16(frame[7:9], uint16(xpix))
	binary.BigEndian.PutUint16(frame[9:11], uint16(ypix))
	return frame
}

// WinchSignaller watches a TTY for size changes and sends one
// WinchFrame per change over send, suppressing re-entrancy with a
// sending/pending pair (§4.8, §8 OOB-WINCH reentrancy): if a send is
// already outstanding when a new change is observed, the change is
// recorded as pending and re-sent from the completion callback instead
// of overlapping sends.
type WinchSignaller struct {
	tty  *TTY
	send func(frame []byte) error

	sending libatm.Flag
	pending libatm.Flag

	stop chan struct{}
}

// NewWinchSignaller constructs a signaller over tty, delivering frames
// via send.
func NewWinchSignaller(tty *TTY, send func(frame []byte) error) *WinchSignaller {
	return &WinchSignaller{tty: tty, send: send, stop: make(chan struct{})}
}

// notify is called whenever the terminal's size may have changed (by
// the platform-specific signal watcher in winch_unix.go, or directly by
// a caller on platforms with no SIGWINCH).
func (w *WinchSignaller) notify() {
	if w.sending.Set(true) {
		// a send is already outstanding; remember to re-send once it
		// completes instead of issuing an overlapping one.
		w.pending.Set(true)
		return
	}
	w.sendNow()
}

func (w *WinchSignaller) sendNow() {
	cols, rows, err := w.tty.Size()
	if err != nil {
		w.sending.Set(false)
		return
	}
	frame := WinchFrame(rows, cols, 0, 0)
	_ = w.send(frame)

	if w.pending.Set(false) {
		w.sendNow()
		return
	}
	w.sending.Set(false)
}

// Stop ends the signaller's platform signal watch, if any.
func (w *WinchSignaller) Stop() {
	close(w.stop)
}
