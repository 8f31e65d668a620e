//go:build !windows

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

package tcp

import (
	"net"

	"golang.org/x/sys/unix"
)

// sendOOB sends p with MSG_OOB set, mapping EAGAIN/EWOULDBLOCK to a
// zero-byte write and EINTR to a retry, matching the nonblocking write
// contract used for in-band writes.
func sendOOB(tc *net.TCPConn, p []byte) (int, error) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var sendErr error
	cerr := raw.Write(func(fd uintptr) bool {
		for {
			n, sendErr = unix.SendmsgN(int(fd), p, nil, nil, unix.MSG_OOB)
			if sendErr == unix.EINTR {
				continue
			}
			if sendErr == unix.EAGAIN || sendErr == unix.EWOULDBLOCK {
				n, sendErr = 0, nil
			}
			return true
		}
	})
	if cerr != nil {
		return 0, cerr
	}
	return n, sendErr
}

// recvOOB reads up to 1 byte of urgent data, mirroring recv(fd, ...,
// MSG_OOB) for a TCP except-ready notification.
func recvOOB(tc *net.TCPConn) ([]byte, error) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 1)
	var n int
	var recvErr error
	cerr := raw.Read(func(fd uintptr) bool {
		n, _, recvErr = unix.Recvfrom(int(fd), buf, unix.MSG_OOB)
		return recvErr != unix.EAGAIN && recvErr != unix.EWOULDBLOCK
	})
	if cerr != nil {
		return nil, cerr
	}
	if recvErr != nil {
		return nil, recvErr
	}
	return buf[:n], nil
}
