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

package tcp_test

import (
	"net"
	"time"

	libadr "github.com/nabbar/gensio/address"
	liblog "github.com/nabbar/gensio/logger"
	tcp "github.com/nabbar/gensio/transport/tcp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Grounded on nabbar-golib/socket/server/tcp's ginkgo suite: the
// accepter's startup/shutdown/refcount lifecycle is exactly the kind of
// scenario the teacher exercises with ginkgo/gomega rather than plain
// table tests.
var _ = Describe("Accepter", func() {
	var list fixedList

	BeforeEach(func() {
		list = fixedList{{Net: libadr.TCP, IP: net.ParseIP("127.0.0.1"), Port: 0}}
	})

	It("delivers accepted connections to the handler", func() {
		got := make(chan net.Conn, 1)
		a := tcp.NewAccepter(list, nil, func(c net.Conn) { got <- c }, liblog.New(liblog.ErrorLevel))
		Expect(a.Startup()).To(Succeed())
		defer a.Free()

		addr := a.ListenerAddr(0)
		Expect(addr).ToNot(BeEmpty())

		conn, err := net.Dial("tcp", addr)
		Expect(err).ToNot(HaveOccurred())
		defer conn.Close()

		Eventually(got, 2*time.Second).Should(Receive())
	})

	It("rejects a peer the access check refuses, without calling the handler", func() {
		got := make(chan net.Conn, 1)
		reject := func(net.Addr) string { return "go away" }
		a := tcp.NewAccepter(list, reject, func(c net.Conn) { got <- c }, liblog.New(liblog.ErrorLevel))
		Expect(a.Startup()).To(Succeed())
		defer a.Free()

		conn, err := net.Dial("tcp", a.ListenerAddr(0))
		Expect(err).ToNot(HaveOccurred())
		defer conn.Close()

		buf := make([]byte, 16)
		n, _ := conn.Read(buf)
		Expect(string(buf[:n])).To(Equal("go away"))
		Consistently(got, 200*time.Millisecond).ShouldNot(Receive())
	})

	It("returns the refcount to its pre-startup value after a startup/shutdown pair", func() {
		a := tcp.NewAccepter(list, nil, func(net.Conn) {}, liblog.New(liblog.ErrorLevel))
		Expect(a.Startup()).To(Succeed())
		Expect(a.RefCount()).To(Equal(int64(2)))

		done := make(chan struct{})
		Expect(a.Shutdown(func() { close(done) })).To(Succeed())
		Eventually(done, 2*time.Second).Should(BeClosed())
		Expect(a.RefCount()).To(Equal(int64(1)))

		a.Free()
		Expect(a.RefCount()).To(Equal(int64(0)))
	})

	It("allows a fresh startup after a shutdown", func() {
		a := tcp.NewAccepter(list, nil, func(net.Conn) {}, liblog.New(liblog.ErrorLevel))
		Expect(a.Startup()).To(Succeed())

		done := make(chan struct{})
		Expect(a.Shutdown(func() { close(done) })).To(Succeed())
		Eventually(done, 2*time.Second).Should(BeClosed())

		Expect(a.Startup()).To(Succeed())
		a.Free()
	})
})
