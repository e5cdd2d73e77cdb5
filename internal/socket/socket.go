// Copyright (c) 2020 Andy Pan
// Copyright (c) 2017 Max Riveiro
// Copyright (c) 2026 The Dgram Authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

//go:build linux || freebsd || dragonfly || darwin

// Package socket provides functions that return a bound, non-blocking UDP
// socket and convert between unix.Sockaddr and net.Addr.
package socket

import "net"

// Option is used for setting an option on socket.
type Option struct {
	SetSockopt func(int, int) error
	Opt        int
}

// UDPSocket creates a non-blocking, close-on-exec UDP socket bound to addr and
// returns its file descriptor, address family and the address the kernel actually bound,
// so a wildcard port comes back resolved.
func UDPSocket(proto, addr string, sockopts ...Option) (fd, family int, bound *net.UDPAddr, err error) {
	return udpSocket(proto, addr, sockopts...)
}
