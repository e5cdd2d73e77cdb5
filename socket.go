// Copyright (c) 2026 The Dgram Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package dgram

import (
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dgramio/dgram/internal/socket"
	"github.com/dgramio/dgram/pkg/errors"
)

// Socket is the bound UDP socket of a listener, handed to OnDatagram so the
// handler can answer on it.
type Socket struct {
	fd     int
	family int
	local  *net.UDPAddr

	mu     sync.RWMutex
	closed bool
}

func newSocket(fd, family int, local *net.UDPAddr) *Socket {
	return &Socket{fd: fd, family: family, local: local}
}

// Fd returns the underlying file descriptor, it is closed once the listener stops.
func (s *Socket) Fd() int { return s.fd }

// LocalAddr returns the address the socket is bound to.
func (s *Socket) LocalAddr() net.Addr { return s.local }

// WriteTo sends b as one datagram to addr, which must be a *net.UDPAddr.
// It is safe for concurrent use and fails with errors.ErrListenerStopped
// once the listener has stopped.
func (s *Socket) WriteTo(b []byte, addr net.Addr) (int, error) {
	ua, ok := addr.(*net.UDPAddr)
	if !ok || ua == nil {
		return 0, errors.ErrInvalidNetworkAddress
	}
	sa, err := socket.UDPAddrToSockaddr(s.family, ua)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errors.ErrListenerStopped
	}
	for {
		err = unix.Sendto(s.fd, b, 0, sa)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return 0, os.NewSyscallError("sendto", err)
	}
	return len(b), nil
}

// markClosed waits for writes in flight and fails the following ones.
func (s *Socket) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
