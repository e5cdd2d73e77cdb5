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

//go:build !linux && !freebsd && !dragonfly && !darwin
// +build !linux,!freebsd,!dragonfly,!darwin

package dgram

import (
	"net"

	"github.com/dgramio/dgram/pkg/errors"
)

// Socket is the bound UDP socket of a listener.
type Socket struct{}

// Fd returns -1 on this platform.
func (*Socket) Fd() int { return -1 }

// LocalAddr returns nil on this platform.
func (*Socket) LocalAddr() net.Addr { return nil }

// WriteTo always fails on this platform.
func (*Socket) WriteTo(_ []byte, _ net.Addr) (int, error) {
	return 0, errors.ErrUnsupportedPlatform
}

// Listener is not available on this platform.
type Listener struct {
	eh EventHandler
}

// NewListener validates its arguments like on the supported platforms.
func NewListener(pool TokenPool, eh EventHandler, _ ...Option) (*Listener, error) {
	if pool == nil {
		return nil, errors.ErrNilPool
	}
	if eh == nil {
		return nil, errors.ErrNilEventHandler
	}
	return &Listener{eh: eh}, nil
}

// State always reports StateStopped.
func (*Listener) State() State { return StateStopped }

// LocalAddr returns nil.
func (*Listener) LocalAddr() net.Addr { return nil }

// Start reports and returns errors.ErrUnsupportedPlatform.
func (l *Listener) Start(_ Config) error {
	l.eh.OnError(errors.ErrUnsupportedPlatform)
	return errors.ErrUnsupportedPlatform
}

// Stop does nothing.
func (*Listener) Stop() {}
