// Copyright (c) 2019 The Gnet Authors. All rights reserved.
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

// Package errors defines common errors for dgram.
package errors

import "errors"

var (
	// ErrListenerStarted occurs when Start is called on a listener that has already been started.
	ErrListenerStarted = errors.New("dgram: listener has already been started")
	// ErrListenerStopped occurs when trying to use a listener or its socket after it has been stopped.
	ErrListenerStopped = errors.New("dgram: listener is stopped")
	// ErrNilPool occurs when a listener is created without a token pool.
	ErrNilPool = errors.New("dgram: token pool is nil")
	// ErrNilEventHandler occurs when a listener is created without an event handler.
	ErrNilEventHandler = errors.New("dgram: event handler is nil")
	// ErrPoolExhausted occurs when a non-blocking token pool has no token to hand out.
	ErrPoolExhausted = errors.New("dgram: token pool is exhausted")
	// ErrInvalidPoolSize occurs when a token pool is created with a non-positive capacity or buffer size.
	ErrInvalidPoolSize = errors.New("dgram: token pool capacity and buffer size must be positive")
	// ErrOperationInProgress occurs when a receive is issued on a socket that already has one outstanding.
	ErrOperationInProgress = errors.New("dgram: a receive is already outstanding on the socket")
	// ErrHandlerPanic occurs when the datagram handler panics while processing a datagram.
	ErrHandlerPanic = errors.New("dgram: datagram handler panicked")
	// ErrEngineShutdown occurs when the completion engine is shutting down.
	ErrEngineShutdown = errors.New("dgram: completion engine is going to be shutdown")
	// ErrUnsupportedUDPProtocol occurs when trying to use an unsupported UDP protocol.
	ErrUnsupportedUDPProtocol = errors.New("dgram: only udp/udp4/udp6 are supported")
	// ErrInvalidNetworkAddress occurs when the network address is invalid.
	ErrInvalidNetworkAddress = errors.New("dgram: invalid network address")
	// ErrUnsupportedPlatform occurs when running dgram on an unsupported platform.
	ErrUnsupportedPlatform = errors.New("dgram: unsupported platform in dgram")
)
