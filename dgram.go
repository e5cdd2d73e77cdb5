// Copyright (c) 2019 Andy Pan
// Copyright (c) 2018 Joshua J Baker
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

package dgram

import (
	"strings"
)

// State is the lifecycle state of a Listener.
type State int32

const (
	// StateCreated is the state of a listener that has not been started.
	StateCreated State = iota
	// StateListening is the state of a listener with a receive outstanding.
	StateListening
	// StateStopped is the terminal state, reached by Stop or a failed Start.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config is the local endpoint a listener binds to.
type Config struct {
	// Network selects the address family: "udp4", "udp6", or "udp" for a
	// dual-stack socket when the platform allows it.
	Network string
	// Address is the local "host:port" to bind, port 0 picks an ephemeral port.
	Address string
}

func (c Config) String() string {
	return c.Network + "://" + c.Address
}

// ParseProtoAddr builds a Config from an address formatted like
// `udp4://127.0.0.1:9000`. The "udp" network is assumed when no scheme is given.
func ParseProtoAddr(protoAddr string) Config {
	cfg := Config{Network: "udp", Address: protoAddr}
	if pair := strings.SplitN(protoAddr, "://", 2); len(pair) == 2 {
		cfg.Network, cfg.Address = strings.ToLower(pair[0]), pair[1]
	}
	return cfg
}

// Op is the kind of operation a token was last used for.
type Op int

const (
	// OpNone marks a token that hasn't carried any operation yet.
	OpNone Op = iota
	// OpReceiveFrom marks a token used for receiving one datagram.
	OpReceiveFrom
)

type (
	// EventHandler represents the listener events' callbacks.
	EventHandler interface {
		// OnDatagram fires once per received datagram, before the next receive
		// is issued. Calls for one listener never overlap.
		//
		// Returning nil hands the ownership of tok to the handler, which must
		// release it to the pool once done with it. Returning an error, or
		// panicking, reports the failure through OnError and the listener
		// releases tok itself.
		OnDatagram(s *Socket, tok *Token) error

		// OnError fires for failures of individual receives and of Start,
		// never for the errors caused by stopping the listener.
		OnError(err error)

		// OnStopped fires once, right after the listener closed its socket.
		OnStopped()
	}

	// BuiltinEventHandler sets up OnError and OnStopped with a default implementation,
	// embed it in your own handler when you only care about OnDatagram.
	BuiltinEventHandler struct{}
)

// OnError ignores the error.
func (*BuiltinEventHandler) OnError(_ error) {}

// OnStopped does nothing.
func (*BuiltinEventHandler) OnStopped() {}
