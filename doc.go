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

/*
Package dgram implements a continuously self-rearming asynchronous UDP listener.

A Listener binds one datagram socket, keeps exactly one receive outstanding on
it and, every time that receive completes, hands the datagram to the
EventHandler and issues the next receive, until Stop is called.

Receives are carried by Tokens borrowed from a TokenPool: one token per
receive, returned to the pool exactly once. When OnDatagram returns nil the
handler owns the token and must release it; when it returns an error or
panics, the listener releases the token itself and keeps listening.

	pool, _ := dgram.NewTokenPool(64, 2048, false)
	ln, _ := dgram.NewListener(pool, handler, dgram.WithReusePort(true))
	if err := ln.Start(dgram.ParseProtoAddr("udp4://127.0.0.1:9000")); err != nil {
		// handle error
	}
	defer ln.Stop()

Completions are delivered on worker goroutines, OnDatagram calls for one
listener never overlap. Stop may be called from any goroutine, including
from inside OnDatagram, any number of times; OnStopped fires once.
*/
package dgram
