// Copyright (c) 2019 Andy Pan
// Copyright (c) 2017 Joshua J Baker
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

// Package netpoll wraps the readiness facility of the platform, epoll on
// Linux and kqueue on BSD and macOS.
//
// Read interest is one-shot: once an event has been reported for a
// file descriptor, the poller stays silent for it until ModRead is called
// again. The completion engine relies on this to keep at most one receive
// outstanding per socket.
package netpoll

const (
	// InitPollEventsCap represents the initial capacity of poller event-list.
	InitPollEventsCap = 128
	// MaxPollEventsCap is the maximum limitation of events that the poller can process.
	MaxPollEventsCap = 1024
	// MinPollEventsCap is the minimum limitation of events that the poller can process.
	MinPollEventsCap = 32
	// MaxAsyncTasksAtOneTime is the maximum amount of asynchronous tasks that the poller will process at one time.
	MaxAsyncTasksAtOneTime = 256
)
