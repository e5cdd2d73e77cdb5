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
	"errors"

	"golang.org/x/sys/unix"
)

// isShutdownError tells whether err is what a receive fails with when its
// socket is being closed: canceled, interrupted, or issued on a descriptor
// that is gone or no longer a socket.
func isShutdownError(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.ECANCELED, unix.EINTR, unix.ENOTSOCK, unix.EBADF:
		return true
	}
	return false
}
