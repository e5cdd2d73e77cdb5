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
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"github.com/dgramio/dgram/pkg/errors"
)

func TestIsShutdownError(t *testing.T) {
	for _, errno := range []unix.Errno{unix.ECANCELED, unix.EINTR, unix.ENOTSOCK, unix.EBADF} {
		assert.Truef(t, isShutdownError(errno), "%v", errno)
		assert.Truef(t, isShutdownError(os.NewSyscallError("recvfrom", errno)), "%v", errno)
		assert.Truef(t, isShutdownError(fmt.Errorf("receive: %w", os.NewSyscallError("recvfrom", errno))), "%v", errno)
	}

	for _, err := range []error{
		nil,
		unix.ECONNREFUSED,
		unix.EMSGSIZE,
		os.NewSyscallError("recvfrom", unix.ENOMEM),
		errors.ErrPoolExhausted,
		errors.ErrOperationInProgress,
	} {
		assert.Falsef(t, isShutdownError(err), "%v", err)
	}
}
