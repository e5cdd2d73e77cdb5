// Copyright (c) 2024 The Gnet Authors. All rights reserved.
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

package socket

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// SuppressConnReset keeps ICMP "destination unreachable" notifications,
// triggered by datagrams this socket sent to a closed port, from being
// queued as errors on the socket and failing the next receive.
//
// Linux only queues them when IP_RECVERR/IPV6_RECVERR is on, so the option is
// cleared explicitly. ENOPROTOOPT is not an error: there is nothing to suppress.
func SuppressConnReset(fd, family int) error {
	var err error
	switch family {
	case unix.AF_INET:
		err = unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_RECVERR, 0)
	case unix.AF_INET6:
		err = unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_RECVERR, 0)
	}
	if errors.Is(err, unix.ENOPROTOOPT) {
		return nil
	}
	return os.NewSyscallError("setsockopt", err)
}
