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

import "net"

// Token carries the state of one receive: the buffer the datagram lands in,
// the sender address and the outcome. Tokens are reused through a TokenPool,
// a token is never shared by two receives in flight.
type Token struct {
	buf    []byte
	n      int
	remote net.Addr
	err    error
	op     Op
	ctx    interface{}
	idle   int32 // 1 while the token sits in a BoundedTokenPool
}

// NewToken allocates a token whose receive buffer holds bufferSize bytes,
// longer datagrams are truncated.
func NewToken(bufferSize int) *Token {
	return &Token{buf: make([]byte, bufferSize)}
}

// Buffer returns the whole receive buffer.
func (t *Token) Buffer() []byte { return t.buf }

// Payload returns the bytes of the datagram received last.
func (t *Token) Payload() []byte { return t.buf[:t.n] }

// Len returns the length of Payload.
func (t *Token) Len() int { return t.n }

// RemoteAddr returns the sender of the datagram, or the wildcard placeholder
// while the receive is outstanding.
func (t *Token) RemoteAddr() net.Addr { return t.remote }

// Err returns the error the last operation completed with.
func (t *Token) Err() error { return t.err }

// Op returns the kind of the last operation.
func (t *Token) Op() Op { return t.op }

// Context returns the user-defined value attached to the token.
func (t *Token) Context() interface{} { return t.ctx }

// SetContext attaches a user-defined value to the token, it is cleared on Reset.
func (t *Token) SetContext(ctx interface{}) { t.ctx = ctx }

// Reset clears everything but the buffer, pools call it before reusing a token.
func (t *Token) Reset() {
	t.n, t.remote, t.err, t.op, t.ctx = 0, nil, nil, OpNone, nil
}

// prepare readies the token for a new receive.
func (t *Token) prepare(placeholder net.Addr) {
	t.n, t.remote, t.err, t.op = 0, placeholder, nil, OpReceiveFrom
}
