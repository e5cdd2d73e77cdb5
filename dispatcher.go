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
	"runtime/debug"

	"github.com/dgramio/dgram/internal/aio"
	"github.com/dgramio/dgram/internal/socket"
	"github.com/dgramio/dgram/pkg/errors"
)

// complete records the outcome of a receive, the placeholder address stays
// in place unless the sender is known.
func (t *Token) complete(c aio.Completion) {
	t.n, t.err = c.N, c.Err
	if c.From != nil {
		if addr := socket.SockaddrToUDPAddr(c.From); addr != nil {
			t.remote = addr
		}
	}
}

// arm issues a receive into tok. It reports true when the receive completed
// synchronously, in which case tok already holds the result and the callback
// will never run.
func (l *Listener) arm(sock *Socket, tok *Token) (bool, error) {
	tok.prepare(l.placeholder)
	c, pending, err := l.eng.ReceiveFrom(sock.fd, tok.buf, func(c aio.Completion) {
		tok.complete(c)
		l.run(tok)
	})
	if err != nil {
		return false, err
	}
	if pending {
		return false, nil
	}
	tok.complete(c)
	return true, nil
}

// run processes completed tokens until a receive is left pending, each
// synchronous completion is handled by the next iteration.
func (l *Listener) run(tok *Token) {
	for tok != nil {
		tok = l.handleCompletion(tok)
	}
}

// handleCompletion consumes one completed token and arms the next receive,
// it returns the token of that receive if it completed synchronously.
func (l *Listener) handleCompletion(tok *Token) *Token {
	if err := tok.err; err != nil {
		l.pool.Release(tok)
		if isShutdownError(err) || !l.listening() {
			return nil
		}
		l.eh.OnError(fmt.Errorf("failed to receive datagram: %w", err))
		return l.rearm()
	}

	sock := l.sock.Load()
	if sock == nil || !l.listening() {
		l.pool.Release(tok)
		return nil
	}

	if tok.op == OpReceiveFrom {
		if err := l.dispatch(sock, tok); err != nil {
			l.pool.Release(tok)
			l.eh.OnError(err)
		}
	} else {
		l.pool.Release(tok)
	}
	return l.rearm()
}

func (l *Listener) dispatch(sock *Socket, tok *Token) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.opts.Logger.Errorf("panic in OnDatagram from %v: %v\n%s", tok.remote, r, debug.Stack())
			err = fmt.Errorf("%w: %v", errors.ErrHandlerPanic, r)
		}
	}()
	return l.eh.OnDatagram(sock, tok)
}

func (l *Listener) rearm() *Token {
	sock := l.sock.Load()
	if sock == nil {
		return nil
	}

	tok, err := l.pool.Acquire()
	if err != nil {
		if l.listening() {
			l.opts.Logger.Warnf("no token for the next receive on %s, the listener stays idle: %v", sock.local, err)
			l.eh.OnError(fmt.Errorf("failed to acquire token: %w", err))
		}
		return nil
	}

	inline, err := l.arm(sock, tok)
	if err != nil {
		l.pool.Release(tok)
		if l.listening() && !isShutdownError(err) {
			l.eh.OnError(fmt.Errorf("failed to issue receive: %w", err))
		}
		return nil
	}
	if inline {
		return tok
	}
	return nil
}
