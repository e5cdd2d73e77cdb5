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
	"net"
	"sync"
	"sync/atomic"

	"github.com/dgramio/dgram/internal/aio"
	"github.com/dgramio/dgram/internal/socket"
	"github.com/dgramio/dgram/pkg/errors"
	"github.com/dgramio/dgram/pkg/logging"
)

// completionEngine is the part of *aio.Engine a listener drives.
type completionEngine interface {
	Register(fd int) error
	ReceiveFrom(fd int, buf []byte, done aio.CompletionFunc) (aio.Completion, bool, error)
	Shutdown(fd int) error
	Close(fd int) error
	Submit(task func())
	Release()
	Wait() error
}

func openAIOEngine(opts *Options) (completionEngine, error) {
	return aio.Open(opts.WorkerPoolSize, opts.Logger)
}

// Listener receives datagrams on one UDP socket and hands each of them to an
// EventHandler. Exactly one receive is outstanding while it is listening and
// the next one is issued only after the handler has returned.
type Listener struct {
	pool  TokenPool
	eh    EventHandler
	opts  *Options
	flush logging.Flusher

	openEngine func(opts *Options) (completionEngine, error)
	eng        completionEngine

	// mu serializes Start and Stop, sock is only swapped while holding it.
	mu          sync.Mutex
	state       atomic.Int32
	sock        atomic.Pointer[Socket]
	placeholder *net.UDPAddr
}

// NewListener creates a listener that takes its tokens from pool and reports
// to eh. It doesn't touch the network until Start is called.
func NewListener(pool TokenPool, eh EventHandler, opts ...Option) (*Listener, error) {
	if pool == nil {
		return nil, errors.ErrNilPool
	}
	if eh == nil {
		return nil, errors.ErrNilEventHandler
	}

	options := loadOptions(opts...)
	l := &Listener{pool: pool, eh: eh, opts: options, openEngine: openAIOEngine}
	if options.Logger == nil {
		if options.LogPath != "" {
			logger, flush, err := logging.CreateLoggerAsLocalFile(options.LogPath, options.LogLevel)
			if err != nil {
				return nil, err
			}
			options.Logger, l.flush = logger, flush
		} else {
			options.Logger = logging.GetDefaultLogger()
		}
	}
	return l, nil
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// LocalAddr returns the address the socket is bound to, or nil when the
// listener isn't listening.
func (l *Listener) LocalAddr() net.Addr {
	if sock := l.sock.Load(); sock != nil {
		return sock.LocalAddr()
	}
	return nil
}

func (l *Listener) listening() bool {
	return l.state.Load() == int32(StateListening)
}

// Start binds a socket to cfg and issues the first receive, it returns as soon
// as the receive is outstanding. A listener can be started only once, a
// failed Start leaves it stopped. Failures other than calling Start on a
// listener that isn't fresh are also reported to OnError.
func (l *Listener) Start(cfg Config) error {
	l.mu.Lock()
	first, err := l.start(cfg)
	eng := l.eng
	l.mu.Unlock()

	if err != nil {
		if err != errors.ErrListenerStarted && err != errors.ErrListenerStopped {
			l.eh.OnError(err)
		}
		return err
	}
	if first != nil {
		// The first datagram was already queued, keep Start from running the handler.
		eng.Submit(func() { l.run(first) })
	}
	return nil
}

func (l *Listener) start(cfg Config) (first *Token, err error) {
	switch l.State() {
	case StateListening:
		return nil, errors.ErrListenerStarted
	case StateStopped:
		return nil, errors.ErrListenerStopped
	}

	var (
		eng  completionEngine
		sock *Socket
		tok  *Token
	)
	defer func() {
		if err == nil {
			return
		}
		if tok != nil {
			l.pool.Release(tok)
		}
		l.sock.Store(nil)
		if sock != nil {
			sock.markClosed()
			if cerr := eng.Close(sock.fd); cerr != nil {
				l.opts.Logger.Warnf("failed to close socket of %s: %v", cfg, cerr)
			}
		}
		if eng != nil {
			eng.Release()
		}
		l.state.Store(int32(StateStopped))
	}()

	if eng, err = l.openEngine(l.opts); err != nil {
		return nil, fmt.Errorf("failed to open completion engine: %w", err)
	}

	fd, family, local, err := socket.UDPSocket(cfg.Network, cfg.Address, l.sockopts()...)
	if err != nil {
		return nil, err
	}
	sock = newSocket(fd, family, local)

	if serr := socket.SuppressConnReset(fd, family); serr != nil {
		l.opts.Logger.Debugf("failed to suppress connection reset reports on %s: %v", cfg, serr)
	}
	if err = eng.Register(fd); err != nil {
		return nil, err
	}

	l.eng = eng
	l.placeholder = socket.WildcardUDPAddr(family)
	l.sock.Store(sock)
	l.state.Store(int32(StateListening))

	if tok, err = l.pool.Acquire(); err != nil {
		tok = nil
		return nil, fmt.Errorf("failed to acquire the first token: %w", err)
	}
	inline, err := l.arm(sock, tok)
	if err != nil {
		return nil, fmt.Errorf("failed to issue the first receive: %w", err)
	}
	l.opts.Logger.Debugf("listening on %s (%s)", local, cfg.Network)
	if inline {
		return tok, nil
	}
	return nil, nil
}

func (l *Listener) sockopts() []socket.Option {
	opts := []socket.Option{{SetSockopt: socket.SetReuseAddr, Opt: 1}}
	if l.opts.ReusePort {
		opts = append(opts, socket.Option{SetSockopt: socket.SetReuseport, Opt: 1})
	}
	if l.opts.SocketRecvBuffer > 0 {
		opts = append(opts, socket.Option{SetSockopt: socket.SetRecvBuffer, Opt: l.opts.SocketRecvBuffer})
	}
	if l.opts.SocketSendBuffer > 0 {
		opts = append(opts, socket.Option{SetSockopt: socket.SetSendBuffer, Opt: l.opts.SocketSendBuffer})
	}
	return opts
}

// Stop closes the socket and cancels the outstanding receive. It is safe to
// call from any goroutine, OnDatagram included, and only the first call on a
// listening listener has any effect. OnStopped fires once that call has
// closed the socket.
//
// The effective call holds the lifecycle lock only while closing the socket.
// After releasing it, it also waits for the poller goroutine of the listener
// to exit before firing OnStopped, which takes no longer than one poller
// wake-up. Handlers still running on workers are not waited for.
func (l *Listener) Stop() {
	if l.sock.Load() == nil {
		return
	}

	l.mu.Lock()
	if !l.state.CompareAndSwap(int32(StateListening), int32(StateStopped)) {
		l.mu.Unlock()
		return
	}
	sock := l.sock.Swap(nil)
	eng := l.eng
	sock.markClosed()
	if err := eng.Shutdown(sock.fd); err != nil {
		l.opts.Logger.Debugf("shutdown of socket %s: %v", sock.local, err)
	}
	if err := eng.Close(sock.fd); err != nil {
		l.opts.Logger.Warnf("failed to close socket %s: %v", sock.local, err)
	}
	l.mu.Unlock()

	eng.Release()
	if err := eng.Wait(); err != nil {
		l.opts.Logger.Errorf("completion engine exited with error: %v", err)
	}
	l.opts.Logger.Debugf("listener on %s stopped", sock.local)
	l.eh.OnStopped()

	if l.flush != nil {
		_ = l.flush()
	}
}
