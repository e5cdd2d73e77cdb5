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
	goerrors "errors"
	"net"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/dgramio/dgram/internal/aio"
	"github.com/dgramio/dgram/pkg/errors"
)

// scriptedEngine completes receives the way its script says: synchronously
// with the returned completion, or later when the test fires one.
type scriptedEngine struct {
	mu       sync.Mutex
	script   func(n int) (c aio.Completion, inline bool)
	armErr   error
	receives int
	buf      []byte
	pending  aio.CompletionFunc
	closed   bool
	closes   int32
	released int32
}

func (e *scriptedEngine) Register(int) error { return nil }

func (e *scriptedEngine) ReceiveFrom(_ int, buf []byte, done aio.CompletionFunc) (aio.Completion, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return aio.Completion{}, false, os.NewSyscallError("recvfrom", unix.EBADF)
	}
	if e.armErr != nil {
		return aio.Completion{}, false, e.armErr
	}
	if e.pending != nil {
		return aio.Completion{}, false, errors.ErrOperationInProgress
	}
	n := e.receives
	e.receives++
	if e.script != nil {
		if c, inline := e.script(n); inline {
			return c, false, nil
		}
	}
	e.buf, e.pending = buf, done
	return aio.Completion{}, true, nil
}

func (e *scriptedEngine) Shutdown(int) error { return nil }

func (e *scriptedEngine) Close(fd int) error {
	e.mu.Lock()
	e.closed = true
	done := e.pending
	e.pending = nil
	e.mu.Unlock()
	atomic.AddInt32(&e.closes, 1)

	err := unix.Close(fd)
	if done != nil {
		done(aio.Completion{Err: os.NewSyscallError("recvfrom", unix.ECANCELED)})
	}
	return err
}

func (e *scriptedEngine) Submit(task func()) { go task() }

func (e *scriptedEngine) Release() { atomic.AddInt32(&e.released, 1) }

func (e *scriptedEngine) Wait() error { return nil }

func (e *scriptedEngine) numReceives() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.receives
}

func (e *scriptedEngine) isPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil
}

// fire completes the outstanding receive on the calling goroutine.
func (e *scriptedEngine) fire(t *testing.T, data []byte, from unix.Sockaddr, err error) {
	t.Helper()
	e.mu.Lock()
	done, buf := e.pending, e.buf
	e.pending = nil
	e.mu.Unlock()
	require.NotNil(t, done, "no receive is outstanding")

	n := copy(buf, data)
	done(aio.Completion{N: n, From: from, Err: err})
}

func startScripted(t *testing.T, pool TokenPool, eh EventHandler, eng *scriptedEngine) *Listener {
	t.Helper()
	ln, err := NewListener(pool, eh)
	require.NoError(t, err)
	ln.openEngine = func(*Options) (completionEngine, error) { return eng, nil }
	require.NoError(t, ln.Start(Config{Network: "udp4", Address: "127.0.0.1:0"}))
	t.Cleanup(ln.Stop)
	return ln
}

var loopback = &unix.SockaddrInet4{Port: 4242, Addr: [4]byte{127, 0, 0, 1}}

func TestDispatcherOperationalErrorKeepsListening(t *testing.T) {
	pool := newTestPool(t, 4, false)
	eh := newRecordingHandler(pool)
	eng := new(scriptedEngine)
	ln := startScripted(t, pool, eh, eng)
	require.True(t, eng.isPending())

	eng.fire(t, nil, nil, os.NewSyscallError("recvfrom", unix.ECONNREFUSED))
	errs := eh.errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], unix.ECONNREFUSED)
	assert.Equal(t, 2, eng.numReceives(), "a failed receive must be replaced")
	assert.Zero(t, eh.datagramCount())

	eng.fire(t, []byte("abc"), loopback, nil)
	require.Equal(t, int32(1), eh.datagramCount())
	dg := eh.lastDatagram()
	assert.Equal(t, "abc", string(dg.payload))
	assert.Equal(t, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1).To4(), Port: 4242}, dg.remote)
	assert.Equal(t, 3, eng.numReceives())
	assert.Equal(t, StateListening, ln.State())

	ln.Stop()
	assert.Equal(t, int32(1), eh.stoppedCount())
	assert.Zero(t, pool.InUse())
}

func TestDispatcherShutdownErrorsAreSilent(t *testing.T) {
	for _, errno := range []unix.Errno{unix.ECANCELED, unix.EINTR, unix.ENOTSOCK, unix.EBADF} {
		t.Run(errno.Error(), func(t *testing.T) {
			pool := newTestPool(t, 4, false)
			eh := newRecordingHandler(pool)
			eng := new(scriptedEngine)
			ln := startScripted(t, pool, eh, eng)

			eng.fire(t, nil, nil, os.NewSyscallError("recvfrom", errno))
			assert.Empty(t, eh.errors())
			assert.Equal(t, 1, eng.numReceives(), "no receive is issued after a shutdown error")
			assert.Zero(t, pool.InUse())

			ln.Stop()
			assert.Equal(t, int32(1), eh.stoppedCount())
		})
	}
}

func TestDispatcherHandlerFailures(t *testing.T) {
	pool := newTestPool(t, 4, false)
	eh := newRecordingHandler(pool)
	errBadPayload := goerrors.New("bad payload")
	var calls int32
	eh.onDatagram = func(_ *Socket, tok *Token) error {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			return errBadPayload
		case 2:
			panic("boom")
		}
		pool.Release(tok)
		return nil
	}
	eng := new(scriptedEngine)
	ln := startScripted(t, pool, eh, eng)

	for i := 0; i < 3; i++ {
		eng.fire(t, []byte("x"), loopback, nil)
		assert.Equal(t, 1, pool.InUse(), "only the outstanding receive holds a token")
	}
	errs := eh.errors()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], errBadPayload)
	assert.ErrorIs(t, errs[1], errors.ErrHandlerPanic)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 4, eng.numReceives())

	ln.Stop()
	assert.Zero(t, pool.InUse())
}

func TestDispatcherPoolExhaustedReported(t *testing.T) {
	pool := newTestPool(t, 1, false)
	eh := newRecordingHandler(pool)
	held := make(chan *Token, 1)
	eh.onDatagram = func(_ *Socket, tok *Token) error {
		held <- tok
		return nil
	}
	eng := new(scriptedEngine)
	ln := startScripted(t, pool, eh, eng)

	eng.fire(t, []byte("keep"), loopback, nil)
	errs := eh.errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errors.ErrPoolExhausted)
	assert.Equal(t, 1, eng.numReceives())
	assert.False(t, eng.isPending())

	pool.Release(<-held)
	ln.Stop()
	assert.Equal(t, int32(1), eh.stoppedCount())
	assert.Zero(t, pool.InUse())
}

func TestDispatcherArmFailureReported(t *testing.T) {
	pool := newTestPool(t, 4, false)
	eh := newRecordingHandler(pool)
	errNoBufs := os.NewSyscallError("recvfrom", unix.ENOBUFS)
	eng := new(scriptedEngine)
	eh.onDatagram = func(_ *Socket, tok *Token) error {
		eng.mu.Lock()
		eng.armErr = errNoBufs
		eng.mu.Unlock()
		pool.Release(tok)
		return nil
	}
	startScripted(t, pool, eh, eng)

	eng.fire(t, []byte("x"), loopback, nil)
	errs := eh.errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], unix.ENOBUFS)
	assert.Zero(t, pool.InUse())
}

func TestDispatcherStopInsideHandler(t *testing.T) {
	pool := newTestPool(t, 4, false)
	eh := newRecordingHandler(pool)
	var ln *Listener
	eh.onDatagram = func(_ *Socket, tok *Token) error {
		pool.Release(tok)
		ln.Stop()
		return nil
	}
	eng := new(scriptedEngine)
	ln = startScripted(t, pool, eh, eng)

	eng.fire(t, []byte("bye"), loopback, nil)
	assert.Equal(t, StateStopped, ln.State())
	assert.Equal(t, 1, eng.numReceives(), "no receive is issued once stopped")
	assert.Equal(t, int32(1), eh.stoppedCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&eng.closes))
	assert.Equal(t, int32(1), atomic.LoadInt32(&eng.released))
	assert.Empty(t, eh.errors())
	assert.Zero(t, pool.InUse())
}

func TestDispatcherSynchronousStorm(t *testing.T) {
	const storm = 200000
	pool := newTestPool(t, 2, false)
	eh := newRecordingHandler(pool)

	var minDepth, maxDepth int32 = 1 << 30, 0
	pcs := make([]uintptr, 512)
	eh.onDatagram = func(_ *Socket, tok *Token) error {
		depth := int32(runtime.Callers(0, pcs))
		if depth < minDepth {
			minDepth = depth
		}
		if depth > maxDepth {
			maxDepth = depth
		}
		pool.Release(tok)
		return nil
	}
	eng := &scriptedEngine{script: func(n int) (aio.Completion, bool) {
		if n < storm {
			return aio.Completion{N: 1, From: loopback}, true
		}
		return aio.Completion{}, false
	}}
	ln := startScripted(t, pool, eh, eng)

	require.Eventually(t, func() bool { return eng.isPending() }, 30*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(storm), eh.datagramCount())
	assert.Equal(t, storm+1, eng.numReceives())
	assert.Equal(t, minDepth, maxDepth, "synchronous completions must not grow the stack")

	ln.Stop()
	assert.Equal(t, int32(1), eh.stoppedCount())
	assert.Zero(t, pool.InUse())
}

func TestStartArmFailure(t *testing.T) {
	pool := newTestPool(t, 4, false)
	eh := newRecordingHandler(pool)
	eng := &scriptedEngine{armErr: os.NewSyscallError("epoll_ctl", unix.ENOMEM)}

	ln, err := NewListener(pool, eh)
	require.NoError(t, err)
	ln.openEngine = func(*Options) (completionEngine, error) { return eng, nil }

	err = ln.Start(Config{Network: "udp4", Address: "127.0.0.1:0"})
	assert.ErrorIs(t, err, unix.ENOMEM)
	require.Len(t, eh.errors(), 1)
	assert.Equal(t, StateStopped, ln.State())
	assert.Nil(t, ln.LocalAddr())
	assert.Zero(t, pool.InUse())
	assert.Equal(t, int32(1), atomic.LoadInt32(&eng.closes))
	assert.Equal(t, int32(1), atomic.LoadInt32(&eng.released))

	ln.Stop()
	assert.Zero(t, eh.stoppedCount(), "a listener that never listened doesn't report a stop")
}

func TestStartEngineFailure(t *testing.T) {
	pool := newTestPool(t, 4, false)
	eh := newRecordingHandler(pool)
	errEngine := goerrors.New("no poller")

	ln, err := NewListener(pool, eh)
	require.NoError(t, err)
	ln.openEngine = func(*Options) (completionEngine, error) { return nil, errEngine }

	err = ln.Start(Config{Network: "udp4", Address: "127.0.0.1:0"})
	assert.ErrorIs(t, err, errEngine)
	assert.Len(t, eh.errors(), 1)
	assert.Equal(t, StateStopped, ln.State())
}
