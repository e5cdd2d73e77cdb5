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

// Package aio turns the readiness notifications of netpoll into completions:
// a receive is issued once, and its outcome is handed to a callback exactly
// once, either right away (synchronous completion) or later on a worker
// goroutine owned by the Engine.
package aio

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/dgramio/dgram/internal/netpoll"
	"github.com/dgramio/dgram/pkg/errors"
	"github.com/dgramio/dgram/pkg/logging"
	"github.com/dgramio/dgram/pkg/pool/goroutine"
)

// Completion is the outcome of one receive.
type Completion struct {
	N    int           // number of bytes written into the buffer
	From unix.Sockaddr // sender address, nil on failure
	Err  error         // nil on success
}

// CompletionFunc is the single-use callback invoked when a pending receive finishes.
type CompletionFunc func(Completion)

type operation struct {
	buf  []byte
	done CompletionFunc
}

// fdState tracks one registered descriptor, mu serializes the receive
// syscall against Close so a recycled descriptor number is never read from.
type fdState struct {
	mu     sync.Mutex
	polled bool // whether the descriptor has been added to the poller
	closed bool
	op     *operation
}

// Engine is the completion facility, one polling goroutine plus a pool of
// workers on which asynchronous completions are delivered.
type Engine struct {
	poller  *netpoll.Poller
	workers *goroutine.Pool
	logger  logging.Logger
	eg      errgroup.Group

	mu  sync.RWMutex
	fds map[int]*fdState

	released int32
}

// Open starts a new Engine whose worker pool holds at most workers goroutines,
// a non-positive value picks the default capacity.
func Open(workers int, logger logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	poller, err := netpoll.OpenPoller()
	if err != nil {
		return nil, err
	}
	pool, err := goroutine.New(workers, logger)
	if err != nil {
		_ = poller.Close()
		return nil, err
	}
	e := &Engine{
		poller:  poller,
		workers: pool,
		logger:  logger,
		fds:     make(map[int]*fdState),
	}
	e.eg.Go(func() error {
		defer func() {
			if err := e.poller.Close(); err != nil {
				e.logger.Errorf("failed to close poller: %v", err)
			}
		}()
		err := e.poller.Polling(e.onEvent)
		if err == errors.ErrEngineShutdown {
			return nil
		}
		return err
	})
	return e, nil
}

// Register hands the ownership of fd to the engine, from now on the descriptor
// must be closed with Close.
func (e *Engine) Register(fd int) error {
	if atomic.LoadInt32(&e.released) == 1 {
		return errors.ErrEngineShutdown
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.fds[fd]; ok {
		return fmt.Errorf("fd %d is already registered: %w", fd, unix.EEXIST)
	}
	e.fds[fd] = new(fdState)
	return nil
}

func (e *Engine) lookup(fd int) *fdState {
	e.mu.RLock()
	st := e.fds[fd]
	e.mu.RUnlock()
	return st
}

// ReceiveFrom issues a receive of one datagram into buf.
//
// When the datagram (or a failure) is already available the receive completes
// synchronously: pending is false, the result is returned in c and done is
// never called. Otherwise pending is true and done is called exactly once on
// a worker goroutine, with the datagram, a failure, or unix.ECANCELED if the
// descriptor is closed first. A non-nil err means the receive was not issued
// at all.
func (e *Engine) ReceiveFrom(fd int, buf []byte, done CompletionFunc) (c Completion, pending bool, err error) {
	st := e.lookup(fd)
	if st == nil {
		return c, false, os.NewSyscallError("recvfrom", unix.EBADF)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return c, false, os.NewSyscallError("recvfrom", unix.EBADF)
	}
	if st.op != nil {
		return c, false, errors.ErrOperationInProgress
	}

	n, sa, rerr := recvfrom(fd, buf)
	if rerr != unix.EAGAIN {
		if rerr != nil {
			return Completion{Err: os.NewSyscallError("recvfrom", rerr)}, false, nil
		}
		return Completion{N: n, From: sa}, false, nil
	}

	if st.polled {
		err = e.poller.ModRead(fd)
	} else if err = e.poller.AddRead(fd); err == nil {
		st.polled = true
	}
	if err != nil {
		return c, false, err
	}
	st.op = &operation{buf: buf, done: done}
	return c, true, nil
}

// onEvent runs on the polling goroutine.
func (e *Engine) onEvent(fd int, _ netpoll.IOEvent) error {
	st := e.lookup(fd)
	if st == nil {
		return nil
	}

	st.mu.Lock()
	op := st.op
	if op == nil || st.closed {
		st.mu.Unlock()
		return nil
	}
	n, sa, err := recvfrom(fd, op.buf)
	if err == unix.EAGAIN {
		// Spurious wake-up, wait for the next one.
		if err = e.poller.ModRead(fd); err == nil {
			st.mu.Unlock()
			return nil
		}
	} else if err != nil {
		err = os.NewSyscallError("recvfrom", err)
	}
	if err != nil {
		n, sa = 0, nil
	}
	st.op = nil
	st.mu.Unlock()

	e.complete(op.done, Completion{N: n, From: sa, Err: err})
	return nil
}

// complete delivers c on a worker, falling back to a bare goroutine once the
// pool is closed so that no completion is ever lost.
func (e *Engine) complete(done CompletionFunc, c Completion) {
	e.Submit(func() { done(c) })
}

// Submit runs task on one of the engine's workers.
func (e *Engine) Submit(task func()) {
	if err := e.workers.Submit(task); err != nil {
		go task()
	}
}

// Shutdown disables further sends and receives on fd, UDP sockets that were
// never connected report ENOTCONN on some platforms.
func (e *Engine) Shutdown(fd int) error {
	return os.NewSyscallError("shutdown", unix.Shutdown(fd, unix.SHUT_RDWR))
}

// Close unregisters and closes fd. A receive still pending on it completes
// with unix.ECANCELED.
func (e *Engine) Close(fd int) error {
	e.mu.Lock()
	st := e.fds[fd]
	delete(e.fds, fd)
	e.mu.Unlock()

	if st == nil {
		return os.NewSyscallError("close", unix.Close(fd))
	}
	return e.closeState(fd, st)
}

func (e *Engine) closeState(fd int, st *fdState) error {
	st.mu.Lock()
	st.closed = true
	op := st.op
	st.op = nil
	if st.polled {
		_ = e.poller.Delete(fd)
	}
	err := os.NewSyscallError("close", unix.Close(fd))
	st.mu.Unlock()

	if op != nil {
		e.complete(op.done, Completion{Err: os.NewSyscallError("recvfrom", unix.ECANCELED)})
	}
	return err
}

// Release closes every descriptor still registered, stops the polling
// goroutine and the workers. It doesn't wait for completions in flight,
// call Wait for the polling goroutine.
func (e *Engine) Release() {
	if !atomic.CompareAndSwapInt32(&e.released, 0, 1) {
		return
	}

	e.mu.Lock()
	fds := e.fds
	e.fds = make(map[int]*fdState)
	e.mu.Unlock()
	for fd, st := range fds {
		if err := e.closeState(fd, st); err != nil {
			e.logger.Warnf("failed to close fd=%d while releasing engine: %v", fd, err)
		}
	}

	if err := e.poller.Trigger(func(interface{}) error { return errors.ErrEngineShutdown }, nil); err != nil {
		e.logger.Errorf("failed to wake up poller: %v", err)
	}
	e.workers.Release()
}

// Wait blocks until the polling goroutine has exited and returns its error.
func (e *Engine) Wait() error {
	return e.eg.Wait()
}

func recvfrom(fd int, buf []byte) (n int, sa unix.Sockaddr, err error) {
	for {
		n, sa, err = unix.Recvfrom(fd, buf, 0)
		if err != unix.EINTR {
			return
		}
	}
}
