// Copyright (c) 2019 Andy Pan
// Copyright (c) 2017 Joshua J Baker
// Copyright (c) 2026 The Dgram Authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

//go:build linux

package netpoll

import (
	"os"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/dgramio/dgram/internal/queue"
	"github.com/dgramio/dgram/pkg/errors"
	"github.com/dgramio/dgram/pkg/logging"
)

// IOEvent is the integer type of I/O events on Linux.
type IOEvent = uint32

const (
	readEvents = unix.EPOLLPRI | unix.EPOLLIN
	// ErrEvents represents exceptional events that are not read/write, like socket being closed,
	// reading/writing from/to a closed socket, etc.
	ErrEvents = unix.EPOLLERR | unix.EPOLLHUP | unix.EPOLLRDHUP
)

type eventList struct {
	size   int
	events []unix.EpollEvent
}

func newEventList(size int) *eventList {
	return &eventList{size, make([]unix.EpollEvent, size)}
}

func (el *eventList) expand() {
	if newSize := el.size << 1; newSize <= MaxPollEventsCap {
		el.size = newSize
		el.events = make([]unix.EpollEvent, newSize)
	}
}

func (el *eventList) shrink() {
	if newSize := el.size >> 1; newSize >= MinPollEventsCap {
		el.size = newSize
		el.events = make([]unix.EpollEvent, newSize)
	}
}

// Poller represents a poller which is in charge of monitoring file-descriptors.
type Poller struct {
	fd             int    // epoll fd
	efd            int    // eventfd used to wake up the poller
	efdBuf         []byte // efd buffer to read packet
	wakeupCall     int32
	asyncTaskQueue queue.AsyncTaskQueue
}

// OpenPoller instantiates a poller.
func OpenPoller() (poller *Poller, err error) {
	poller = new(Poller)
	if poller.fd, err = unix.EpollCreate1(unix.EPOLL_CLOEXEC); err != nil {
		poller = nil
		err = os.NewSyscallError("epoll_create1", err)
		return
	}
	if poller.efd, err = unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC); err != nil {
		_ = unix.Close(poller.fd)
		poller = nil
		err = os.NewSyscallError("eventfd", err)
		return
	}
	poller.efdBuf = make([]byte, 8)
	// The wake-up descriptor stays level-triggered, it is never one-shot.
	if err = os.NewSyscallError("epoll_ctl add", unix.EpollCtl(poller.fd, unix.EPOLL_CTL_ADD, poller.efd,
		&unix.EpollEvent{Fd: int32(poller.efd), Events: readEvents})); err != nil {
		_ = poller.Close()
		poller = nil
		return
	}
	poller.asyncTaskQueue = queue.NewLockFreeQueue()
	return
}

// Close closes the poller.
func (p *Poller) Close() error {
	if err := os.NewSyscallError("close", unix.Close(p.fd)); err != nil {
		_ = unix.Close(p.efd)
		return err
	}
	return os.NewSyscallError("close", unix.Close(p.efd))
}

// Make the endianness of bytes compatible with more linux OSs under different processor-architectures,
// according to http://man7.org/linux/man-pages/man2/eventfd.2.html.
var (
	u uint64 = 1
	b        = (*(*[8]byte)(unsafe.Pointer(&u)))[:]
)

// Trigger puts task into asyncTaskQueue and wakes up the poller which is waiting for network-events,
// then the poller will get tasks from asyncTaskQueue and run them on its own goroutine.
func (p *Poller) Trigger(fn queue.TaskFunc, arg interface{}) (err error) {
	task := queue.GetTask()
	task.Run, task.Arg = fn, arg
	p.asyncTaskQueue.Enqueue(task)
	if atomic.CompareAndSwapInt32(&p.wakeupCall, 0, 1) {
		for _, err = unix.Write(p.efd, b); err == unix.EINTR || err == unix.EAGAIN; _, err = unix.Write(p.efd, b) {
		}
	}
	return os.NewSyscallError("write", err)
}

// Polling blocks the current goroutine, waiting for network-events.
// It returns when callback or a triggered task returns errors.ErrEngineShutdown.
func (p *Poller) Polling(callback func(fd int, ev IOEvent) error) error {
	el := newEventList(InitPollEventsCap)
	var doChores bool

	msec := -1
	for {
		n, err := unix.EpollWait(p.fd, el.events, msec)
		if n == 0 || (n < 0 && err == unix.EINTR) {
			msec = -1
			runtime.Gosched()
			continue
		} else if err != nil {
			logging.Errorf("error occurs in epoll: %v", os.NewSyscallError("epoll_wait", err))
			return err
		}
		msec = 0

		for i := 0; i < n; i++ {
			ev := &el.events[i]
			if fd := int(ev.Fd); fd == p.efd {
				doChores = true
				_, _ = unix.Read(p.efd, p.efdBuf)
				continue
			}
			switch err = callback(int(ev.Fd), ev.Events); err {
			case nil:
			case errors.ErrEngineShutdown:
				return err
			default:
				logging.Warnf("error occurs in poller: %v", err)
			}
		}

		if doChores {
			doChores = false
			if err = p.runTasks(); err != nil {
				return err
			}
			atomic.StoreInt32(&p.wakeupCall, 0)
			if !p.asyncTaskQueue.IsEmpty() && atomic.CompareAndSwapInt32(&p.wakeupCall, 0, 1) {
				for _, err = unix.Write(p.efd, b); err == unix.EINTR || err == unix.EAGAIN; _, err = unix.Write(p.efd, b) {
				}
				if err != nil {
					doChores = true
				}
			}
		}

		if n == el.size {
			el.expand()
		} else if n < el.size>>1 {
			el.shrink()
		}
	}
}

func (p *Poller) runTasks() error {
	for i := 0; i < MaxAsyncTasksAtOneTime; i++ {
		task := p.asyncTaskQueue.Dequeue()
		if task == nil {
			break
		}
		err := task.Run(task.Arg)
		queue.PutTask(task)
		switch err {
		case nil:
		case errors.ErrEngineShutdown:
			return err
		default:
			logging.Warnf("error occurs in poller task, %v", err)
		}
	}
	return nil
}

const oneShotReadEvents = readEvents | unix.EPOLLONESHOT

// AddRead registers the given file-descriptor with a one-shot readable event to the poller.
func (p *Poller) AddRead(fd int) error {
	return os.NewSyscallError("epoll_ctl add",
		unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: oneShotReadEvents}))
}

// ModRead re-arms the one-shot readable event of a file-descriptor that has already been added.
func (p *Poller) ModRead(fd int) error {
	return os.NewSyscallError("epoll_ctl mod",
		unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: oneShotReadEvents}))
}

// Delete removes the given file-descriptor from the poller.
func (p *Poller) Delete(fd int) error {
	return os.NewSyscallError("epoll_ctl del", unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil))
}

// IsErrorEvent reports whether ev carries an exceptional condition.
func IsErrorEvent(ev IOEvent) bool {
	return ev&ErrEvents != 0
}
