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

//go:build freebsd || dragonfly || darwin

package netpoll

import (
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/dgramio/dgram/internal/queue"
	"github.com/dgramio/dgram/pkg/errors"
	"github.com/dgramio/dgram/pkg/logging"
)

// IOEvent is the integer type of I/O events on BSD's.
type IOEvent = int16

// EVFilterSock is reported in place of the kqueue filter when the event carries EV_EOF or EV_ERROR.
const EVFilterSock = -0xd

type eventList struct {
	size   int
	events []unix.Kevent_t
}

func newEventList(size int) *eventList {
	return &eventList{size, make([]unix.Kevent_t, size)}
}

func (el *eventList) expand() {
	if newSize := el.size << 1; newSize <= MaxPollEventsCap {
		el.size = newSize
		el.events = make([]unix.Kevent_t, newSize)
	}
}

func (el *eventList) shrink() {
	if newSize := el.size >> 1; newSize >= MinPollEventsCap {
		el.size = newSize
		el.events = make([]unix.Kevent_t, newSize)
	}
}

// Poller represents a poller which is in charge of monitoring file-descriptors.
type Poller struct {
	fd             int
	wakeupCall     int32
	asyncTaskQueue queue.AsyncTaskQueue
}

// OpenPoller instantiates a poller.
func OpenPoller() (poller *Poller, err error) {
	poller = new(Poller)
	if poller.fd, err = unix.Kqueue(); err != nil {
		poller = nil
		err = os.NewSyscallError("kqueue", err)
		return
	}
	unix.CloseOnExec(poller.fd)
	if _, err = unix.Kevent(poller.fd, []unix.Kevent_t{{
		Ident:  0,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}, nil, nil); err != nil {
		_ = poller.Close()
		poller = nil
		err = os.NewSyscallError("kevent add|clear", err)
		return
	}
	poller.asyncTaskQueue = queue.NewLockFreeQueue()
	return
}

// Close closes the poller.
func (p *Poller) Close() error {
	return os.NewSyscallError("close", unix.Close(p.fd))
}

var note = []unix.Kevent_t{{
	Ident:  0,
	Filter: unix.EVFILT_USER,
	Fflags: unix.NOTE_TRIGGER,
}}

// Trigger puts task into asyncTaskQueue and wakes up the poller which is waiting for network-events,
// then the poller will get tasks from asyncTaskQueue and run them on its own goroutine.
func (p *Poller) Trigger(fn queue.TaskFunc, arg interface{}) (err error) {
	task := queue.GetTask()
	task.Run, task.Arg = fn, arg
	p.asyncTaskQueue.Enqueue(task)
	if atomic.CompareAndSwapInt32(&p.wakeupCall, 0, 1) {
		if _, err = unix.Kevent(p.fd, note, nil, nil); err == unix.EAGAIN {
			err = nil
		}
	}
	return os.NewSyscallError("kevent trigger", err)
}

// Polling blocks the current goroutine, waiting for network-events.
// It returns when callback or a triggered task returns errors.ErrEngineShutdown.
func (p *Poller) Polling(callback func(fd int, ev IOEvent) error) error {
	el := newEventList(InitPollEventsCap)

	var (
		ts       unix.Timespec
		tsp      *unix.Timespec
		doChores bool
	)
	for {
		n, err := unix.Kevent(p.fd, nil, el.events, tsp)
		if n == 0 || (n < 0 && err == unix.EINTR) {
			tsp = nil
			runtime.Gosched()
			continue
		} else if err != nil {
			logging.Errorf("error occurs in kqueue: %v", os.NewSyscallError("kevent wait", err))
			return err
		}
		tsp = &ts

		for i := 0; i < n; i++ {
			ev := &el.events[i]
			if ev.Filter == unix.EVFILT_USER {
				doChores = true
				continue
			}
			filter := ev.Filter
			if (ev.Flags&unix.EV_EOF != 0) || (ev.Flags&unix.EV_ERROR != 0) {
				filter = EVFilterSock
			}
			switch err = callback(int(ev.Ident), filter); err {
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
				switch _, err = unix.Kevent(p.fd, note, nil, nil); err {
				case nil, unix.EAGAIN:
				default:
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

func (p *Poller) armRead(fd int) error {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ONESHOT)
	_, err := unix.Kevent(p.fd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// AddRead registers the given file-descriptor with a one-shot readable event to the poller.
func (p *Poller) AddRead(fd int) error {
	return os.NewSyscallError("kevent add", p.armRead(fd))
}

// ModRead re-arms the one-shot readable event of a file-descriptor that has already been added.
func (p *Poller) ModRead(fd int) error {
	return os.NewSyscallError("kevent add", p.armRead(fd))
}

// Delete removes the given file-descriptor from the poller.
func (p *Poller) Delete(fd int) error {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, fd, unix.EVFILT_READ, unix.EV_DELETE)
	_, err := unix.Kevent(p.fd, []unix.Kevent_t{ev}, nil, nil)
	if err == unix.ENOENT {
		// The one-shot event has already fired and removed itself.
		err = nil
	}
	return os.NewSyscallError("kevent delete", err)
}

// IsErrorEvent reports whether ev carries an exceptional condition.
func IsErrorEvent(ev IOEvent) bool {
	return ev == EVFilterSock
}
