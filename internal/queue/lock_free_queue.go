// Copyright (c) 2021 Andy Pan
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

package queue

import (
	"sync/atomic"
	"unsafe"
)

// lockFreeQueue is the non-blocking concurrent queue of Michael and Scott,
// https://dl.acm.org/doi/10.1145/248052.248106. The head always points at a
// sentinel node, the first real task is head.next.
type lockFreeQueue struct {
	head   unsafe.Pointer
	tail   unsafe.Pointer
	length int32
}

type node struct {
	value *Task
	next  unsafe.Pointer
}

// NewLockFreeQueue instantiates and returns a lockFreeQueue.
func NewLockFreeQueue() AsyncTaskQueue {
	n := unsafe.Pointer(&node{})
	return &lockFreeQueue{head: n, tail: n}
}

// Enqueue puts the given task at the tail of the queue.
func (q *lockFreeQueue) Enqueue(task *Task) {
	n := &node{value: task}
	for {
		tail := load(&q.tail)
		next := load(&tail.next)
		if tail != load(&q.tail) {
			continue
		}
		if next != nil {
			// Tail is lagging behind, help it along and retry.
			cas(&q.tail, tail, next)
			continue
		}
		if cas(&tail.next, nil, n) {
			cas(&q.tail, tail, n)
			atomic.AddInt32(&q.length, 1)
			return
		}
	}
}

// Dequeue removes and returns the task at the head of the queue.
// It returns nil if the queue is empty.
func (q *lockFreeQueue) Dequeue() *Task {
	for {
		head := load(&q.head)
		tail := load(&q.tail)
		next := load(&head.next)
		if head != load(&q.head) {
			continue
		}
		if head == tail {
			if next == nil {
				return nil
			}
			cas(&q.tail, tail, next)
			continue
		}
		// Read the value before the CAS, a concurrent Dequeue may recycle next afterwards.
		task := next.value
		if cas(&q.head, head, next) {
			next.value = nil
			atomic.AddInt32(&q.length, -1)
			return task
		}
	}
}

// IsEmpty indicates whether this queue is empty or not.
func (q *lockFreeQueue) IsEmpty() bool {
	return atomic.LoadInt32(&q.length) == 0
}

// Len returns the number of tasks waiting in the queue.
func (q *lockFreeQueue) Len() int {
	return int(atomic.LoadInt32(&q.length))
}

func load(p *unsafe.Pointer) *node {
	return (*node)(atomic.LoadPointer(p))
}

func cas(p *unsafe.Pointer, old, new *node) bool { //nolint:predeclared
	return atomic.CompareAndSwapPointer(p, unsafe.Pointer(old), unsafe.Pointer(new))
}
