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

import (
	"sync/atomic"

	"github.com/dgramio/dgram/pkg/errors"
)

// TokenPool supplies the tokens a listener receives into.
//
// The listener calls Release exactly once for every token it acquired and did
// not hand over to OnDatagram. Whether releasing the same token twice is
// harmless is up to the implementation.
type TokenPool interface {
	// Acquire returns a token ready for use, or an error when none is available.
	Acquire() (*Token, error)
	// Release gives a token back to the pool.
	Release(tok *Token)
}

// BoundedTokenPool is a TokenPool that never hands out more than a fixed
// number of tokens at once. Tokens are allocated lazily and recycled.
type BoundedTokenPool struct {
	free       chan *Token
	capacity   int
	bufferSize int
	blocking   bool
	created    int32
}

var _ TokenPool = (*BoundedTokenPool)(nil)

// NewTokenPool creates a pool of at most capacity tokens with bufferSize-byte
// buffers. When the pool is drained, Acquire waits for a Release if blocking
// is set and fails with errors.ErrPoolExhausted otherwise.
func NewTokenPool(capacity, bufferSize int, blocking bool) (*BoundedTokenPool, error) {
	if capacity <= 0 || bufferSize <= 0 {
		return nil, errors.ErrInvalidPoolSize
	}
	return &BoundedTokenPool{
		free:       make(chan *Token, capacity),
		capacity:   capacity,
		bufferSize: bufferSize,
		blocking:   blocking,
	}, nil
}

// Acquire implements TokenPool.
func (p *BoundedTokenPool) Acquire() (*Token, error) {
	select {
	case tok := <-p.free:
		return p.take(tok), nil
	default:
	}

	if int(atomic.AddInt32(&p.created, 1)) <= p.capacity {
		return NewToken(p.bufferSize), nil
	}
	atomic.AddInt32(&p.created, -1)

	if !p.blocking {
		return nil, errors.ErrPoolExhausted
	}
	return p.take(<-p.free), nil
}

func (p *BoundedTokenPool) take(tok *Token) *Token {
	atomic.StoreInt32(&tok.idle, 0)
	return tok
}

// Release implements TokenPool, releasing a token that is already back in the
// pool is a no-op.
func (p *BoundedTokenPool) Release(tok *Token) {
	if tok == nil || !atomic.CompareAndSwapInt32(&tok.idle, 0, 1) {
		return
	}
	tok.Reset()
	select {
	case p.free <- tok:
	default:
		// Not one of ours and the pool is full, let the GC have it.
	}
}

// Cap returns the maximum number of tokens handed out at once.
func (p *BoundedTokenPool) Cap() int { return p.capacity }

// Idle returns the number of tokens waiting in the pool.
func (p *BoundedTokenPool) Idle() int { return len(p.free) }

// InUse returns the number of tokens currently handed out.
func (p *BoundedTokenPool) InUse() int {
	return int(atomic.LoadInt32(&p.created)) - len(p.free)
}
