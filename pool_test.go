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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgramio/dgram/pkg/errors"
)

func TestNewTokenPoolInvalidSize(t *testing.T) {
	_, err := NewTokenPool(0, 1024, false)
	assert.ErrorIs(t, err, errors.ErrInvalidPoolSize)
	_, err = NewTokenPool(8, -1, true)
	assert.ErrorIs(t, err, errors.ErrInvalidPoolSize)
}

func TestTokenPoolNonBlocking(t *testing.T) {
	p, err := NewTokenPool(2, 512, false)
	require.NoError(t, err)

	a, err := p.Acquire()
	require.NoError(t, err)
	b, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Len(t, a.Buffer(), 512)
	assert.Equal(t, 2, p.InUse())

	_, err = p.Acquire()
	assert.ErrorIs(t, err, errors.ErrPoolExhausted)

	a.SetContext("session")
	p.Release(a)
	assert.Equal(t, 1, p.InUse())
	assert.Equal(t, 1, p.Idle())

	c, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, a, c, "released tokens are recycled")
	assert.Nil(t, c.Context())
	assert.Equal(t, OpNone, c.Op())
	assert.Zero(t, c.Len())

	p.Release(b)
	p.Release(c)
	assert.Zero(t, p.InUse())
	assert.Equal(t, 2, p.Cap())
}

func TestTokenPoolDoubleRelease(t *testing.T) {
	p, err := NewTokenPool(2, 64, false)
	require.NoError(t, err)

	tok, err := p.Acquire()
	require.NoError(t, err)
	p.Release(tok)
	p.Release(tok)
	p.Release(nil)
	assert.Equal(t, 1, p.Idle())

	a, err := p.Acquire()
	require.NoError(t, err)
	b, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, a, b, "a token released twice must not be handed out twice")
}

func TestTokenPoolForeignToken(t *testing.T) {
	p, err := NewTokenPool(1, 64, false)
	require.NoError(t, err)

	p.Release(NewToken(64))
	p.Release(NewToken(64))
	assert.Equal(t, 1, p.Idle())
}

func TestTokenPoolBlocking(t *testing.T) {
	p, err := NewTokenPool(1, 64, true)
	require.NoError(t, err)

	held, err := p.Acquire()
	require.NoError(t, err)

	got := make(chan *Token)
	go func() {
		tok, err := p.Acquire()
		assert.NoError(t, err)
		got <- tok
	}()

	select {
	case <-got:
		t.Fatal("Acquire must wait while the pool is drained")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(held)
	select {
	case tok := <-got:
		assert.Same(t, held, tok)
	case <-time.After(3 * time.Second):
		t.Fatal("Acquire didn't return after Release")
	}
}

func TestTokenPoolConcurrent(t *testing.T) {
	const capacity = 4
	p, err := NewTokenPool(capacity, 64, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				tok, err := p.Acquire()
				if !assert.NoError(t, err) {
					return
				}
				p.Release(tok)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, p.InUse())
	assert.LessOrEqual(t, p.Idle(), capacity)
}

func TestTokenPrepareAndReset(t *testing.T) {
	tok := NewToken(16)
	tok.SetContext(42)
	tok.prepare(nil)
	assert.Equal(t, OpReceiveFrom, tok.Op())
	assert.Equal(t, 42, tok.Context(), "prepare keeps the context")
	assert.Empty(t, tok.Payload())

	tok.Reset()
	assert.Equal(t, OpNone, tok.Op())
	assert.Nil(t, tok.Context())
	assert.Nil(t, tok.RemoteAddr())
	assert.NoError(t, tok.Err())
}

func TestParseProtoAddr(t *testing.T) {
	assert.Equal(t, Config{Network: "udp4", Address: "127.0.0.1:9000"}, ParseProtoAddr("udp4://127.0.0.1:9000"))
	assert.Equal(t, Config{Network: "udp6", Address: "[::1]:0"}, ParseProtoAddr("UDP6://[::1]:0"))
	assert.Equal(t, Config{Network: "udp", Address: ":5353"}, ParseProtoAddr(":5353"))
	assert.Equal(t, "udp4://127.0.0.1:9000", ParseProtoAddr("udp4://127.0.0.1:9000").String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())
}
