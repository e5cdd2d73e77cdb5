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

package goroutine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *capturingLogger) record(format string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, format)
	l.mu.Unlock()
}

func (l *capturingLogger) Debugf(format string, _ ...interface{}) { l.record(format) }
func (l *capturingLogger) Infof(format string, _ ...interface{})  { l.record(format) }
func (l *capturingLogger) Warnf(format string, _ ...interface{})  { l.record(format) }
func (l *capturingLogger) Errorf(format string, _ ...interface{}) { l.record(format) }
func (l *capturingLogger) Fatalf(format string, _ ...interface{}) { l.record(format) }

func TestPoolRunsTasks(t *testing.T) {
	p, err := New(4, nil)
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, 4, p.Cap())

	var (
		wg  sync.WaitGroup
		ran int32
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&ran, 1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(100), atomic.LoadInt32(&ran))
}

func TestPoolDefaultSize(t *testing.T) {
	p, err := New(0, nil)
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, DefaultAntsPoolSize, p.Cap())
}

func TestPoolPanicIsLogged(t *testing.T) {
	logger := new(capturingLogger)
	p, err := New(1, logger)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))
	assert.Eventually(t, func() bool {
		logger.mu.Lock()
		defer logger.mu.Unlock()
		return len(logger.msgs) > 0
	}, time.Second, time.Millisecond)
}

func TestPoolSubmitAfterRelease(t *testing.T) {
	p, err := New(1, nil)
	require.NoError(t, err)
	p.Release()
	assert.Error(t, p.Submit(func() {}))
}
