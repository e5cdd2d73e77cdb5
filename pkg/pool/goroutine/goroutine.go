// Copyright (c) 2019 Andy Pan
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

// Package goroutine provides the worker pool on which completions and
// protocol work are executed, it is a thin layer over ants.
package goroutine

import (
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/dgramio/dgram/pkg/logging"
)

const (
	// DefaultAntsPoolSize sets up the capacity of worker pool, 256 * 1024.
	DefaultAntsPoolSize = 1 << 18

	// ExpiryDuration is the interval time to clean up those expired workers.
	ExpiryDuration = 10 * time.Second

	// Nonblocking decides what to do when submitting a new task to a full worker pool: waiting for a available worker
	// or returning ants.ErrPoolOverload directly.
	Nonblocking = false
)

func init() {
	// It releases the default pool from ants.
	ants.Release()
}

// Pool is the alias of ants.Pool.
type Pool = ants.Pool

// Default instantiates a blocking *Pool with the capacity of DefaultAntsPoolSize.
func Default() *Pool {
	p, _ := New(DefaultAntsPoolSize, logging.GetDefaultLogger())
	return p
}

// New instantiates a blocking *Pool with the given capacity, panics raised
// by tasks and messages from ants are reported through logger.
func New(size int, logger logging.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultAntsPoolSize
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	options := ants.Options{
		ExpiryDuration: ExpiryDuration,
		Nonblocking:    Nonblocking,
		Logger:         logging.PrintfAdapter{Logger: logger},
		PanicHandler: func(v interface{}) {
			logger.Errorf("worker exits from panic: %v", v)
		},
	}
	return ants.NewPool(size, ants.WithOptions(options))
}
