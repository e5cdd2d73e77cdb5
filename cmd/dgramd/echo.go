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

package main

import (
	"errors"

	"github.com/dgramio/dgram"
	dgramerrors "github.com/dgramio/dgram/pkg/errors"
	"github.com/dgramio/dgram/pkg/logging"
	"github.com/dgramio/dgram/pkg/pool/bytebuffer"
	"github.com/dgramio/dgram/pkg/pool/goroutine"
)

// echoHandler sends every datagram back to its sender. The payload is copied
// out so the token goes back to the pool before the reply is written.
type echoHandler struct {
	dgram.BuiltinEventHandler

	pool    dgram.TokenPool
	workers *goroutine.Pool
	logger  logging.Logger
}

func (h *echoHandler) OnDatagram(s *dgram.Socket, tok *dgram.Token) error {
	buf := bytebuffer.Clone(tok.Payload())
	addr := tok.RemoteAddr()
	err := h.workers.Submit(func() {
		defer bytebuffer.Put(buf)
		if _, err := s.WriteTo(buf.B, addr); err != nil && !errors.Is(err, dgramerrors.ErrListenerStopped) {
			h.logger.Warnf("failed to echo %d bytes to %v: %v", buf.Len(), addr, err)
		}
	})
	if err != nil {
		bytebuffer.Put(buf)
		return err
	}
	h.pool.Release(tok)
	return nil
}

func (h *echoHandler) OnError(err error) {
	h.logger.Warnf("listener error: %v", err)
}

func (h *echoHandler) OnStopped() {
	h.logger.Infof("listener stopped")
}
