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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dgramio/dgram"
	dgramerrors "github.com/dgramio/dgram/pkg/errors"
)

const metricsNamespace = "dgramd"

type metrics struct {
	datagrams prometheus.Counter
	bytes     prometheus.Counter
	errors    *prometheus.CounterVec
	stops     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		datagrams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "udp",
			Name:      "datagrams_received_total",
			Help:      "Total datagrams delivered to the handler",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "udp",
			Name:      "bytes_received_total",
			Help:      "Total payload bytes delivered to the handler",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "udp",
			Name:      "errors_total",
			Help:      "Errors reported by the listener, by kind",
		}, []string{"kind"}),
		stops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "udp",
			Name:      "listener_stops_total",
			Help:      "Times the listener has stopped",
		}),
	}
	reg.MustRegister(m.datagrams, m.bytes, m.errors, m.stops)
	return m
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, dgramerrors.ErrPoolExhausted):
		return "pool_exhausted"
	case errors.Is(err, dgramerrors.ErrHandlerPanic):
		return "handler_panic"
	default:
		return "other"
	}
}

// instrumentedHandler counts the events of next.
type instrumentedHandler struct {
	next    dgram.EventHandler
	metrics *metrics
}

func (h *instrumentedHandler) OnDatagram(s *dgram.Socket, tok *dgram.Token) error {
	// Count first, next may hand the token back to the pool.
	h.metrics.datagrams.Inc()
	h.metrics.bytes.Add(float64(tok.Len()))
	return h.next.OnDatagram(s, tok)
}

func (h *instrumentedHandler) OnError(err error) {
	h.metrics.errors.WithLabelValues(errorKind(err)).Inc()
	h.next.OnError(err)
}

func (h *instrumentedHandler) OnStopped() {
	h.metrics.stops.Inc()
	h.next.OnStopped()
}
