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
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dgramio/dgram"
	"github.com/dgramio/dgram/pkg/logging"
	"github.com/dgramio/dgram/pkg/pool/goroutine"
)

const shutdownTimeout = 5 * time.Second

// daemon is a running echo listener plus its metrics endpoint.
type daemon struct {
	ln      *dgram.Listener
	pool    *dgram.BoundedTokenPool
	workers *goroutine.Pool
	logger  logging.Logger
	flush   logging.Flusher

	metricsLn net.Listener
	srv       *http.Server
	eg        errgroup.Group
	failed    chan error
}

func startDaemon(cfg Config, reg *prometheus.Registry) (d *daemon, err error) {
	d = &daemon{logger: logging.GetDefaultLogger(), failed: make(chan error, 1)}
	if cfg.LogPath != "" {
		lvl, _ := logging.ParseLevel(cfg.LogLevel)
		if d.logger, d.flush, err = logging.CreateLoggerAsLocalFile(cfg.LogPath, lvl); err != nil {
			return nil, err
		}
	}
	defer func() {
		if err != nil {
			d.release()
		}
	}()

	if d.pool, err = dgram.NewTokenPool(cfg.PoolSize, cfg.BufferSize, cfg.BlockingPool); err != nil {
		return
	}
	if d.workers, err = goroutine.New(cfg.Workers, d.logger); err != nil {
		return
	}

	var eh dgram.EventHandler = &echoHandler{pool: d.pool, workers: d.workers, logger: d.logger}
	if reg != nil {
		eh = &instrumentedHandler{next: eh, metrics: newMetrics(reg)}
		if cfg.MetricsAddr != "" {
			if err = d.serveMetrics(cfg.MetricsAddr, reg); err != nil {
				return
			}
		}
	}

	if d.ln, err = dgram.NewListener(d.pool, eh, cfg.listenerOptions(d.logger)...); err != nil {
		return
	}
	if err = d.ln.Start(dgram.ParseProtoAddr(cfg.Listen)); err != nil {
		return
	}
	d.logger.Infof("dgramd is echoing on %v", d.ln.LocalAddr())
	return d, nil
}

func (d *daemon) serveMetrics(addr string, reg *prometheus.Registry) (err error) {
	if d.metricsLn, err = net.Listen("tcp", addr); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	d.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln := d.metricsLn
	d.eg.Go(func() error {
		err := d.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		d.logger.Errorf("metrics server on %s failed: %v", ln.Addr(), err)
		d.failed <- err
		return err
	})
	d.logger.Infof("serving metrics on http://%s/metrics", ln.Addr())
	return nil
}

// Failed delivers the error of a metrics endpoint that stopped serving on its own.
func (d *daemon) Failed() <-chan error {
	return d.failed
}

// stop stops the listener, then the metrics endpoint and the reply workers.
func (d *daemon) stop() error {
	if d.ln != nil {
		d.ln.Stop()
	}
	return d.release()
}

func (d *daemon) release() error {
	if d.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := d.srv.Shutdown(ctx); err != nil {
			d.logger.Warnf("failed to shut down metrics server: %v", err)
		}
	} else if d.metricsLn != nil {
		_ = d.metricsLn.Close()
	}
	err := d.eg.Wait()
	if d.workers != nil {
		d.workers.Release()
	}
	if d.flush != nil {
		_ = d.flush()
	}
	return err
}
