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

// Command dgramd is a UDP echo daemon built on the dgram listener.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/dgramio/dgram/pkg/logging"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"listen":        "listen",
	"pool-size":     "pool.size",
	"buffer-size":   "pool.buffer_size",
	"blocking-pool": "pool.blocking",
	"workers":       "workers",
	"reuseport":     "socket.reuseport",
	"recv-buffer":   "socket.recv_buffer",
	"send-buffer":   "socket.send_buffer",
	"metrics-addr":  "metrics.addr",
	"log-path":      "log.path",
	"log-level":     "log.level",
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "dgramd",
		Usage: "echo every UDP datagram back to its sender",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path of the YAML configuration file"},
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "address to listen on, e.g. udp4://0.0.0.0:9000"},
			&cli.IntFlag{Name: "pool-size", Usage: "maximum number of receive tokens"},
			&cli.IntFlag{Name: "buffer-size", Usage: "receive buffer size of each token in bytes"},
			&cli.BoolFlag{Name: "blocking-pool", Usage: "wait for a free token instead of failing the receive"},
			&cli.IntFlag{Name: "workers", Usage: "capacity of the reply worker pool, 0 for the default"},
			&cli.BoolFlag{Name: "reuseport", Usage: "set SO_REUSEPORT on the socket"},
			&cli.IntFlag{Name: "recv-buffer", Usage: "socket receive buffer in bytes, 0 for the system default"},
			&cli.IntFlag{Name: "send-buffer", Usage: "socket send buffer in bytes, 0 for the system default"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "address of the Prometheus endpoint, empty to disable"},
			&cli.StringFlag{Name: "log-path", Usage: "write logs to this file instead of stdout"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String("config"), flagOverrides(c))
			if err != nil {
				return cli.Exit(err, 2)
			}
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}
}

func flagOverrides(c *cli.Context) map[string]interface{} {
	overrides := make(map[string]interface{})
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}
	return overrides
}

// run serves until ctx is done or the metrics endpoint fails.
func run(ctx context.Context, cfg Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d, err := startDaemon(cfg, reg)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		d.logger.Infof("shutting down: %v", context.Cause(ctx))
	case err = <-d.Failed():
		d.logger.Errorf("shutting down: %v", err)
	}
	return d.stop()
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logging.Errorf("dgramd: %v", err)
		logging.Cleanup()
		os.Exit(1)
	}
	logging.Cleanup()
}
