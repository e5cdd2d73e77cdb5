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
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"

	"github.com/dgramio/dgram"
	"github.com/dgramio/dgram/pkg/logging"
)

const (
	configName = "dgramd"
	envPrefix  = "DGRAMD"

	maxDatagramSize = 65535
)

// Config is the process configuration of dgramd.
type Config struct {
	Listen       string
	PoolSize     int
	BufferSize   int
	BlockingPool bool
	Workers      int
	ReusePort    bool
	RecvBuffer   int
	SendBuffer   int
	MetricsAddr  string
	LogPath      string
	LogLevel     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "udp://0.0.0.0:9000")
	v.SetDefault("pool.size", 1024)
	v.SetDefault("pool.buffer_size", 2048)
	v.SetDefault("pool.blocking", false)
	v.SetDefault("workers", 0)
	v.SetDefault("socket.reuseport", false)
	v.SetDefault("socket.recv_buffer", 0)
	v.SetDefault("socket.send_buffer", 0)
	v.SetDefault("metrics.addr", "127.0.0.1:9100")
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
}

// loadConfig merges, from lowest to highest precedence, the defaults, the
// YAML file, DGRAMD_* environment variables and overrides. An empty path
// looks for dgramd.yaml in the working directory and /etc/dgramd, the file
// is optional then.
func loadConfig(path string, overrides map[string]interface{}) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dgramd")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := Config{
		Listen:       strings.TrimSpace(v.GetString("listen")),
		PoolSize:     v.GetInt("pool.size"),
		BufferSize:   v.GetInt("pool.buffer_size"),
		BlockingPool: v.GetBool("pool.blocking"),
		Workers:      v.GetInt("workers"),
		ReusePort:    v.GetBool("socket.reuseport"),
		RecvBuffer:   v.GetInt("socket.recv_buffer"),
		SendBuffer:   v.GetInt("socket.send_buffer"),
		MetricsAddr:  strings.TrimSpace(v.GetString("metrics.addr")),
		LogPath:      strings.TrimSpace(v.GetString("log.path")),
		LogLevel:     strings.TrimSpace(v.GetString("log.level")),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	listen := dgram.ParseProtoAddr(c.Listen)
	switch listen.Network {
	case "udp", "udp4", "udp6":
	default:
		return fmt.Errorf("invalid listen %q: network must be udp, udp4 or udp6", c.Listen)
	}
	if _, _, err := net.SplitHostPort(listen.Address); err != nil {
		return fmt.Errorf("invalid listen %q: %w", c.Listen, err)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("invalid pool.size %d", c.PoolSize)
	}
	if c.BufferSize <= 0 || c.BufferSize > maxDatagramSize {
		return fmt.Errorf("invalid pool.buffer_size %d, must be within 1..%d", c.BufferSize, maxDatagramSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d", c.Workers)
	}
	if c.RecvBuffer < 0 || c.SendBuffer < 0 {
		return fmt.Errorf("invalid socket buffers recv=%d send=%d", c.RecvBuffer, c.SendBuffer)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics.addr %q: %w", c.MetricsAddr, err)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.LogLevel, err)
	}
	return nil
}

func (c Config) listenerOptions(logger logging.Logger) []dgram.Option {
	return []dgram.Option{
		dgram.WithLogger(logger),
		dgram.WithReusePort(c.ReusePort),
		dgram.WithSocketRecvBuffer(c.RecvBuffer),
		dgram.WithSocketSendBuffer(c.SendBuffer),
	}
}
