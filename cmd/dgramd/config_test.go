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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dgramd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// chdirTemp moves into an empty directory so no dgramd.yaml is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Listen:      "udp://0.0.0.0:9000",
		PoolSize:    1024,
		BufferSize:  2048,
		MetricsAddr: "127.0.0.1:9100",
		LogLevel:    "info",
	}, cfg)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
listen: udp4://127.0.0.1:7000
pool:
  size: 16
  buffer_size: 512
  blocking: true
socket:
  reuseport: true
  recv_buffer: 65536
metrics:
  addr: ""
log:
  level: debug
`)
	t.Setenv("DGRAMD_POOL_SIZE", "32")
	t.Setenv("DGRAMD_WORKERS", "8")

	cfg, err := loadConfig(path, map[string]interface{}{"pool.buffer_size": 1024})
	require.NoError(t, err)
	assert.Equal(t, "udp4://127.0.0.1:7000", cfg.Listen)
	assert.Equal(t, 32, cfg.PoolSize, "environment beats the file")
	assert.Equal(t, 1024, cfg.BufferSize, "flags beat the file")
	assert.True(t, cfg.BlockingPool)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.ReusePort)
	assert.Equal(t, 65536, cfg.RecvBuffer)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	chdirTemp(t)
	cases := map[string]map[string]interface{}{
		"tcp network":       {"listen": "tcp://127.0.0.1:9000"},
		"no port":           {"listen": "udp4://127.0.0.1"},
		"zero pool":         {"pool.size": 0},
		"huge buffer":       {"pool.buffer_size": 70000},
		"negative workers":  {"workers": -1},
		"negative recv buf": {"socket.recv_buffer": -1},
		"bad metrics addr":  {"metrics.addr": "localhost"},
		"bad log level":     {"log.level": "loud"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig("", overrides)
			assert.Error(t, err)
		})
	}
}
