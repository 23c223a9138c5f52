/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
server:
  host: 127.0.0.1
  port: 7000
storage:
  engine: persistent
  data_dir: /var/lib/aikv
  databases: 4
  max_value_bytes: 64mb
cluster:
  enabled: true
  raft_address: 127.0.0.1:17000
  is_bootstrap: true
  peers: ["10.0.0.2:17000"]
logging:
  level: debug
  format: json
slowlog:
  log-slower-than: 5000
  max-len: 64
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "aikv.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadDecodesEveryKnownSection(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 7000 {
		t.Fatalf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.Storage.Engine != "persistent" || cfg.Storage.Databases != 4 {
		t.Fatalf("unexpected storage section: %+v", cfg.Storage)
	}
	if !cfg.Cluster.Enabled || !cfg.Cluster.IsBootstrap || len(cfg.Cluster.Peers) != 1 {
		t.Fatalf("unexpected cluster section: %+v", cfg.Cluster)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging section: %+v", cfg.Logging)
	}
	if cfg.Slowlog.LogSlowerThan != 5000 || cfg.Slowlog.MaxLen != 64 {
		t.Fatalf("unexpected slowlog section: %+v", cfg.Slowlog)
	}
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	path := writeTempConfig(t, sampleYAML+"\nbogus_section:\n  x: 1\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error decoding an unknown top-level key")
	}
}

func TestEnvOverlayOverridesFileValues(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	t.Setenv("AIKV_NODE_ID", "42")
	t.Setenv("AIKV_SERVER_PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NodeID != 42 {
		t.Fatalf("expected NodeID 42 from env, got %d", cfg.NodeID)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("expected port overlay to win, got %d", cfg.Server.Port)
	}
	// file-sourced value survives for keys with no matching env var
	if cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("expected host to remain from file, got %q", cfg.Server.Host)
	}
}

func TestLoadDecodesObjectStorageSubsections(t *testing.T) {
	path := writeTempConfig(t, `
storage:
  engine: s3
  s3:
    bucket: my-bucket
    region: eu-central-1
    force_path_style: true
  ceph:
    pool: aikv-pool
    user_name: client.aikv
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.S3.Bucket != "my-bucket" || cfg.Storage.S3.Region != "eu-central-1" || !cfg.Storage.S3.ForcePathStyle {
		t.Fatalf("unexpected s3 section: %+v", cfg.Storage.S3)
	}
	if cfg.Storage.Ceph.Pool != "aikv-pool" || cfg.Storage.Ceph.UserName != "client.aikv" {
		t.Fatalf("unexpected ceph section: %+v", cfg.Storage.Ceph)
	}
}

func TestMaxValueBytesParsed(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := cfg.MaxValueBytesParsed()
	if err != nil {
		t.Fatalf("MaxValueBytesParsed: %v", err)
	}
	if got != 64*1024*1024 {
		t.Fatalf("expected 64MiB, got %d", got)
	}
}

func TestSlowLogThresholdZeroWhenNonPositive(t *testing.T) {
	cfg := Default()
	cfg.Slowlog.LogSlowerThan = 0
	if d := cfg.SlowLogThreshold(); d != 0 {
		t.Fatalf("expected zero duration, got %v", d)
	}
}

func TestDefaultsAreSane(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 6379 {
		t.Fatalf("expected default redis-style port 6379, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Databases != 16 {
		t.Fatalf("expected 16 default databases, got %d", cfg.Storage.Databases)
	}
}
