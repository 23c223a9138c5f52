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

// Package config decodes the server's YAML configuration file (§6's
// section/key schema) and overlays AIKV_* environment variables on top,
// the way the teacher's storage.Settings is a single mutable struct
// hydrated once at startup (storage/settings.go's SettingsT/InitSettings).
// Unlike the teacher's global var, Settings here is returned by Load and
// threaded explicitly, since this server - unlike the single-process
// teacher - may run several configurations under test in one binary.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// ServerSection is the `server` YAML section: bind address.
type ServerSection struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageSection is the `storage` YAML section: backend and db count.
// Engine selects the store.PersistenceEngine: "memory" (no persistence),
// "persistent" (local-disk FileEngine under DataDir), "s3", or "ceph" (the
// matching object-storage engine, configured by the S3/Ceph sub-sections).
type StorageSection struct {
	Engine         string `yaml:"engine"`
	DataDir        string `yaml:"data_dir"`
	Databases      int    `yaml:"databases"`
	MaxValueBytes  string `yaml:"max_value_bytes"` // human-readable, e.g. "64mb"
	MaxFrameLength string `yaml:"max_frame_length"`

	S3   S3Section   `yaml:"s3"`
	Ceph CephSection `yaml:"ceph"`
}

// S3Section configures store.S3Config when storage.engine is "s3".
type S3Section struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// CephSection configures store.CephConfig when storage.engine is "ceph".
type CephSection struct {
	UserName    string `yaml:"user_name"`
	ClusterName string `yaml:"cluster_name"`
	ConfFile    string `yaml:"conf_file"`
	Pool        string `yaml:"pool"`
	Prefix      string `yaml:"prefix"`
}

// ClusterSection is the `cluster` YAML section: membership.
type ClusterSection struct {
	Enabled     bool     `yaml:"enabled"`
	RaftAddress string   `yaml:"raft_address"`
	IsBootstrap bool     `yaml:"is_bootstrap"`
	Peers       []string `yaml:"peers"`
}

// LoggingSection is the `logging` YAML section: log knobs.
type LoggingSection struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// SlowlogSection is the `slowlog` YAML section: slow-query ring sizing.
type SlowlogSection struct {
	LogSlowerThan int64 `yaml:"log-slower-than"` // microseconds; <= 0 disables
	MaxLen        int   `yaml:"max-len"`
}

// Config is the full decoded+overlaid configuration. NodeID is populated
// from AIKV_NODE_ID if set, else left 0 so the caller derives one from the
// raft address hash (§6: "optional fixed node id; else derived from raft
// address hash").
type Config struct {
	Server  ServerSection  `yaml:"server"`
	Storage StorageSection `yaml:"storage"`
	Cluster ClusterSection `yaml:"cluster"`
	Logging LoggingSection `yaml:"logging"`
	Slowlog SlowlogSection `yaml:"slowlog"`

	NodeID uint64 `yaml:"-"`
}

// Default returns the schema's documented defaults, matching the
// teacher's SettingsT zero-value-with-sane-defaults convention.
func Default() Config {
	return Config{
		Server:  ServerSection{Host: "0.0.0.0", Port: 6379},
		Storage: StorageSection{Engine: "memory", Databases: 16, DataDir: "./data", MaxValueBytes: "512mb"},
		Logging: LoggingSection{Level: "info", Format: "text"},
		Slowlog: SlowlogSection{LogSlowerThan: 10000, MaxLen: 128},
	}
}

// Load reads path, decodes it over Default()'s schema (rejecting unknown
// top-level keys via yaml.v3's KnownFields(true), §1.2), then applies the
// AIKV_* environment overlay.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	applyEnvOverlay(&cfg)
	return cfg, nil
}

// applyEnvOverlay mirrors matching AIKV_* environment variables into the
// decoded struct, read after the file so they always win - the precedence
// order §1.2 specifies.
func applyEnvOverlay(cfg *Config) {
	if v, ok := os.LookupEnv("AIKV_NODE_ID"); ok {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.NodeID = id
		}
	}
	if v, ok := os.LookupEnv("AIKV_SERVER_HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := os.LookupEnv("AIKV_SERVER_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := os.LookupEnv("AIKV_STORAGE_ENGINE"); ok {
		cfg.Storage.Engine = v
	}
	if v, ok := os.LookupEnv("AIKV_STORAGE_DATA_DIR"); ok {
		cfg.Storage.DataDir = v
	}
	if v, ok := os.LookupEnv("AIKV_CLUSTER_ENABLED"); ok {
		cfg.Cluster.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v, ok := os.LookupEnv("AIKV_CLUSTER_RAFT_ADDRESS"); ok {
		cfg.Cluster.RaftAddress = v
	}
	if v, ok := os.LookupEnv("AIKV_LOGGING_LEVEL"); ok {
		cfg.Logging.Level = v
	}
}

// MaxValueBytesParsed parses the human-readable storage.max_value_bytes setting
// (e.g. "64mb") into a byte count via github.com/docker/go-units, the way
// the teacher would size a ShardSize-style setting (storage/settings.go).
// 0 (with no error) means unset/unbounded.
func (c Config) MaxValueBytesParsed() (int64, error) {
	if c.Storage.MaxValueBytes == "" {
		return 0, nil
	}
	return units.RAMInBytes(c.Storage.MaxValueBytes)
}

// MaxFrameLengthParsed parses storage.max_frame_length the same way.
func (c Config) MaxFrameLengthParsed() (int64, error) {
	if c.Storage.MaxFrameLength == "" {
		return 0, nil
	}
	return units.RAMInBytes(c.Storage.MaxFrameLength)
}

// SlowLogThreshold converts the microsecond config value into a
// time.Duration for observability.Config.LogSlowerThan.
func (c Config) SlowLogThreshold() time.Duration {
	if c.Slowlog.LogSlowerThan <= 0 {
		return 0
	}
	return time.Duration(c.Slowlog.LogSlowerThan) * time.Microsecond
}
