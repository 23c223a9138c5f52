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

// Package serverinfo implements command.ServerInfo: CONFIG GET/SET and the
// INFO section renderer. It is the one place that needs to see config,
// observability and cluster together, so it lives outside all three rather
// than creating an import cycle between them.
//
// CONFIG GET/SET is grounded on the teacher's ChangeSettings
// (storage/settings.go): a get/set-by-string-name switch over one mutable
// struct, guarded by a mutex since, unlike the teacher's single REPL
// goroutine, many connection goroutines call CONFIG concurrently here.
package serverinfo

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/launix-de/aikv/cluster"
	"github.com/launix-de/aikv/config"
	"github.com/launix-de/aikv/observability"
)

// ClusterView is satisfied by *cluster.Node; kept as a narrow interface so
// a non-clustered server can pass nil without this package importing raft.
type ClusterView interface {
	ReadLocal() cluster.Snapshot
	IsLeader() bool
}

// Info answers command.ServerInfo. The hot-reloadable fields (logging
// level/format, slowlog thresholds) are guarded by mu since
// config.Watcher's goroutine mutates them concurrently with CONFIG
// GET/SET calls from connection goroutines.
type Info struct {
	mu        sync.Mutex
	cfg       config.Config
	startedAt time.Time
	metrics   *observability.Metrics
	cluster   ClusterView // nil when clustering is disabled
	version   string
}

// New builds an Info view over the live config, metrics and (optional)
// cluster node.
func New(cfg config.Config, metrics *observability.Metrics, clusterView ClusterView, version string) *Info {
	return &Info{
		cfg:       cfg,
		startedAt: time.Now(),
		metrics:   metrics,
		cluster:   clusterView,
		version:   version,
	}
}

// ApplyHotFields is the config.Watcher onChange callback: it mutates only
// the fields config/watch.go's HotFields names, and pushes the new
// slow-log threshold into the live SlowLog.
func (i *Info) ApplyHotFields(h config.HotFields) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cfg.Logging.Level = h.LoggingLevel
	i.cfg.Logging.Format = h.LoggingFormat
	i.cfg.Slowlog.LogSlowerThan = h.SlowlogLogSlowerThan
	i.cfg.Slowlog.MaxLen = h.SlowlogMaxLen
	if i.metrics != nil {
		i.metrics.SlowLog().SetThreshold(i.cfg.SlowLogThreshold())
	}
}

// ConfigGet implements command.ServerInfo.
func (i *Info) ConfigGet(param string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch strings.ToLower(param) {
	case "logging.level":
		return i.cfg.Logging.Level, true
	case "logging.format":
		return i.cfg.Logging.Format, true
	case "slowlog.log-slower-than":
		return strconv.FormatInt(i.cfg.Slowlog.LogSlowerThan, 10), true
	case "slowlog.max-len":
		return strconv.Itoa(i.cfg.Slowlog.MaxLen), true
	case "storage.engine":
		return i.cfg.Storage.Engine, true
	case "storage.databases":
		return strconv.Itoa(i.cfg.Storage.Databases), true
	case "storage.max_value_bytes":
		return i.cfg.Storage.MaxValueBytes, true
	case "cluster.enabled":
		return strconv.FormatBool(i.cfg.Cluster.Enabled), true
	default:
		return "", false
	}
}

// ConfigSet implements command.ServerInfo; only the safe, hot-reloadable
// subset accepts writes through CONFIG SET - everything else requires
// editing the config file and restarting, matching §1.2.
func (i *Info) ConfigSet(param, value string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch strings.ToLower(param) {
	case "logging.level":
		i.cfg.Logging.Level = value
	case "logging.format":
		i.cfg.Logging.Format = value
	case "slowlog.log-slower-than":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false
		}
		i.cfg.Slowlog.LogSlowerThan = n
	case "slowlog.max-len":
		n, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		i.cfg.Slowlog.MaxLen = n
	default:
		return false
	}
	return true
}

// InfoSection implements command.ServerInfo, rendering the
// `key:value\r\n`-per-line format the wire protocol's §3-supplemented INFO
// command expects. "default"/"all"/"everything" render every section.
func (i *Info) InfoSection(section string) string {
	section = strings.ToLower(section)
	var b strings.Builder
	all := section == "" || section == "default" || section == "all" || section == "everything"

	if all || section == "server" {
		i.writeServerSection(&b)
	}
	if all || section == "clients" {
		i.writeClientsSection(&b)
	}
	if all || section == "stats" {
		i.writeStatsSection(&b)
	}
	if all || section == "cluster" {
		i.writeClusterSection(&b)
	}
	return b.String()
}

func (i *Info) writeServerSection(b *strings.Builder) {
	i.mu.Lock()
	cfg := i.cfg
	i.mu.Unlock()
	fmt.Fprintf(b, "# Server\r\n")
	fmt.Fprintf(b, "aikv_version:%s\r\n", i.version)
	fmt.Fprintf(b, "uptime_in_seconds:%d\r\n", int64(time.Since(i.startedAt).Seconds()))
	fmt.Fprintf(b, "tcp_port:%d\r\n", cfg.Server.Port)
	fmt.Fprintf(b, "config_version:%d\r\n", cfg.NodeID)
	b.WriteString("\r\n")
}

func (i *Info) writeClientsSection(b *strings.Builder) {
	fmt.Fprintf(b, "# Clients\r\n")
	if i.metrics != nil {
		fmt.Fprintf(b, "connected_clients:%d\r\n", i.metrics.Snapshot().ConnectedClients)
	} else {
		b.WriteString("connected_clients:0\r\n")
	}
	b.WriteString("\r\n")
}

func (i *Info) writeStatsSection(b *strings.Builder) {
	fmt.Fprintf(b, "# Stats\r\n")
	if i.metrics != nil {
		s := i.metrics.Snapshot()
		fmt.Fprintf(b, "total_connections_received:%d\r\n", s.ConnectionsOpened)
		fmt.Fprintf(b, "keyspace_hits:%d\r\n", s.KeyspaceHits)
		fmt.Fprintf(b, "keyspace_misses:%d\r\n", s.KeyspaceMisses)
	} else {
		b.WriteString("total_connections_received:0\r\nkeyspace_hits:0\r\nkeyspace_misses:0\r\n")
	}
	b.WriteString("\r\n")
}

// writeClusterSection renders cluster_enabled and, when clustering is on,
// cluster_state the way the original spec's supplemented INFO renderer
// does: "ok" iff every slot is assigned and every group owning slots has a
// leader (§4.5).
func (i *Info) writeClusterSection(b *strings.Builder) {
	fmt.Fprintf(b, "# Cluster\r\n")
	if i.cluster == nil {
		b.WriteString("cluster_enabled:0\r\n\r\n")
		return
	}
	b.WriteString("cluster_enabled:1\r\n")
	snap := i.cluster.ReadLocal()
	fmt.Fprintf(b, "cluster_known_nodes:%d\r\n", len(snap.Nodes))
	fmt.Fprintf(b, "cluster_state:%s\r\n", clusterState(snap))
	if i.cluster.IsLeader() {
		b.WriteString("cluster_role:leader\r\n")
	} else {
		b.WriteString("cluster_role:follower\r\n")
	}
	b.WriteString("\r\n")
}

func clusterState(snap cluster.Snapshot) string {
	for _, slot := range snap.Slots {
		if slot == 0 {
			return "fail"
		}
	}
	groupsWithSlots := map[uint64]bool{}
	for _, slot := range snap.Slots {
		groupsWithSlots[slot] = true
	}
	for gid := range groupsWithSlots {
		g, ok := snap.GroupByID(gid)
		if !ok || g.Leader == 0 {
			return "fail"
		}
	}
	return "ok"
}
