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

// Package observability implements C11: the counters/gauges behind
// connection.Metrics, a keyspace-hits/misses-instrumented store.Facade
// decorator, and the slow-query ring buffer. The counter/gauge shape
// mirrors the teacher's scm/metrics.go sampler (connections, rps-style
// command throughput, a background-refreshed snapshot for INFO), rebuilt
// on top of github.com/prometheus/client_golang per the domain-stack table
// instead of the teacher's bespoke atomic/unsafe.Pointer snapshot, since a
// real scrape endpoint is now in scope (§2 C11) and client_golang is the
// pack's own precedent for that (ClusterCockpit-cc-backend, cuemby-warren).
package observability

import (
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements connection.Metrics and command.ServerInfo's counter
// half; it owns its own prometheus.Registry rather than reaching for the
// global default one, so a test (or a second embedded server) can build an
// independent instance without collector-already-registered panics.
type Metrics struct {
	registry *prometheus.Registry

	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter
	connectedClients  prometheus.Gauge

	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	keyspaceHits     prometheus.Counter
	keyspaceMisses   prometheus.Counter

	slow *SlowLog
}

// Config controls the slow-query ring buffer; zero value disables it
// (LogSlowerThan <= 0 records nothing).
type Config struct {
	LogSlowerThan time.Duration
	MaxLen        int
}

// New builds a Metrics instance and registers its collectors on a fresh
// registry. cfg sizes the slow-log ring (slowlog.log-slower-than / max-len,
// §6 config schema).
func New(cfg Config) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		connectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aikv",
			Name:      "connections_opened_total",
			Help:      "Total client connections accepted.",
		}),
		connectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aikv",
			Name:      "connections_closed_total",
			Help:      "Total client connections closed.",
		}),
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aikv",
			Name:      "connected_clients",
			Help:      "Currently open client connections.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aikv",
			Name:      "commands_total",
			Help:      "Commands processed, partitioned by command name and outcome.",
		}, []string{"command", "result"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aikv",
			Name:      "command_duration_seconds",
			Help:      "Per-command handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		keyspaceHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aikv",
			Name:      "keyspace_hits_total",
			Help:      "Successful key lookups.",
		}),
		keyspaceMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aikv",
			Name:      "keyspace_misses_total",
			Help:      "Key lookups that found nothing.",
		}),
		slow: newSlowLog(cfg.LogSlowerThan, cfg.MaxLen),
	}

	reg.MustRegister(
		m.connectionsOpened,
		m.connectionsClosed,
		m.connectedClients,
		m.commandsTotal,
		m.commandDuration,
		m.keyspaceHits,
		m.keyspaceMisses,
	)
	return m
}

// Registry exposes the underlying prometheus.Registry so main.go can mount
// promhttp.HandlerFor(m.Registry(), ...) on the operator-tooling HTTP
// surface; the exposition format itself is out of this package's scope
// (spec.md §1 names it an external-collaborator concern).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ConnectionOpened implements connection.Metrics.
func (m *Metrics) ConnectionOpened() {
	m.connectionsOpened.Inc()
	m.connectedClients.Inc()
}

// ConnectionClosed implements connection.Metrics.
func (m *Metrics) ConnectionClosed() {
	m.connectionsClosed.Inc()
	m.connectedClients.Dec()
}

// CommandCompleted implements connection.Metrics: records the
// success/error counter, the latency histogram, and - if the duration
// crosses the configured threshold - a slowlog entry.
func (m *Metrics) CommandCompleted(name string, d time.Duration, failed bool) {
	result := "ok"
	if failed {
		result = "err"
	}
	m.commandsTotal.WithLabelValues(name, result).Inc()
	m.commandDuration.WithLabelValues(name).Observe(d.Seconds())
	m.slow.Record(name, d)
}

// recordKeyspaceHit/recordKeyspaceMiss are called by the InstrumentedFacade
// decorator (facade.go) on every Get.
func (m *Metrics) recordKeyspaceHit()  { m.keyspaceHits.Inc() }
func (m *Metrics) recordKeyspaceMiss() { m.keyspaceMisses.Inc() }

// SlowLog returns the underlying ring buffer for SLOWLOG GET/RESET/LEN.
func (m *Metrics) SlowLog() *SlowLog { return m.slow }

// Stats is a point-in-time read of the counters/gauges, for the INFO
// section renderer (§3's supplemented per-command-latency/keyspace-hit
// surface) without requiring the caller to scrape the registry.
type Stats struct {
	ConnectionsOpened int64
	ConnectionsClosed int64
	ConnectedClients  int64
	KeyspaceHits      int64
	KeyspaceMisses    int64
}

// Snapshot reads the current counter/gauge values. Uses each collector's
// own Write, the same mechanism promhttp/testutil use to read a value back
// out of a prometheus.Metric without a live scrape.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		ConnectionsOpened: readCounter(m.connectionsOpened),
		ConnectionsClosed: readCounter(m.connectionsClosed),
		ConnectedClients:  int64(readGauge(m.connectedClients)),
		KeyspaceHits:      readCounter(m.keyspaceHits),
		KeyspaceMisses:    readCounter(m.keyspaceMisses),
	}
}

func readCounter(c prometheus.Counter) int64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return int64(pb.GetCounter().GetValue())
}

func readGauge(g prometheus.Gauge) float64 {
	var pb dto.Metric
	if err := g.Write(&pb); err != nil {
		return 0
	}
	return pb.GetGauge().GetValue()
}
