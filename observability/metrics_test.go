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

package observability

import (
	"testing"
	"time"

	"github.com/launix-de/aikv/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConnectionGauges(t *testing.T) {
	m := New(Config{})
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	if got := testutil.ToFloat64(m.connectedClients); got != 1 {
		t.Fatalf("expected 1 connected client, got %v", got)
	}
}

func TestCommandCompletedRecordsCounterAndHistogram(t *testing.T) {
	m := New(Config{})
	m.CommandCompleted("GET", 5*time.Millisecond, false)
	m.CommandCompleted("GET", 5*time.Millisecond, true)
	if got := testutil.ToFloat64(m.commandsTotal.WithLabelValues("GET", "ok")); got != 1 {
		t.Fatalf("expected 1 ok GET, got %v", got)
	}
	if got := testutil.ToFloat64(m.commandsTotal.WithLabelValues("GET", "err")); got != 1 {
		t.Fatalf("expected 1 err GET, got %v", got)
	}
}

func TestSlowLogRecordsOnlyAboveThreshold(t *testing.T) {
	s := newSlowLog(10*time.Millisecond, 16)
	s.Record("GET", 1*time.Millisecond)
	s.Record("SET", 20*time.Millisecond)
	if s.Len() != 1 {
		t.Fatalf("expected 1 slow entry, got %d", s.Len())
	}
	recent := s.Snapshot(1)
	if recent[0].Command != "SET" {
		t.Fatalf("expected SET recorded, got %q", recent[0].Command)
	}
}

func TestSlowLogRingOverwritesOldest(t *testing.T) {
	s := newSlowLog(0, 2)
	s.SetThreshold(1)
	s.Record("A", 5)
	s.Record("B", 5)
	s.Record("C", 5)
	if s.Len() != 2 {
		t.Fatalf("expected ring capped at 2, got %d", s.Len())
	}
	recent := s.Snapshot(0)
	if recent[0].Command != "C" || recent[1].Command != "B" {
		t.Fatalf("expected [C B] newest-first, got %+v", recent)
	}
}

func TestInstrumentedFacadeCountsHitsAndMisses(t *testing.T) {
	m := New(Config{})
	facade := Instrument(store.NewMemoryBackend(1), m)
	facade.Set(0, "k", store.NewStringValue([]byte("v")), 0)

	if _, ok := facade.Get(0, "k"); !ok {
		t.Fatalf("expected key to be found")
	}
	if _, ok := facade.Get(0, "missing"); ok {
		t.Fatalf("expected key to be missing")
	}
	if got := testutil.ToFloat64(m.keyspaceHits); got != 1 {
		t.Fatalf("expected 1 keyspace hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.keyspaceMisses); got != 1 {
		t.Fatalf("expected 1 keyspace miss, got %v", got)
	}
}

func TestSnapshotReflectsLiveCounters(t *testing.T) {
	m := New(Config{})
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	facade := Instrument(store.NewMemoryBackend(1), m)
	facade.Set(0, "k", store.NewStringValue([]byte("v")), 0)
	facade.Get(0, "k")
	facade.Get(0, "missing")

	stats := m.Snapshot()
	if stats.ConnectionsOpened != 2 || stats.ConnectionsClosed != 1 || stats.ConnectedClients != 1 {
		t.Fatalf("unexpected connection stats: %+v", stats)
	}
	if stats.KeyspaceHits != 1 || stats.KeyspaceMisses != 1 {
		t.Fatalf("unexpected keyspace stats: %+v", stats)
	}
}
