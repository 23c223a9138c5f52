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
	"sync"
	"time"

	"github.com/launix-de/aikv/command"
)

// SlowEntry is one recorded slow command, in the shape SLOWLOG GET returns:
// a monotonically increasing id, a unix timestamp, the duration, and the
// command name (arguments are deliberately not retained, to avoid pinning
// potentially large values in the ring).
type SlowEntry struct {
	ID        int64
	Timestamp time.Time
	Duration  time.Duration
	Command   string
}

// SlowLog is a fixed-capacity ring buffer of the most recent commands whose
// handling time exceeded threshold. Grounded on the MONITOR fan-out's own
// "slow subscribers are dropped, not blocked" contract
// (connection/monitor.go, confirmed against original_source's
// src/server/monitor.rs): here the analogous contract is that the ring
// never blocks or grows unbounded, it just overwrites the oldest entry.
type SlowLog struct {
	mu        sync.Mutex
	threshold time.Duration
	maxLen    int
	entries   []SlowEntry
	nextID    int64
}

func newSlowLog(threshold time.Duration, maxLen int) *SlowLog {
	if maxLen <= 0 {
		maxLen = 128
	}
	return &SlowLog{threshold: threshold, maxLen: maxLen}
}

// Record appends an entry if d meets or exceeds the configured threshold.
// threshold <= 0 disables the slow-log entirely (matches
// slowlog.log-slower-than = -1 convention).
func (s *SlowLog) Record(command string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threshold <= 0 || d < s.threshold {
		return
	}
	s.nextID++
	entry := SlowEntry{ID: s.nextID, Timestamp: time.Now(), Duration: d, Command: command}
	if len(s.entries) < s.maxLen {
		s.entries = append(s.entries, entry)
		return
	}
	// overwrite the oldest slot, keeping insertion order by id
	copy(s.entries, s.entries[1:])
	s.entries[len(s.entries)-1] = entry
}

// Snapshot returns up to n of the most recently recorded entries, newest
// first. n <= 0 returns every retained entry.
func (s *SlowLog) Snapshot(n int) []SlowEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.entries)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]SlowEntry, n)
	for i := 0; i < n; i++ {
		out[i] = s.entries[total-1-i]
	}
	return out
}

// Len reports the number of entries currently retained.
func (s *SlowLog) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset clears the ring without affecting the running entry id counter.
func (s *SlowLog) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

// SetThreshold updates the slow-log cutoff; serverinfo's ApplyHotFields
// calls it when config/watch.go's fsnotify-driven hot reload changes
// slowlog.log-slower-than.
func (s *SlowLog) SetThreshold(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = d
}

// Recent implements command.SlowLogReader, translating the internal
// time.Time/time.Duration representation into the wire-facing integer
// fields the SLOWLOG GET reply uses.
func (s *SlowLog) Recent(n int) []command.SlowLogEntry {
	entries := s.Snapshot(n)
	out := make([]command.SlowLogEntry, len(entries))
	for i, e := range entries {
		out[i] = command.SlowLogEntry{
			ID:            e.ID,
			UnixSeconds:   e.Timestamp.Unix(),
			DurationMicro: e.Duration.Microseconds(),
			Command:       e.Command,
		}
	}
	return out
}
