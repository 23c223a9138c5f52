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

package connection

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// monitorQueue is a bounded, non-blocking mailbox for one MONITOR
// subscriber. Publish drops the line rather than blocking the publishing
// connection's dispatch path when the subscriber's reader falls behind -
// exactly the "best effort, may miss messages" contract of SPEC_FULL §4.7.
const monitorQueueDepth = 1024

type monitorQueue chan string

// monitorHub fans a formatted copy of every dispatched request out to every
// active MONITOR subscriber.
type monitorHub struct {
	mu          sync.Mutex
	subscribers map[uint64]monitorQueue
}

func newMonitorHub() *monitorHub {
	return &monitorHub{subscribers: make(map[uint64]monitorQueue)}
}

func (h *monitorHub) subscribe(id uint64) monitorQueue {
	q := make(monitorQueue, monitorQueueDepth)
	h.mu.Lock()
	h.subscribers[id] = q
	h.mu.Unlock()
	return q
}

func (h *monitorHub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
}

func (h *monitorHub) active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers) > 0
}

// publish formats one request line and offers it to every subscriber queue
// without blocking; a full queue simply drops the line for that subscriber.
func (h *monitorHub) publish(db int, addr, cmd string, args [][]byte) {
	h.mu.Lock()
	if len(h.subscribers) == 0 {
		h.mu.Unlock()
		return
	}
	line := formatMonitorLine(db, addr, cmd, args)
	for _, q := range h.subscribers {
		select {
		case q <- line:
		default:
			// subscriber is behind; drop rather than stall the command path
		}
	}
	h.mu.Unlock()
}

// formatMonitorLine renders "<unix_time.microseconds> [<db> <addr>] "<cmd>"
// "<arg1>" ..." per SPEC_FULL §4.7, quoting each token the way redis-cli's
// own MONITOR stream does.
func formatMonitorLine(db int, addr, cmd string, args [][]byte) string {
	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%06d [%d %s] %s", now.Unix(), now.Nanosecond()/1000, db, addr, quote(cmd))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(string(a)))
	}
	return b.String()
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
