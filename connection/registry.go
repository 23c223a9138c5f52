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

// Package connection implements the per-connection loop (C7): framing,
// dispatch, MONITOR fan-out and the client registry CLIENT LIST/KILL reads
// from. Grounded structurally on the retrieval pack's RESP-style accept
// loop (other_examples' HyperCache internal/network/resp server: listener
// goroutine + one goroutine per accepted connection, a registry guarded by
// a single mutex), with logging/shutdown idiom kept in the teacher's style
// (logrus fields, onexit-style cleanup hooks) per SPEC_FULL §1.1/§1.3.
package connection

import (
	"fmt"
	"net"
	"sort"
	"sync"
)

// client is the registry's view of one live connection: enough to answer
// CLIENT LIST and to let CLIENT KILL tear it down from another connection's
// goroutine.
type client struct {
	id   uint64
	addr string
	name string
	db   int
	conn net.Conn
}

// Registry implements command.ClientRegistry and owns the authoritative set
// of live connections. One Registry is shared by every accepted connection
// on a listener.
type Registry struct {
	mu      sync.Mutex
	clients map[uint64]*client
	nextID  uint64
}

// NewRegistry returns an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[uint64]*client)}
}

// add registers a freshly accepted connection and returns its id.
func (r *Registry) add(conn net.Conn) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.clients[id] = &client{id: id, addr: conn.RemoteAddr().String(), conn: conn}
	return id
}

// remove drops a connection from the registry; called once per connection
// on the way out of its loop.
func (r *Registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// setName/setDB keep the registry's snapshot of a connection's mutable
// state (CLIENT SETNAME, SELECT) in sync for CLIENT LIST's benefit.
func (r *Registry) setName(id uint64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.name = name
	}
}

func (r *Registry) setDB(id uint64, db int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.db = db
	}
}

// List renders one line per connection, sorted by id so CLIENT LIST output
// is deterministic across calls - a redis-like "id=.. addr=.. db=.. name=.."
// format, field order matching the teacher's preference for plain
// key=value pairs over structured encoding in diagnostic output.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		c := r.clients[id]
		lines = append(lines, fmt.Sprintf("id=%d addr=%s db=%d name=%s", c.id, c.addr, c.db, c.name))
	}
	return lines
}

// KillAddr closes the connection whose remote address matches addr,
// reporting whether one was found. Closing the net.Conn unblocks that
// connection's blocked Read, which then exits its loop and self-removes.
func (r *Registry) KillAddr(addr string) bool {
	r.mu.Lock()
	var target *client
	for _, c := range r.clients {
		if c.addr == addr {
			target = c
			break
		}
	}
	r.mu.Unlock()
	if target == nil {
		return false
	}
	target.conn.Close()
	return true
}
