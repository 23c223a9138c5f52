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

package cluster

import "sync"

// migrationState is this node's view of one slot mid-transfer (§4.5): a
// slot is MIGRATING away from its current owning group's leader, or
// IMPORTING into the destination group's leader. Both flags are per-node
// local — they do not need consensus to flip, only the final ownership
// change (AssignSlots) does.
type migrationState struct {
	migratingTo string // dest data-plane address, set on the source leader
	importingFr string // src data-plane address, set on the destination leader
}

// migrationTable tracks in-flight slot migrations for this node.
type migrationTable struct {
	mu     sync.Mutex
	states map[int]*migrationState
}

func newMigrationTable() *migrationTable {
	return &migrationTable{states: make(map[int]*migrationState)}
}

func (m *migrationTable) setMigrating(slot int, destAddr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.get(slot)
	st.migratingTo = destAddr
}

func (m *migrationTable) setImporting(slot int, srcAddr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.get(slot)
	st.importingFr = srcAddr
}

// clear removes both migration flags for a slot once ownership commits.
func (m *migrationTable) clear(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, slot)
}

func (m *migrationTable) get(slot int) *migrationState {
	st, ok := m.states[slot]
	if !ok {
		st = &migrationState{}
		m.states[slot] = st
	}
	return st
}

// migratingDest returns the destination address if slot is MIGRATING away
// from this node, or ("", false).
func (m *migrationTable) migratingDest(slot int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[slot]
	if !ok || st.migratingTo == "" {
		return "", false
	}
	return st.migratingTo, true
}

// importingSrc returns the source address if slot is IMPORTING into this
// node, or ("", false).
func (m *migrationTable) importingSrc(slot int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[slot]
	if !ok || st.importingFr == "" {
		return "", false
	}
	return st.importingFr, true
}
