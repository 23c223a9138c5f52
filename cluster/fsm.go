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

import (
	"encoding/json"
	"io"

	"github.com/hashicorp/raft"
)

// fsm adapts *State to hashicorp/raft's FSM interface: Apply runs each
// committed log entry in order (§4.4's "applications are deterministic and
// ordered by commit index"), Snapshot/Restore persist the full tuple for
// log compaction and new-member catch-up.
type fsm struct {
	state *State
}

func newFSM(state *State) *fsm { return &fsm{state: state} }

// Apply decodes the log entry and applies it to State. A decode or
// precondition failure is returned as the command result (not panicked):
// propose()'s caller inspects it and maps it to a ClusterError reply.
func (f *fsm) Apply(log *raft.Log) interface{} {
	cmd, err := decodeCommand(log.Data)
	if err != nil {
		return err
	}
	return f.state.Apply(cmd)
}

func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	return &fsmSnapshot{snapshot: f.state.Read()}, nil
}

func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var snap Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return err
	}

	f.state.applyMu.Lock()
	defer f.state.applyMu.Unlock()

	fresh := NewState()
	for i := range snap.Nodes {
		n := snap.Nodes[i]
		fresh.nodes.Set(&n)
	}
	for i := range snap.Groups {
		g := snap.Groups[i]
		fresh.groups.Set(&g)
	}
	f.state.nodes = fresh.nodes
	f.state.groups = fresh.groups
	f.state.slots.Store(&snap.Slots)
	f.state.configVersion.Store(snap.ConfigVersion)
	return nil
}

type fsmSnapshot struct {
	snapshot Snapshot
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	enc := json.NewEncoder(sink)
	if err := enc.Encode(s.snapshot); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
