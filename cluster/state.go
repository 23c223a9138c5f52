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
	"fmt"
	"sync"
	"sync/atomic"

	nonlockingreadmap "github.com/launix-de/NonLockingReadMap"
)

// State holds the tuple (nodes, groups, slots, config_version) from §3. It
// is the thing the raft FSM applies committed commands to; every apply runs
// under applyMu so AssignSlots' array mutation and the node/group maps'
// own internal CAS loops stay consistent with each other. Reads (Read) take
// no lock at all — nodes/groups come from NonLockingReadMap's wait-free
// snapshot and slots/configVersion come from an atomic pointer swap, so a
// connection goroutine computing a slot guard never blocks behind the FSM's
// apply loop.
type State struct {
	applyMu sync.Mutex

	nodes  nonlockingreadmap.NonLockingReadMap[Node, uint64]
	groups nonlockingreadmap.NonLockingReadMap[Group, uint64]

	slots         atomic.Pointer[[SlotCount]uint64]
	configVersion atomic.Uint64
}

// NewState returns an empty, unassigned cluster metadata state.
func NewState() *State {
	s := &State{
		nodes:  nonlockingreadmap.New[Node, uint64](),
		groups: nonlockingreadmap.New[Group, uint64](),
	}
	var empty [SlotCount]uint64
	s.slots.Store(&empty)
	return s
}

// Read returns the current applied state — State.Snapshot from §4.4's
// read_local(). Eventually consistent with the raft quorum: a follower's
// Read may lag the leader's until its log catches up.
func (s *State) Read() Snapshot {
	nodes := s.nodes.GetAll()
	groups := s.groups.GetAll()
	out := Snapshot{
		Nodes:         make([]Node, len(nodes)),
		Groups:        make([]Group, len(groups)),
		ConfigVersion: s.configVersion.Load(),
	}
	for i, n := range nodes {
		out.Nodes[i] = *n
	}
	for i, g := range groups {
		out.Groups[i] = *g
	}
	out.Slots = *s.slots.Load()
	return out
}

func (s *State) bumpVersion() {
	s.configVersion.Add(1)
}

// Apply runs one committed Command against the state. Called only from the
// raft FSM's Apply (always on the single FSM goroutine, so applyMu only
// needs to serialize against concurrent direct callers in tests).
func (s *State) Apply(cmd Command) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	switch cmd.Kind {
	case CmdAddNode:
		return s.applyAddNode(cmd)
	case CmdRemoveNode:
		return s.applyRemoveNode(cmd)
	case CmdSetNodeStatus:
		return s.applySetNodeStatus(cmd)
	case CmdCreateGroup:
		return s.applyCreateGroup(cmd)
	case CmdSetGroupLeader:
		return s.applySetGroupLeader(cmd)
	case CmdSetGroupMembers:
		return s.applySetGroupMembers(cmd)
	case CmdAssignSlots:
		return s.applyAssignSlots(cmd)
	default:
		return fmt.Errorf("cluster: unknown command kind %d", cmd.Kind)
	}
}

func (s *State) applyAddNode(cmd Command) error {
	if existing := s.nodes.Get(cmd.NodeID); existing != nil && existing.Address != cmd.Address {
		return fmt.Errorf("cluster: node %d already exists with a different address", cmd.NodeID)
	}
	s.nodes.Set(&Node{ID: cmd.NodeID, Address: cmd.Address, Status: Online})
	s.bumpVersion()
	return nil
}

func (s *State) applyRemoveNode(cmd Command) error {
	if s.nodes.Get(cmd.NodeID) == nil {
		return fmt.Errorf("cluster: node %d does not exist", cmd.NodeID)
	}
	for _, g := range s.groups.GetAll() {
		if g.Leader == cmd.NodeID || g.hasReplica(cmd.NodeID) {
			return fmt.Errorf("cluster: node %d is still a member of group %d", cmd.NodeID, g.ID)
		}
	}
	s.nodes.Remove(cmd.NodeID)
	s.bumpVersion()
	return nil
}

func (s *State) applySetNodeStatus(cmd Command) error {
	n := s.nodes.Get(cmd.NodeID)
	if n == nil {
		return fmt.Errorf("cluster: node %d does not exist", cmd.NodeID)
	}
	updated := *n
	updated.Status = cmd.Status
	s.nodes.Set(&updated)
	s.bumpVersion()
	return nil
}

func (s *State) applyCreateGroup(cmd Command) error {
	if s.groups.Get(cmd.GroupID) != nil {
		return fmt.Errorf("cluster: group %d already exists", cmd.GroupID)
	}
	for _, m := range cmd.Members {
		if s.nodes.Get(m) == nil {
			return fmt.Errorf("cluster: group member %d is not a known node", m)
		}
	}
	s.groups.Set(&Group{ID: cmd.GroupID, Replicas: append([]uint64(nil), cmd.Members...)})
	s.bumpVersion()
	return nil
}

func (s *State) applySetGroupLeader(cmd Command) error {
	g := s.groups.Get(cmd.GroupID)
	if g == nil {
		return fmt.Errorf("cluster: group %d does not exist", cmd.GroupID)
	}
	if !g.hasReplica(cmd.NodeID) {
		return fmt.Errorf("cluster: node %d is not a replica of group %d", cmd.NodeID, cmd.GroupID)
	}
	updated := *g
	updated.Leader = cmd.NodeID
	s.groups.Set(&updated)
	s.bumpVersion()
	return nil
}

func (s *State) applySetGroupMembers(cmd Command) error {
	g := s.groups.Get(cmd.GroupID)
	if g == nil {
		return fmt.Errorf("cluster: group %d does not exist", cmd.GroupID)
	}
	updated := *g
	updated.Replicas = append([]uint64(nil), cmd.Members...)
	stillLeader := false
	for _, m := range updated.Replicas {
		if m == updated.Leader {
			stillLeader = true
			break
		}
	}
	if !stillLeader {
		updated.Leader = 0
	}
	s.groups.Set(&updated)
	s.bumpVersion()
	return nil
}

func (s *State) applyAssignSlots(cmd Command) error {
	if cmd.Lo < 0 || cmd.Lo >= cmd.Hi || cmd.Hi > SlotCount {
		return fmt.Errorf("cluster: invalid slot range [%d, %d)", cmd.Lo, cmd.Hi)
	}
	if cmd.GroupID != 0 && s.groups.Get(cmd.GroupID) == nil {
		return fmt.Errorf("cluster: group %d does not exist", cmd.GroupID)
	}
	prev := s.slots.Load()
	next := *prev
	for i := cmd.Lo; i < cmd.Hi; i++ {
		next[i] = cmd.GroupID
	}
	s.slots.Store(&next)
	s.bumpVersion()
	return nil
}
