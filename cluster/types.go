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

// NodeStatus is a cluster node's membership lifecycle stage (§3).
type NodeStatus int

const (
	Joining NodeStatus = iota
	Online
	Leaving
	Offline
)

func (s NodeStatus) String() string {
	switch s {
	case Joining:
		return "joining"
	case Online:
		return "online"
	case Leaving:
		return "leaving"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Node is one cluster member: its data-plane address and lifecycle status.
// It satisfies NonLockingReadMap's KeyGetter so the state machine can keep
// the node table in a lock-free read-optimized map.
type Node struct {
	ID      uint64
	Address string // host:port, the client-facing data-plane endpoint
	Status  NodeStatus
}

func (n *Node) GetKey() uint64 { return n.ID }

func (n *Node) ComputeSize() uint {
	return 8 + uint(len(n.Address)) + 8
}

// Group is a slot-owning replica set: one optional leader plus an ordered
// replica list (the leader, when set, is also the first-class member other
// replicas ship writes from).
type Group struct {
	ID       uint64
	Leader   uint64 // 0 means no leader elected
	Replicas []uint64
}

func (g *Group) GetKey() uint64 { return g.ID }

func (g *Group) ComputeSize() uint {
	return 8 + 8 + 8*uint(len(g.Replicas))
}

func (g *Group) hasReplica(id uint64) bool {
	for _, r := range g.Replicas {
		if r == id {
			return true
		}
	}
	return false
}

// Snapshot is the immutable view returned by State.Read: a point-in-time
// copy safe to inspect without holding any lock.
type Snapshot struct {
	Nodes         []Node
	Groups        []Group
	Slots         [SlotCount]uint64
	ConfigVersion uint64
}

// NodeByID looks up a node in the snapshot, or returns (Node{}, false).
func (s Snapshot) NodeByID(id uint64) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// GroupByID looks up a group in the snapshot, or returns (Group{}, false).
func (s Snapshot) GroupByID(id uint64) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}
