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
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/sirupsen/logrus"
)

const proposeTimeout = 5 * time.Second

// NotLeaderError is returned by Propose when this node's raft instance is
// not the leader; LeaderHint names the current leader's raft bind address
// when known, matching §4.4's NotLeader(leader_hint).
type NotLeaderError struct {
	LeaderHint string
}

func (e *NotLeaderError) Error() string {
	if e.LeaderHint == "" {
		return "cluster: not leader, no known leader"
	}
	return fmt.Sprintf("cluster: not leader, try %s", e.LeaderHint)
}

// Config bootstraps one cluster node's raft instance.
type Config struct {
	ID        uint64
	RaftAddr  string // host:port raft uses for its own replication transport
	DataAddr  string // host:port this node's data-plane (RESP) listener
	DataDir   string
	Bootstrap bool // true for the node that forms a brand-new single-node cluster
	Log       *logrus.Entry
}

// Node owns one server's raft participation in the cluster metadata state
// machine: the FSM, the on-disk log/stable/snapshot stores (grounded on the
// pack's only raft-based control plane, `cuemby-warren`, which layers
// BoltDB-backed persistence the same way under its own manager raft group),
// and the slot-migration bookkeeping (§4.5) that sits alongside the
// replicated metadata rather than inside it (migration state is
// per-node-local and doesn't need consensus to flip).
type Node struct {
	ID       uint64
	DataAddr string

	state     *State
	raft      *raft.Raft
	migration *migrationTable
	log       *logrus.Entry
}

// NewNode bootstraps (or rejoins) this node's raft participation.
func NewNode(cfg Config) (*Node, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cluster: create data dir: %w", err)
	}

	state := NewState()
	fsmInstance := newFSM(state)

	logStorePath := filepath.Join(cfg.DataDir, "raft-log.db")
	logStore, err := raftboltdb.NewBoltStore(logStorePath)
	if err != nil {
		return nil, fmt.Errorf("cluster: open raft log store: %w", err)
	}
	stableStorePath := filepath.Join(cfg.DataDir, "raft-stable.db")
	stableStore, err := raftboltdb.NewBoltStore(stableStorePath)
	if err != nil {
		return nil, fmt.Errorf("cluster: open raft stable store: %w", err)
	}
	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, cfg.Log.Logger.Out)
	if err != nil {
		return nil, fmt.Errorf("cluster: open snapshot store: %w", err)
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.RaftAddr)
	if err != nil {
		return nil, fmt.Errorf("cluster: resolve raft addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.RaftAddr, addr, 3, 10*time.Second, cfg.Log.Logger.Out)
	if err != nil {
		return nil, fmt.Errorf("cluster: open raft transport: %w", err)
	}

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(fmt.Sprintf("%d", cfg.ID))

	r, err := raft.NewRaft(raftConfig, fsmInstance, logStore, stableStore, snapshots, transport)
	if err != nil {
		return nil, fmt.Errorf("cluster: start raft: %w", err)
	}

	if cfg.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{{
				ID:      raftConfig.LocalID,
				Address: transport.LocalAddr(),
			}},
		}
		r.BootstrapCluster(configuration)
	}

	return &Node{
		ID:        cfg.ID,
		DataAddr:  cfg.DataAddr,
		state:     state,
		raft:      r,
		migration: newMigrationTable(),
		log:       cfg.Log,
	}, nil
}

// Propose submits a command and blocks until it is committed (or fails).
// Per §4.4's consistency contract, once this returns nil, ReadLocal on this
// node reflects the command.
func (n *Node) Propose(cmd Command) error {
	if n.raft.State() != raft.Leader {
		return &NotLeaderError{LeaderHint: string(n.raft.Leader())}
	}
	data, err := encodeCommand(cmd)
	if err != nil {
		return fmt.Errorf("cluster: encode command: %w", err)
	}
	future := n.raft.Apply(data, proposeTimeout)
	if err := future.Error(); err != nil {
		if err == raft.ErrNotLeader || err == raft.ErrLeadershipLost {
			return &NotLeaderError{LeaderHint: string(n.raft.Leader())}
		}
		return fmt.Errorf("cluster: consensus error: %w", err)
	}
	if applyErr, ok := future.Response().(error); ok && applyErr != nil {
		return applyErr
	}
	return nil
}

// ReadLocal returns this node's applied state (§4.4's read_local()).
func (n *Node) ReadLocal() Snapshot { return n.state.Read() }

// Leader returns the raft bind address of the current leader, if known.
func (n *Node) Leader() (string, bool) {
	addr := n.raft.Leader()
	return string(addr), addr != ""
}

// IsLeader reports whether this node is currently the raft leader.
func (n *Node) IsLeader() bool { return n.raft.State() == raft.Leader }

// AddLearner proposes adding id/addr as a non-voting member.
func (n *Node) AddLearner(id uint64, raftAddr string) error {
	if !n.IsLeader() {
		return &NotLeaderError{LeaderHint: string(n.raft.Leader())}
	}
	future := n.raft.AddNonvoter(raft.ServerID(fmt.Sprintf("%d", id)), raft.ServerAddress(raftAddr), 0, proposeTimeout)
	return future.Error()
}

// Promote turns a learner into a full voting member.
func (n *Node) Promote(id uint64, raftAddr string) error {
	if !n.IsLeader() {
		return &NotLeaderError{LeaderHint: string(n.raft.Leader())}
	}
	future := n.raft.AddVoter(raft.ServerID(fmt.Sprintf("%d", id)), raft.ServerAddress(raftAddr), 0, proposeTimeout)
	return future.Error()
}

// Members returns the raft server ids and addresses of the current
// configuration, for METARAFT MEMBERS.
func (n *Node) Members() ([]raft.Server, error) {
	future := n.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return nil, err
	}
	return future.Configuration().Servers, nil
}

// Shutdown stops the raft instance; used on graceful process exit.
func (n *Node) Shutdown() error {
	return n.raft.Shutdown().Error()
}
