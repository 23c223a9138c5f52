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
	"testing"

	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/store"
)

// bareNode builds a *Node good enough for Guard tests without starting an
// actual raft instance: Check only ever touches node.state, node.ID and
// node.migration.
func bareNode(id uint64, state *State) *Node {
	return &Node{ID: id, state: state, migration: newMigrationTable()}
}

func singleKeySlotGroup(t *testing.T, gid uint64) (string, *State) {
	t.Helper()
	s := NewState()
	key := "k"
	slot := KeySlot(key)
	mustApply(t, s, AddNodeCommand(1, "node1:7000"))
	mustApply(t, s, AddNodeCommand(2, "node2:7000"))
	mustApply(t, s, CreateGroupCommand(gid, []uint64{1, 2}))
	mustApply(t, s, SetGroupLeaderCommand(gid, 1))
	mustApply(t, s, AssignSlotsCommand(slot, slot+1, gid))
	return key, s
}

func TestGuardAllowsLeader(t *testing.T) {
	key, s := singleKeySlotGroup(t, 10)
	g := NewGuard(bareNode(1, s), store.NewMemoryBackend(1))
	if err := g.Check(&command.ConnState{}, []string{key}, true); err != nil {
		t.Fatalf("expected leader to be allowed, got %v", err)
	}
}

func TestGuardRedirectsNonOwner(t *testing.T) {
	key, s := singleKeySlotGroup(t, 10)
	g := NewGuard(bareNode(2, s), store.NewMemoryBackend(1))
	err := g.Check(&command.ConnState{}, []string{key}, true)
	if err == nil || err.Kind != errs.KindMoved {
		t.Fatalf("expected MOVED, got %v", err)
	}
	if err.Addr != "node1:7000" {
		t.Fatalf("expected redirect to node1:7000, got %q", err.Addr)
	}
}

func TestGuardAllowsReadOnlyReplicaForReads(t *testing.T) {
	key, s := singleKeySlotGroup(t, 10)
	g := NewGuard(bareNode(2, s), store.NewMemoryBackend(1))
	state := &command.ConnState{ReadOnly: true}
	if err := g.Check(state, []string{key}, false); err != nil {
		t.Fatalf("expected read-only replica read to be allowed, got %v", err)
	}
}

func TestGuardRejectsReplicaWrite(t *testing.T) {
	key, s := singleKeySlotGroup(t, 10)
	g := NewGuard(bareNode(2, s), store.NewMemoryBackend(1))
	state := &command.ConnState{ReadOnly: true}
	err := g.Check(state, []string{key}, true)
	if err == nil || err.Kind != errs.KindMoved {
		t.Fatalf("expected replica write to be redirected, got %v", err)
	}
}

func TestGuardCrossSlot(t *testing.T) {
	s := NewState()
	mustApply(t, s, AddNodeCommand(1, "node1:7000"))
	mustApply(t, s, CreateGroupCommand(10, []uint64{1}))
	mustApply(t, s, SetGroupLeaderCommand(10, 1))
	mustApply(t, s, AssignSlotsCommand(0, SlotCount, 10))

	g := NewGuard(bareNode(1, s), store.NewMemoryBackend(1))
	// Pick two keys virtually guaranteed to hash to different slots.
	err := g.Check(&command.ConnState{}, []string{"a", "zzzzzzzzzzzzzzzzzzzz"}, false)
	if KeySlot("a") != KeySlot("zzzzzzzzzzzzzzzzzzzz") && (err == nil || err.Kind != errs.KindCrossSlot) {
		t.Fatalf("expected CROSSSLOT, got %v", err)
	}
}

func TestGuardUnassignedSlotIsClusterDown(t *testing.T) {
	s := NewState()
	g := NewGuard(bareNode(1, s), store.NewMemoryBackend(1))
	err := g.Check(&command.ConnState{}, []string{"anything"}, false)
	if err == nil || err.Kind != errs.KindClusterDown {
		t.Fatalf("expected CLUSTERDOWN for an unassigned slot, got %v", err)
	}
}

func TestGuardAskingAllowsImportingSlot(t *testing.T) {
	key, s := singleKeySlotGroup(t, 10)
	slot := KeySlot(key)

	importer := bareNode(2, s)
	importer.migration.setImporting(slot, "node1:7000")

	g := NewGuard(importer, store.NewMemoryBackend(1))
	state := &command.ConnState{Asking: true}
	if err := g.Check(state, []string{key}, true); err != nil {
		t.Fatalf("expected ASKING to allow access to an importing slot, got %v", err)
	}
	if state.Asking {
		t.Fatalf("expected the single-shot ASKING marker to be consumed")
	}
}

func TestGuardMigratingSlotAsksWhenKeyAbsent(t *testing.T) {
	key, s := singleKeySlotGroup(t, 10)
	slot := KeySlot(key)

	leader := bareNode(1, s)
	leader.migration.setMigrating(slot, "node2:7000")

	g := NewGuard(leader, store.NewMemoryBackend(1))
	err := g.Check(&command.ConnState{}, []string{key}, true)
	if err == nil || err.Kind != errs.KindAsk {
		t.Fatalf("expected ASK for a migrating slot with an absent key, got %v", err)
	}
	if err.Addr != "node2:7000" {
		t.Fatalf("expected ASK redirect to node2:7000, got %q", err.Addr)
	}
}

func TestGuardMigratingSlotServesLocallyWhenKeyPresent(t *testing.T) {
	key, s := singleKeySlotGroup(t, 10)
	slot := KeySlot(key)

	facade := store.NewMemoryBackend(1)
	facade.Set(0, key, store.NewStringValue([]byte("v")), 0)

	leader := bareNode(1, s)
	leader.migration.setMigrating(slot, "node2:7000")

	g := NewGuard(leader, facade)
	if err := g.Check(&command.ConnState{}, []string{key}, true); err != nil {
		t.Fatalf("expected local serve when key exists during migration, got %v", err)
	}
}
