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
	"strings"
	"testing"

	"github.com/launix-de/aikv/store"
)

func TestRangesOfGroupsConsecutiveSlots(t *testing.T) {
	got := rangesOf([]int{1, 2, 3, 5, 7, 8})
	want := [][2]int{{1, 4}, {5, 6}, {7, 9}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSplitHostPort(t *testing.T) {
	host, port := splitHostPort("10.0.0.5:7001")
	if host != "10.0.0.5" || port != 7001 {
		t.Fatalf("got %q %d", host, port)
	}
}

func TestAdminInfoReportsFailWhenUnassigned(t *testing.T) {
	s := NewState()
	a := NewAdmin(bareNode(1, s), store.NewMemoryBackend(1))
	info := a.info()
	if !strings.Contains(info, "cluster_state:fail") {
		t.Fatalf("expected fail state with no slots assigned, got %q", info)
	}
}

func TestAdminInfoReportsOkWhenFullyAssignedAndLed(t *testing.T) {
	s := NewState()
	mustApply(t, s, AddNodeCommand(1, "node1:7000"))
	mustApply(t, s, CreateGroupCommand(10, []uint64{1}))
	mustApply(t, s, SetGroupLeaderCommand(10, 1))
	mustApply(t, s, AssignSlotsCommand(0, SlotCount, 10))

	a := NewAdmin(bareNode(1, s), store.NewMemoryBackend(1))
	info := a.info()
	if !strings.Contains(info, "cluster_state:ok") {
		t.Fatalf("expected ok state, got %q", info)
	}
}

func TestAdminNodesLineIncludesMyself(t *testing.T) {
	s := NewState()
	mustApply(t, s, AddNodeCommand(1, "node1:7000"))

	a := NewAdmin(bareNode(1, s), store.NewMemoryBackend(1))
	line := a.nodesLine()
	if !strings.Contains(line, "myself") {
		t.Fatalf("expected myself flag in CLUSTER NODES output, got %q", line)
	}
}

func TestAdminKeyslotDispatch(t *testing.T) {
	s := NewState()
	a := NewAdmin(bareNode(1, s), store.NewMemoryBackend(1))
	frame, err := a.Dispatch(nil, "KEYSLOT", [][]byte{[]byte("foo")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Int != int64(KeySlot("foo")) {
		t.Fatalf("got %d, want %d", frame.Int, KeySlot("foo"))
	}
}
