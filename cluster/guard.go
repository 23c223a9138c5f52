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
	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/store"
)

// Guard implements command.ClusterGuard: the slot-ownership check the
// dispatcher runs before every keyed command (§4.5).
type Guard struct {
	node  *Node
	store store.Facade
}

func NewGuard(node *Node, facade store.Facade) *Guard {
	return &Guard{node: node, store: facade}
}

// Check implements the four-step algorithm of §4.5. It is only invoked by
// the dispatcher for commands that have at least one key (keyless commands
// never reach here, satisfying step 1 for free).
func (g *Guard) Check(state *command.ConnState, keys []string, write bool) *errs.Error {
	slot, crossErr := singleSlot(keys)
	if crossErr != nil {
		return crossErr
	}

	asking := state.Asking
	state.Asking = false // single-shot: consumed by this request regardless of outcome

	snap := g.node.ReadLocal()
	groupID := snap.Slots[slot]

	if src, importing := g.node.migration.importingSrc(slot); importing && src != "" {
		if asking {
			return nil
		}
		// No asking marker: fall through to the ordinary ownership
		// verdict below, which (since this node isn't yet the owner of
		// record) resolves to MOVED at the still-current owner.
	}

	if groupID == 0 {
		return errs.ClusterDown("slot not served")
	}

	group, ok := snap.GroupByID(groupID)
	if !ok {
		return errs.ClusterDown("slot not served")
	}

	if group.Leader == g.node.ID {
		if dest, migrating := g.node.migration.migratingDest(slot); migrating && dest != "" {
			if !anyKeyExistsLocally(g.store, state.DB, keys) {
				return errs.Ask(slot, dest)
			}
		}
		return nil
	}

	if group.hasReplica(g.node.ID) && state.ReadOnly && !write {
		return nil
	}

	leaderAddr := ""
	if leader, ok := snap.NodeByID(group.Leader); ok {
		leaderAddr = leader.Address
	}
	return errs.Moved(slot, leaderAddr)
}

// singleSlot computes the slot for every key and requires they all agree;
// step 2 of §4.5's guard algorithm.
func singleSlot(keys []string) (int, *errs.Error) {
	slot := KeySlot(keys[0])
	for _, k := range keys[1:] {
		if KeySlot(k) != slot {
			return 0, errs.CrossSlot()
		}
	}
	return slot, nil
}

func anyKeyExistsLocally(facade store.Facade, db int, keys []string) bool {
	for _, k := range keys {
		if _, ok := facade.Get(db, k); ok {
			return true
		}
	}
	return false
}
