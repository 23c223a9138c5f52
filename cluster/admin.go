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
	"sort"
	"strconv"
	"strings"

	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

// Admin implements command.ClusterAdmin: the CLUSTER subcommand surface of
// §4.5. Every mutating subcommand proposes one or more state-machine
// commands and blocks until commit, per §4.4's consistency contract.
type Admin struct {
	node  *Node
	store store.Facade
}

func NewAdmin(node *Node, facade store.Facade) *Admin {
	return &Admin{node: node, store: facade}
}

func (a *Admin) Dispatch(ctx *command.Context, sub string, args [][]byte) (protocol.Frame, *errs.Error) {
	switch sub {
	case "INFO":
		return protocol.BulkString(a.info()), nil
	case "NODES":
		return protocol.BulkString(a.nodesLine()), nil
	case "SLOTS":
		return a.slotsFrame(), nil
	case "SHARDS":
		return a.shardsFrame(), nil
	case "MYID":
		return protocol.BulkString(IDHex(a.node.ID)), nil
	case "KEYSLOT":
		if len(args) != 1 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|keyslot")
		}
		return protocol.Int(int64(KeySlot(string(args[0])))), nil
	case "COUNTKEYSINSLOT":
		if len(args) != 1 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|countkeysinslot")
		}
		slot, perr := strconv.Atoi(string(args[0]))
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid slot")
		}
		return protocol.Int(int64(a.countKeysInSlot(ctx, slot))), nil
	case "GETKEYSINSLOT":
		if len(args) != 2 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|getkeysinslot")
		}
		slot, perr := strconv.Atoi(string(args[0]))
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid slot")
		}
		count, perr := strconv.Atoi(string(args[1]))
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid count")
		}
		return a.getKeysInSlot(ctx, slot, count), nil
	case "MEET":
		return a.meet(args)
	case "FORGET":
		return a.forget(args)
	case "ADDSLOTS":
		return a.addSlots(args)
	case "ADDSLOTSRANGE":
		return a.addSlotsRange(args)
	case "DELSLOTS":
		return a.delSlots(args)
	case "DELSLOTSRANGE":
		return a.delSlotsRange(args)
	case "FLUSHSLOTS":
		return a.flushSlots()
	case "SETSLOT":
		return a.setSlot(args)
	case "REPLICATE":
		return a.replicate(args)
	case "ADD-REPLICATION":
		return a.addReplication(args)
	case "FAILOVER":
		return a.failover(args)
	case "METARAFT":
		return a.metaraft(args)
	case "RESET":
		return a.reset(args)
	case "BUMPEPOCH":
		// config_version already bumps on every mutation; BUMPEPOCH's
		// classic role (force a new epoch after a split-brain) has no
		// separate counter to advance here, so report the current value.
		return protocol.BulkString(fmt.Sprintf("BUMPED %d", a.node.ReadLocal().ConfigVersion)), nil
	case "SAVECONFIG":
		return okFrame(), nil
	case "COUNT-FAILURE-REPORTS":
		return protocol.Int(0), nil
	default:
		return protocol.Frame{}, errs.ClusterError("unknown CLUSTER subcommand '%s'", sub)
	}
}

func okFrame() protocol.Frame { return protocol.Simple("OK") }

// info synthesizes CLUSTER INFO's summary; cluster_state is ok iff every
// slot is assigned and every group that owns at least one slot has a
// leader (§4.5).
func (a *Admin) info() string {
	snap := a.node.ReadLocal()
	assigned := 0
	ownerless := false
	owningGroups := map[uint64]bool{}
	for _, g := range snap.Slots {
		if g != 0 {
			assigned++
			owningGroups[g] = true
		}
	}
	for gid := range owningGroups {
		if g, ok := snap.GroupByID(gid); !ok || g.Leader == 0 {
			ownerless = true
		}
	}
	state := "ok"
	if assigned != SlotCount || ownerless {
		state = "fail"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "cluster_enabled:1\r\n")
	fmt.Fprintf(&b, "cluster_state:%s\r\n", state)
	fmt.Fprintf(&b, "cluster_slots_assigned:%d\r\n", assigned)
	fmt.Fprintf(&b, "cluster_slots_ok:%d\r\n", assigned)
	fmt.Fprintf(&b, "cluster_known_nodes:%d\r\n", len(snap.Nodes))
	fmt.Fprintf(&b, "cluster_size:%d\r\n", len(snap.Groups))
	fmt.Fprintf(&b, "cluster_current_epoch:%d\r\n", snap.ConfigVersion)
	fmt.Fprintf(&b, "cluster_my_epoch:%d\r\n", snap.ConfigVersion)
	return b.String()
}

// nodesLine renders CLUSTER NODES: one line per node, per §4.5's format
// `<id-hex-40> <ip:port>@<cluster-port> <flags> <master-id-or-dash> 0 0
// <epoch> <link-state> <slot-ranges>`.
func (a *Admin) nodesLine() string {
	snap := a.node.ReadLocal()
	groupOf := map[uint64]uint64{} // nodeID -> groupID it's the leader or a replica of
	leaderOf := map[uint64]bool{}
	for _, g := range snap.Groups {
		if g.Leader != 0 {
			groupOf[g.Leader] = g.ID
			leaderOf[g.Leader] = true
		}
		for _, r := range g.Replicas {
			if _, ok := groupOf[r]; !ok {
				groupOf[r] = g.ID
			}
		}
	}
	slotRanges := map[uint64][]string{}
	lo := -1
	var cur uint64
	flush := func(hi int) {
		if lo >= 0 && cur != 0 {
			if lo == hi-1 {
				slotRanges[cur] = append(slotRanges[cur], fmt.Sprintf("%d", lo))
			} else {
				slotRanges[cur] = append(slotRanges[cur], fmt.Sprintf("%d-%d", lo, hi-1))
			}
		}
	}
	for i := 0; i < SlotCount; i++ {
		g := snap.Slots[i]
		if g != cur {
			flush(i)
			cur = g
			lo = i
		}
	}
	flush(SlotCount)

	var b strings.Builder
	for _, n := range snap.Nodes {
		flags := []string{}
		if n.ID == a.node.ID {
			flags = append(flags, "myself")
		}
		master := "-"
		if leaderOf[n.ID] {
			flags = append(flags, "master")
		} else {
			flags = append(flags, "slave")
			if gid, ok := groupOf[n.ID]; ok {
				if g, ok := snap.GroupByID(gid); ok && g.Leader != 0 {
					master = IDHex(g.Leader)
				}
			}
		}
		ranges := ""
		if gid, ok := groupOf[n.ID]; ok && leaderOf[n.ID] {
			ranges = strings.Join(slotRanges[gid], " ")
		}
		_, port := splitHostPort(n.Address)
		fmt.Fprintf(&b, "%s %s@%d %s %s 0 0 %d connected %s\n",
			IDHex(n.ID), n.Address, port+10000, strings.Join(flags, ","), master, snap.ConfigVersion, ranges)
	}
	return b.String()
}

func (a *Admin) slotsFrame() protocol.Frame {
	snap := a.node.ReadLocal()
	var items []protocol.Frame
	lo := -1
	var cur uint64
	emit := func(hi int) {
		if lo < 0 || cur == 0 {
			return
		}
		group, ok := snap.GroupByID(cur)
		if !ok {
			return
		}
		entry := []protocol.Frame{protocol.Int(int64(lo)), protocol.Int(int64(hi - 1))}
		if leader, ok := snap.NodeByID(group.Leader); ok {
			entry = append(entry, nodeDescriptorFrame(leader))
		}
		for _, r := range group.Replicas {
			if n, ok := snap.NodeByID(r); ok {
				entry = append(entry, nodeDescriptorFrame(n))
			}
		}
		items = append(items, protocol.Array(entry))
	}
	for i := 0; i < SlotCount; i++ {
		g := snap.Slots[i]
		if g != cur {
			emit(i)
			cur = g
			lo = i
		}
	}
	emit(SlotCount)
	return protocol.Array(items)
}

func (a *Admin) shardsFrame() protocol.Frame {
	snap := a.node.ReadLocal()
	var items []protocol.Frame
	for _, g := range snap.Groups {
		var slotList []protocol.Frame
		lo := -1
		for i := 0; i <= SlotCount; i++ {
			owned := i < SlotCount && snap.Slots[i] == g.ID
			if owned && lo < 0 {
				lo = i
			} else if !owned && lo >= 0 {
				slotList = append(slotList, protocol.Int(int64(lo)), protocol.Int(int64(i-1)))
				lo = -1
			}
		}
		var nodes []protocol.Frame
		if leader, ok := snap.NodeByID(g.Leader); ok {
			nodes = append(nodes, nodeDescriptorFrame(leader))
		}
		for _, r := range g.Replicas {
			if n, ok := snap.NodeByID(r); ok {
				nodes = append(nodes, nodeDescriptorFrame(n))
			}
		}
		items = append(items, protocol.Array([]protocol.Frame{
			protocol.BulkString("slots"), protocol.Array(slotList),
			protocol.BulkString("nodes"), protocol.Array(nodes),
		}))
	}
	return protocol.Array(items)
}

func nodeDescriptorFrame(n Node) protocol.Frame {
	host, port := splitHostPort(n.Address)
	return protocol.Array([]protocol.Frame{
		protocol.BulkString(host),
		protocol.Int(int64(port)),
		protocol.BulkString(IDHex(n.ID)),
	})
}

func splitHostPort(addr string) (string, int) {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return addr, 0
	}
	port, _ := strconv.Atoi(addr[i+1:])
	return addr[:i], port
}

func (a *Admin) countKeysInSlot(ctx *command.Context, slot int) int {
	n := 0
	for _, k := range a.store.Keys(ctx.State.DB) {
		if KeySlot(k) == slot {
			n++
		}
	}
	return n
}

func (a *Admin) getKeysInSlot(ctx *command.Context, slot, count int) protocol.Frame {
	var out []protocol.Frame
	keys := a.store.Keys(ctx.State.DB)
	sort.Strings(keys)
	for _, k := range keys {
		if KeySlot(k) != slot {
			continue
		}
		out = append(out, protocol.BulkString(k))
		if len(out) >= count {
			break
		}
	}
	return protocol.Array(out)
}

func (a *Admin) meet(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) < 2 || len(args) > 3 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|meet")
	}
	host := string(args[0])
	port, perr := strconv.Atoi(string(args[1]))
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("invalid port")
	}
	id := NewID()
	if len(args) == 3 {
		parsed, perr := strconv.ParseUint(string(args[2]), 16, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid node id")
		}
		id = parsed
	}
	if err := a.propose(AddNodeCommand(id, fmt.Sprintf("%s:%d", host, port))); err != nil {
		return protocol.Frame{}, err
	}
	return okFrame(), nil
}

func (a *Admin) forget(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) != 1 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|forget")
	}
	id, perr := strconv.ParseUint(string(args[0]), 16, 64)
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("invalid node id")
	}
	if id == a.node.ID {
		return protocol.Frame{}, errs.ClusterError("cannot forget myself")
	}
	if err := a.propose(RemoveNodeCommand(id)); err != nil {
		return protocol.Frame{}, err
	}
	return okFrame(), nil
}

// selfGroup returns the group this node leads, creating one (with this
// node as its sole member/leader) if it is not yet in one — the implicit
// group-formation ADDSLOTS performs per §4.5.
func (a *Admin) selfGroup() (uint64, *errs.Error) {
	snap := a.node.ReadLocal()
	for _, g := range snap.Groups {
		if g.Leader == a.node.ID {
			return g.ID, nil
		}
	}
	gid := NewID()
	if err := a.propose(CreateGroupCommand(gid, []uint64{a.node.ID})); err != nil {
		return 0, err
	}
	if err := a.propose(SetGroupLeaderCommand(gid, a.node.ID)); err != nil {
		return 0, err
	}
	return gid, nil
}

func (a *Admin) addSlots(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) == 0 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|addslots")
	}
	slots, perr := parseSlotList(args)
	if perr != nil {
		return protocol.Frame{}, perr
	}
	gid, err := a.selfGroup()
	if err != nil {
		return protocol.Frame{}, err
	}
	for _, r := range rangesOf(slots) {
		if err := a.propose(AssignSlotsCommand(r[0], r[1], gid)); err != nil {
			return protocol.Frame{}, err
		}
	}
	return okFrame(), nil
}

func (a *Admin) addSlotsRange(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) < 2 || len(args)%2 != 0 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|addslotsrange")
	}
	gid, err := a.selfGroup()
	if err != nil {
		return protocol.Frame{}, err
	}
	for i := 0; i < len(args); i += 2 {
		lo, hi, perr := parseRange(args[i], args[i+1])
		if perr != nil {
			return protocol.Frame{}, perr
		}
		if err := a.propose(AssignSlotsCommand(lo, hi+1, gid)); err != nil {
			return protocol.Frame{}, err
		}
	}
	return okFrame(), nil
}

func (a *Admin) delSlots(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) == 0 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|delslots")
	}
	slots, perr := parseSlotList(args)
	if perr != nil {
		return protocol.Frame{}, perr
	}
	for _, r := range rangesOf(slots) {
		if err := a.propose(AssignSlotsCommand(r[0], r[1], 0)); err != nil {
			return protocol.Frame{}, err
		}
	}
	return okFrame(), nil
}

func (a *Admin) delSlotsRange(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) < 2 || len(args)%2 != 0 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|delslotsrange")
	}
	for i := 0; i < len(args); i += 2 {
		lo, hi, perr := parseRange(args[i], args[i+1])
		if perr != nil {
			return protocol.Frame{}, perr
		}
		if err := a.propose(AssignSlotsCommand(lo, hi+1, 0)); err != nil {
			return protocol.Frame{}, err
		}
	}
	return okFrame(), nil
}

func (a *Admin) flushSlots() (protocol.Frame, *errs.Error) {
	if err := a.propose(AssignSlotsCommand(0, SlotCount, 0)); err != nil {
		return protocol.Frame{}, err
	}
	return okFrame(), nil
}

// setSlot implements CLUSTER SETSLOT <slot> MIGRATING <dest-id> |
// IMPORTING <src-id> | NODE <dest-id> | STABLE, the per-node migration flag
// transitions and final commit named (but not bulleted) in §4.5's slot
// migration paragraph.
func (a *Admin) setSlot(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) < 2 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|setslot")
	}
	slot, perr := strconv.Atoi(string(args[0]))
	if perr != nil || slot < 0 || slot >= SlotCount {
		return protocol.Frame{}, errs.InvalidArgument("invalid slot '%s'", args[0])
	}
	action := strings.ToUpper(string(args[1]))
	snap := a.node.ReadLocal()

	switch action {
	case "MIGRATING":
		if len(args) != 3 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|setslot migrating")
		}
		destID, perr := strconv.ParseUint(string(args[2]), 16, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid node id")
		}
		destNode, ok := snap.NodeByID(destID)
		if !ok {
			return protocol.Frame{}, errs.ClusterError("unknown destination node")
		}
		a.node.migration.setMigrating(slot, destNode.Address)
		return okFrame(), nil
	case "IMPORTING":
		if len(args) != 3 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|setslot importing")
		}
		srcID, perr := strconv.ParseUint(string(args[2]), 16, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid node id")
		}
		srcNode, ok := snap.NodeByID(srcID)
		if !ok {
			return protocol.Frame{}, errs.ClusterError("unknown source node")
		}
		a.node.migration.setImporting(slot, srcNode.Address)
		return okFrame(), nil
	case "STABLE":
		a.node.migration.clear(slot)
		return okFrame(), nil
	case "NODE":
		if len(args) != 3 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|setslot node")
		}
		destID, perr := strconv.ParseUint(string(args[2]), 16, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid node id")
		}
		gid, ok := groupLeadingNode(snap, destID)
		if !ok {
			return protocol.Frame{}, errs.ClusterError("destination node leads no group")
		}
		if err := a.propose(AssignSlotsCommand(slot, slot+1, gid)); err != nil {
			return protocol.Frame{}, err
		}
		a.node.migration.clear(slot)
		return okFrame(), nil
	default:
		return protocol.Frame{}, errs.InvalidArgument("unknown SETSLOT action '%s'", action)
	}
}

func groupLeadingNode(snap Snapshot, nodeID uint64) (uint64, bool) {
	for _, g := range snap.Groups {
		if g.Leader == nodeID {
			return g.ID, true
		}
	}
	return 0, false
}

func (a *Admin) replicate(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) != 1 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|replicate")
	}
	masterID, perr := strconv.ParseUint(string(args[0]), 16, 64)
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("invalid node id")
	}
	snap := a.node.ReadLocal()
	for _, g := range snap.Groups {
		if g.Leader == masterID {
			members := append(append([]uint64(nil), g.Replicas...), a.node.ID)
			if err := a.propose(SetGroupMembersCommand(g.ID, members)); err != nil {
				return protocol.Frame{}, err
			}
			return okFrame(), nil
		}
	}
	return protocol.Frame{}, errs.ClusterError("unknown master node")
}

func (a *Admin) addReplication(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) != 2 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|add-replication")
	}
	replicaID, perr := strconv.ParseUint(string(args[0]), 16, 64)
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("invalid replica id")
	}
	masterID, perr := strconv.ParseUint(string(args[1]), 16, 64)
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("invalid master id")
	}
	snap := a.node.ReadLocal()
	for _, g := range snap.Groups {
		if g.Leader == masterID {
			members := append(append([]uint64(nil), g.Replicas...), replicaID)
			if err := a.propose(SetGroupMembersCommand(g.ID, members)); err != nil {
				return protocol.Frame{}, err
			}
			return okFrame(), nil
		}
	}
	return protocol.Frame{}, errs.ClusterError("unknown master node")
}

func (a *Admin) failover(args [][]byte) (protocol.Frame, *errs.Error) {
	snap := a.node.ReadLocal()
	for _, g := range snap.Groups {
		if g.hasReplica(a.node.ID) {
			if err := a.propose(SetGroupLeaderCommand(g.ID, a.node.ID)); err != nil {
				return protocol.Frame{}, err
			}
			return okFrame(), nil
		}
	}
	return protocol.Frame{}, errs.ClusterError("this node is not a replica of any group")
}

func (a *Admin) metaraft(args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) == 0 {
		return protocol.Frame{}, errs.WrongArgCount("cluster|metaraft")
	}
	sub := strings.ToUpper(string(args[0]))
	rest := args[1:]
	switch sub {
	case "ADDLEARNER":
		if len(rest) != 2 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|metaraft addlearner")
		}
		id, perr := strconv.ParseUint(string(rest[0]), 16, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid node id")
		}
		if gerr := a.node.AddLearner(id, string(rest[1])); gerr != nil {
			return protocol.Frame{}, mapRaftError(gerr)
		}
		return okFrame(), nil
	case "PROMOTE":
		if len(rest) < 2 {
			return protocol.Frame{}, errs.WrongArgCount("cluster|metaraft promote")
		}
		id, perr := strconv.ParseUint(string(rest[0]), 16, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("invalid node id")
		}
		if gerr := a.node.Promote(id, string(rest[1])); gerr != nil {
			return protocol.Frame{}, mapRaftError(gerr)
		}
		return okFrame(), nil
	case "MEMBERS":
		servers, err := a.node.Members()
		if err != nil {
			return protocol.Frame{}, errs.ClusterError("%s", err.Error())
		}
		var items []protocol.Frame
		for _, s := range servers {
			items = append(items, protocol.BulkString(fmt.Sprintf("%s %s", s.ID, s.Address)))
		}
		return protocol.Array(items), nil
	case "STATUS":
		leader, _ := a.node.Leader()
		status := fmt.Sprintf("id=%d leader=%s is_leader=%t", a.node.ID, leader, a.node.IsLeader())
		return protocol.BulkString(status), nil
	default:
		return protocol.Frame{}, errs.ClusterError("unknown METARAFT subcommand '%s'", sub)
	}
}

func (a *Admin) reset(args [][]byte) (protocol.Frame, *errs.Error) {
	mode := "SOFT"
	if len(args) == 1 {
		mode = strings.ToUpper(string(args[0]))
	}
	if mode == "HARD" {
		snap := a.node.ReadLocal()
		if gid, ok := groupLeadingNode(snap, a.node.ID); ok {
			var owned []int
			for i, g := range snap.Slots {
				if g == gid {
					owned = append(owned, i)
				}
			}
			for _, r := range rangesOf(owned) {
				if err := a.propose(AssignSlotsCommand(r[0], r[1], 0)); err != nil {
					return protocol.Frame{}, err
				}
			}
		}
	}
	return okFrame(), nil
}

// propose submits cmd and maps consensus-layer failures onto wire errors.
func (a *Admin) propose(cmd Command) *errs.Error {
	if err := a.node.Propose(cmd); err != nil {
		return mapRaftError(err)
	}
	return nil
}

func mapRaftError(err error) *errs.Error {
	if nl, ok := err.(*NotLeaderError); ok {
		return errs.ClusterError("%s", nl.Error())
	}
	return errs.ClusterError("%s", err.Error())
}

// rangesOf groups a sorted slot list (repeated slots are skipped) into
// consecutive [lo, hi) ranges, so ADDSLOTS/DELSLOTS propose one AssignSlots
// per contiguous run instead of one per slot.
func rangesOf(slots []int) [][2]int {
	if len(slots) == 0 {
		return nil
	}
	var out [][2]int
	lo := slots[0]
	prev := slots[0]
	for _, s := range slots[1:] {
		if s == prev {
			continue
		}
		if s != prev+1 {
			out = append(out, [2]int{lo, prev + 1})
			lo = s
		}
		prev = s
	}
	out = append(out, [2]int{lo, prev + 1})
	return out
}

func parseSlotList(args [][]byte) ([]int, *errs.Error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, perr := strconv.Atoi(string(a))
		if perr != nil || n < 0 || n >= SlotCount {
			return nil, errs.InvalidArgument("invalid slot '%s'", a)
		}
		out[i] = n
	}
	sort.Ints(out)
	return out, nil
}

func parseRange(loArg, hiArg []byte) (int, int, *errs.Error) {
	lo, perr := strconv.Atoi(string(loArg))
	if perr != nil {
		return 0, 0, errs.InvalidArgument("invalid slot '%s'", loArg)
	}
	hi, perr := strconv.Atoi(string(hiArg))
	if perr != nil {
		return 0, 0, errs.InvalidArgument("invalid slot '%s'", hiArg)
	}
	if lo < 0 || hi >= SlotCount || lo > hi {
		return 0, 0, errs.InvalidArgument("invalid slot range")
	}
	return lo, hi, nil
}
