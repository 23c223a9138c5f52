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

import "encoding/json"

// CommandKind enumerates the complete state-machine command set of §4.4.
type CommandKind int

const (
	CmdAddNode CommandKind = iota
	CmdRemoveNode
	CmdSetNodeStatus
	CmdCreateGroup
	CmdSetGroupLeader
	CmdSetGroupMembers
	CmdAssignSlots
)

// Command is the raft log entry payload: one tagged variant covering every
// mutation §4.4 defines. Fields irrelevant to Kind are left zero.
type Command struct {
	Kind CommandKind

	NodeID  uint64
	Address string
	Status  NodeStatus

	GroupID uint64
	Members []uint64

	Lo, Hi int
}

func encodeCommand(c Command) ([]byte, error) {
	return json.Marshal(c)
}

func decodeCommand(b []byte) (Command, error) {
	var c Command
	err := json.Unmarshal(b, &c)
	return c, err
}

func AddNodeCommand(id uint64, addr string) Command {
	return Command{Kind: CmdAddNode, NodeID: id, Address: addr}
}

func RemoveNodeCommand(id uint64) Command {
	return Command{Kind: CmdRemoveNode, NodeID: id}
}

func SetNodeStatusCommand(id uint64, status NodeStatus) Command {
	return Command{Kind: CmdSetNodeStatus, NodeID: id, Status: status}
}

func CreateGroupCommand(group uint64, members []uint64) Command {
	return Command{Kind: CmdCreateGroup, GroupID: group, Members: members}
}

func SetGroupLeaderCommand(group, leader uint64) Command {
	return Command{Kind: CmdSetGroupLeader, GroupID: group, NodeID: leader}
}

func SetGroupMembersCommand(group uint64, members []uint64) Command {
	return Command{Kind: CmdSetGroupMembers, GroupID: group, Members: members}
}

func AssignSlotsCommand(lo, hi int, group uint64) Command {
	return Command{Kind: CmdAssignSlots, Lo: lo, Hi: hi, GroupID: group}
}
