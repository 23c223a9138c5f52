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
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID mints a 64-bit cluster-unique id (node or group) from the low 8
// bytes of a freshly generated UUIDv4. Collisions are astronomically
// unlikely at the scale of a single cluster's node/group count.
func NewID() uint64 {
	u := uuid.New()
	return binary.BigEndian.Uint64(u[8:16])
}

// IDHex renders a node/group id as the 40-character hex string CLUSTER
// NODES uses, left-padded with zeroes to match Redis Cluster's SHA-1-sized
// node id column even though this cluster's ids are only 64 bits wide.
func IDHex(id uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return "00000000000000000000000000000000"[:40-16] + hex.EncodeToString(buf[:])
}
