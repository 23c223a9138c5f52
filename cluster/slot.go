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

// Package cluster implements the slot router, the replicated metadata state
// machine and the CLUSTER control surface (§4.4, §4.5): C8, C9, C10.
package cluster

// SlotCount is the fixed slot-space size used by the slot router, matching
// Redis Cluster's own constant so existing client slot-range tooling works
// unmodified.
const SlotCount = 16384

// KeySlot computes slot(key) = CRC16_CCITT(hash_region(key)) mod SlotCount
// per §4.5. hash_region extracts the substring between the first '{' and
// the next '}' when both exist and the region is non-empty; otherwise the
// whole key is used.
func KeySlot(key string) int {
	return int(crc16XModem(hashRegion(key))) % SlotCount
}

// hashRegion implements the {tag} hash-tag extraction: keys sharing a tag
// route to the same slot so multi-key operations on them stay single-slot.
func hashRegion(key string) string {
	start := indexByte(key, '{')
	if start < 0 {
		return key
	}
	end := indexByte(key[start+1:], '}')
	if end < 0 {
		return key
	}
	if end == 0 {
		// "{}" — empty tag, falls back to the whole key.
		return key
	}
	return key[start+1 : start+1+end]
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// crc16XModem is the CRC16/XMODEM variant used by Redis Cluster: polynomial
// 0x1021, initial value 0, no input/output reflection.
func crc16XModem(data string) uint16 {
	var crc uint16
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
