/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

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

package store

import "github.com/google/btree"

// zsetItem is the btree element: (score, member) pairs ordered by score
// ascending, ties broken lexicographically on member bytes, matching the
// sorted-set iteration order in the data model.
type zsetItem struct {
	score  float64
	member string
}

// Member returns the item's member name.
func (z zsetItem) Member() string { return z.member }

// Score returns the item's score.
func (z zsetItem) Score() float64 { return z.score }

func zsetLess(a, b zsetItem) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

// ZSet is a sorted set: a map from member to score plus a btree ordered
// index for O(log n) rank/range queries, grounded on the teacher's use of
// google/btree for ordered scan structures (storage/index.go).
type ZSet struct {
	scores map[string]float64
	tree   *btree.BTreeG[zsetItem]
}

// NewZSet returns an empty sorted set.
func NewZSet() *ZSet {
	return &ZSet{
		scores: make(map[string]float64),
		tree:   btree.NewG(32, zsetLess),
	}
}

// Len returns the member count.
func (z *ZSet) Len() int { return len(z.scores) }

// Score returns the member's score and whether it is present.
func (z *ZSet) Score(member string) (float64, bool) {
	s, ok := z.scores[member]
	return s, ok
}

// Set inserts or updates a member's score, returning true if the member was
// newly added.
func (z *ZSet) Set(member string, score float64) bool {
	if old, ok := z.scores[member]; ok {
		if old == score {
			return false
		}
		z.tree.Delete(zsetItem{old, member})
		z.scores[member] = score
		z.tree.ReplaceOrInsert(zsetItem{score, member})
		return false
	}
	z.scores[member] = score
	z.tree.ReplaceOrInsert(zsetItem{score, member})
	return true
}

// Remove deletes a member, returning true if it was present.
func (z *ZSet) Remove(member string) bool {
	score, ok := z.scores[member]
	if !ok {
		return false
	}
	delete(z.scores, member)
	z.tree.Delete(zsetItem{score, member})
	return true
}

// RankAsc returns the zero-based ascending rank of member, or -1 if absent.
func (z *ZSet) RankAsc(member string) int {
	score, ok := z.scores[member]
	if !ok {
		return -1
	}
	rank := 0
	target := zsetItem{score, member}
	z.tree.Ascend(func(item zsetItem) bool {
		if item == target {
			return false
		}
		rank++
		return true
	})
	return rank
}

// RangeByIndex returns the members at positions [from, to) of the ascending
// order (of the descending order when reverse is set), after negative-index
// normalization has already been applied by the caller.
func (z *ZSet) RangeByIndex(from, to int, reverse bool) []zsetItem {
	all := make([]zsetItem, 0, z.Len())
	z.tree.Ascend(func(item zsetItem) bool {
		all = append(all, item)
		return true
	})
	if reverse {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}
	if from < 0 {
		from = 0
	}
	if to > len(all) {
		to = len(all)
	}
	if from >= to {
		return nil
	}
	return append([]zsetItem(nil), all[from:to]...)
}

// RangeByScore returns members whose score lies in the closed interval
// [min, max], ascending.
func (z *ZSet) RangeByScore(min, max float64) []zsetItem {
	var out []zsetItem
	z.tree.AscendRange(zsetItem{min, ""}, zsetItem{max, "\xff\xff\xff\xff"}, func(item zsetItem) bool {
		if item.score > max {
			return false
		}
		if item.score >= min {
			out = append(out, item)
		}
		return true
	})
	return out
}

// CountByScore returns the number of members whose score lies in [min, max].
func (z *ZSet) CountByScore(min, max float64) int {
	return len(z.RangeByScore(min, max))
}

// Clone deep-copies the sorted set (used by Value.Clone).
func (z *ZSet) Clone() *ZSet {
	out := NewZSet()
	for member, score := range z.scores {
		out.Set(member, score)
	}
	return out
}

// ForEach iterates members in ascending score order.
func (z *ZSet) ForEach(fn func(member string, score float64) bool) {
	z.tree.Ascend(func(item zsetItem) bool {
		return fn(item.member, item.score)
	})
}
