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

package command

import (
	"math/rand"
	"sort"
	"strconv"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

func init() {
	register(Spec{Name: "SADD", MinArgs: 2, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdSAdd})
	register(Spec{Name: "SREM", MinArgs: 2, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdSRem})
	register(Spec{Name: "SISMEMBER", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdSIsMember})
	register(Spec{Name: "SMEMBERS", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdSMembers})
	register(Spec{Name: "SCARD", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdSCard})
	register(Spec{Name: "SPOP", MinArgs: 1, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdSPop})
	register(Spec{Name: "SRANDMEMBER", MinArgs: 1, MaxArgs: 2, Keys: firstKey, Handler: cmdSRandMember})
	register(Spec{Name: "SUNION", MinArgs: 1, MaxArgs: -1, Keys: allArgsAsKeys, Handler: cmdSUnion})
	register(Spec{Name: "SINTER", MinArgs: 1, MaxArgs: -1, Keys: allArgsAsKeys, Handler: cmdSInter})
	register(Spec{Name: "SDIFF", MinArgs: 1, MaxArgs: -1, Keys: allArgsAsKeys, Handler: cmdSDiff})
	register(Spec{Name: "SUNIONSTORE", MinArgs: 2, MaxArgs: -1, Write: true, Keys: allArgsAsKeys, Handler: cmdSStoreOp(setUnion)})
	register(Spec{Name: "SINTERSTORE", MinArgs: 2, MaxArgs: -1, Write: true, Keys: allArgsAsKeys, Handler: cmdSStoreOp(setInter)})
	register(Spec{Name: "SDIFFSTORE", MinArgs: 2, MaxArgs: -1, Write: true, Keys: allArgsAsKeys, Handler: cmdSStoreOp(setDiff)})
	register(Spec{Name: "SMOVE", MinArgs: 3, MaxArgs: 3, Write: true, Keys: lmoveKeys, Handler: cmdSMove})
	register(Spec{Name: "SSCAN", MinArgs: 2, MaxArgs: -1, Keys: firstKey, Handler: cmdSScan})
}

func getSet(ctx *Context, key string) (map[string]struct{}, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, key)
	if !ok {
		return nil, nil
	}
	return v.AsSet()
}

func cmdSAdd(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	var added int64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var s map[string]struct{}
		if ok {
			var werr *errs.Error
			s, werr = cur.AsSet()
			if werr != nil {
				return store.Value{}, werr
			}
		} else {
			s = make(map[string]struct{})
		}
		for _, m := range args[1:] {
			if _, exists := s[string(m)]; !exists {
				s[string(m)] = struct{}{}
				added++
			}
		}
		return store.NewSetValue(s), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(added), nil
}

func cmdSRem(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	var removed int64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), false, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		s, werr := cur.AsSet()
		if werr != nil {
			return store.Value{}, werr
		}
		for _, m := range args[1:] {
			if _, exists := s[string(m)]; exists {
				delete(s, string(m))
				removed++
			}
		}
		return store.NewSetValue(s), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(removed), nil
}

func cmdSIsMember(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	s, err := getSet(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	if _, ok := s[string(args[1])]; ok {
		return protocol.Int(1), nil
	}
	return protocol.Int(0), nil
}

func cmdSMembers(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	s, err := getSet(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	items := make([]protocol.Frame, 0, len(s))
	for m := range s {
		items = append(items, protocol.BulkString(m))
	}
	return protocol.Array(items), nil
}

func cmdSCard(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	s, err := getSet(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(int64(len(s))), nil
}

func cmdSPop(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	count := 1
	hasCount := len(args) == 2
	if hasCount {
		n, perr := strconv.Atoi(string(args[1]))
		if perr != nil || n < 0 {
			return protocol.Frame{}, errs.InvalidArgument("value is out of range, must be positive")
		}
		count = n
	}
	var popped []string
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), false, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		s, werr := cur.AsSet()
		if werr != nil {
			return store.Value{}, werr
		}
		for m := range s {
			if len(popped) >= count {
				break
			}
			popped = append(popped, m)
			delete(s, m)
		}
		return store.NewSetValue(s), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	if !hasCount {
		if len(popped) == 0 {
			return protocol.NullBulk(), nil
		}
		return protocol.BulkString(popped[0]), nil
	}
	items := make([]protocol.Frame, len(popped))
	for i, m := range popped {
		items[i] = protocol.BulkString(m)
	}
	return protocol.Array(items), nil
}

// cmdSRandMember: positive count returns up to count distinct members;
// negative count returns exactly -count members, possibly repeated.
func cmdSRandMember(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	hasCount := len(args) == 2
	count := 1
	if hasCount {
		n, perr := strconv.Atoi(string(args[1]))
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
		}
		count = n
	}
	s, err := getSet(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	members := make([]string, 0, len(s))
	for m := range s {
		members = append(members, m)
	}
	if len(members) == 0 {
		if hasCount {
			return protocol.Array(nil), nil
		}
		return protocol.NullBulk(), nil
	}

	if !hasCount {
		return protocol.BulkString(members[rand.Intn(len(members))]), nil
	}
	if count >= 0 {
		rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		if count > len(members) {
			count = len(members)
		}
		items := make([]protocol.Frame, count)
		for i := 0; i < count; i++ {
			items[i] = protocol.BulkString(members[i])
		}
		return protocol.Array(items), nil
	}
	n := -count
	items := make([]protocol.Frame, n)
	for i := 0; i < n; i++ {
		items[i] = protocol.BulkString(members[rand.Intn(len(members))])
	}
	return protocol.Array(items), nil
}

func setUnion(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		for m := range s {
			out[m] = struct{}{}
		}
	}
	return out
}

func setInter(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	if len(sets) == 0 {
		return out
	}
	for m := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if _, ok := s[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out[m] = struct{}{}
		}
	}
	return out
}

func setDiff(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	if len(sets) == 0 {
		return out
	}
	for m := range sets[0] {
		out[m] = struct{}{}
	}
	for _, s := range sets[1:] {
		for m := range s {
			delete(out, m)
		}
	}
	return out
}

func loadSets(ctx *Context, keys [][]byte) ([]map[string]struct{}, *errs.Error) {
	out := make([]map[string]struct{}, len(keys))
	for i, k := range keys {
		s, err := getSet(ctx, string(k))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func cmdSUnion(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	return setReadResult(ctx, args, setUnion)
}
func cmdSInter(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	return setReadResult(ctx, args, setInter)
}
func cmdSDiff(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	return setReadResult(ctx, args, setDiff)
}

func setReadResult(ctx *Context, args [][]byte, op func([]map[string]struct{}) map[string]struct{}) (protocol.Frame, *errs.Error) {
	sets, err := loadSets(ctx, args)
	if err != nil {
		return protocol.Frame{}, err
	}
	result := op(sets)
	items := make([]protocol.Frame, 0, len(result))
	for m := range result {
		items = append(items, protocol.BulkString(m))
	}
	return protocol.Array(items), nil
}

func cmdSStoreOp(op func([]map[string]struct{}) map[string]struct{}) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		dest := string(args[0])
		sets, err := loadSets(ctx, args[1:])
		if err != nil {
			return protocol.Frame{}, err
		}
		result := op(sets)
		if len(result) == 0 {
			ctx.Store.DeleteAndGet(ctx.State.DB, dest)
			return protocol.Int(0), nil
		}
		ctx.Store.Set(ctx.State.DB, dest, store.NewSetValue(result), 0)
		return protocol.Int(int64(len(result))), nil
	}
}

// cmdSMove moves member from the source set to the destination set within a
// single UpdatePair call: both sets are type-checked and the member is
// popped from one and pushed into the other under one exclusive lock, so a
// WRONGTYPE destination never pops the member without anywhere to put it,
// and there is no window where the member belongs to neither set.
func cmdSMove(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	srcKey := string(args[0])
	dstKey := string(args[1])
	member := string(args[2])

	var moved bool
	_, _, err := ctx.Store.UpdatePair(ctx.State.DB, srcKey, false, dstKey, true,
		func(a store.Value, aOk bool, b store.Value, bOk bool) (store.Value, store.Value, *errs.Error) {
			var src map[string]struct{}
			if aOk {
				var werr *errs.Error
				src, werr = a.AsSet()
				if werr != nil {
					return store.Value{}, store.Value{}, werr
				}
			} else {
				src = make(map[string]struct{})
			}

			var dst map[string]struct{}
			switch {
			case srcKey == dstKey:
				dst = src
			case bOk:
				var werr *errs.Error
				dst, werr = b.AsSet()
				if werr != nil {
					return store.Value{}, store.Value{}, werr
				}
			default:
				dst = make(map[string]struct{})
			}

			if _, exists := src[member]; exists {
				delete(src, member)
				dst[member] = struct{}{}
				moved = true
			}
			return store.NewSetValue(src), store.NewSetValue(dst), nil
		})
	if err != nil {
		return protocol.Frame{}, err
	}
	if !moved {
		return protocol.Int(0), nil
	}
	return protocol.Int(1), nil
}

func cmdSScan(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	cursor, perr := strconv.ParseInt(string(args[1]), 10, 64)
	if perr != nil || cursor < 0 {
		return protocol.Frame{}, errs.InvalidArgument("invalid cursor")
	}
	count := 10
	var match string
	hasMatch := false
	for i := 2; i < len(args); i++ {
		switch string(args[i]) {
		case "COUNT", "count":
			i++
			if i >= len(args) {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			n, e := strconv.Atoi(string(args[i]))
			if e != nil || n <= 0 {
				return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
			}
			count = n
		case "MATCH", "match":
			i++
			if i >= len(args) {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			match = string(args[i])
			hasMatch = true
		}
	}

	s, err := getSet(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	members := make([]string, 0, len(s))
	for m := range s {
		members = append(members, m)
	}
	// stable order so the numeric cursor counts through the same members on
	// every call, regardless of the set map's randomized range order
	sort.Strings(members)

	start := int(cursor)
	if start >= len(members) {
		return protocol.Array([]protocol.Frame{protocol.BulkString("0"), protocol.Array(nil)}), nil
	}
	end := start + count
	if end > len(members) {
		end = len(members)
	}
	batch := members[start:end]
	nextCursor := int64(end)
	if end >= len(members) {
		nextCursor = 0
	}
	items := make([]protocol.Frame, 0, len(batch))
	for _, m := range batch {
		if hasMatch && !globMatch(match, m) {
			continue
		}
		items = append(items, protocol.BulkString(m))
	}
	return protocol.Array([]protocol.Frame{
		protocol.BulkString(strconv.FormatInt(nextCursor, 10)),
		protocol.Array(items),
	}), nil
}
