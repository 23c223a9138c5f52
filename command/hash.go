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
	"sort"
	"strconv"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

func init() {
	register(Spec{Name: "HSET", MinArgs: 3, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdHSet})
	register(Spec{Name: "HSETNX", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdHSetNX})
	register(Spec{Name: "HGET", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdHGet})
	register(Spec{Name: "HMGET", MinArgs: 2, MaxArgs: -1, Keys: firstKey, Handler: cmdHMGet})
	register(Spec{Name: "HDEL", MinArgs: 2, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdHDel})
	register(Spec{Name: "HEXISTS", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdHExists})
	register(Spec{Name: "HLEN", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdHLen})
	register(Spec{Name: "HKEYS", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdHKeys})
	register(Spec{Name: "HVALS", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdHVals})
	register(Spec{Name: "HGETALL", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdHGetAll})
	register(Spec{Name: "HSCAN", MinArgs: 2, MaxArgs: -1, Keys: firstKey, Handler: cmdHScan})
	register(Spec{Name: "HINCRBY", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdHIncrBy})
	register(Spec{Name: "HINCRBYFLOAT", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdHIncrByFloat})
}

func cmdHSet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	if (len(args)-1)%2 != 0 {
		return protocol.Frame{}, errs.WrongArgCount("hset")
	}
	var added int64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var h map[string][]byte
		if ok {
			var werr *errs.Error
			h, werr = cur.AsHash()
			if werr != nil {
				return store.Value{}, werr
			}
		} else {
			h = make(map[string][]byte)
		}
		for i := 1; i+1 < len(args); i += 2 {
			field := string(args[i])
			if _, exists := h[field]; !exists {
				added++
			}
			v := make([]byte, len(args[i+1]))
			copy(v, args[i+1])
			h[field] = v
		}
		return store.NewHashValue(h), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(added), nil
}

func cmdHSetNX(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	field := string(args[1])
	var set bool
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var h map[string][]byte
		if ok {
			var werr *errs.Error
			h, werr = cur.AsHash()
			if werr != nil {
				return store.Value{}, werr
			}
		} else {
			h = make(map[string][]byte)
		}
		if _, exists := h[field]; exists {
			return store.NewHashValue(h), nil
		}
		v := make([]byte, len(args[2]))
		copy(v, args[2])
		h[field] = v
		set = true
		return store.NewHashValue(h), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	if set {
		return protocol.Int(1), nil
	}
	return protocol.Int(0), nil
}

func getHash(ctx *Context, key string) (map[string][]byte, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, key)
	if !ok {
		return nil, nil
	}
	return v.AsHash()
}

func cmdHGet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	val, ok := h[string(args[1])]
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.Bulk(val), nil
}

func cmdHMGet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	items := make([]protocol.Frame, len(args)-1)
	for i, f := range args[1:] {
		if v, ok := h[string(f)]; ok {
			items[i] = protocol.Bulk(v)
		} else {
			items[i] = protocol.NullBulk()
		}
	}
	return protocol.Array(items), nil
}

func cmdHDel(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	var removed int64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), false, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		h, werr := cur.AsHash()
		if werr != nil {
			return store.Value{}, werr
		}
		for _, f := range args[1:] {
			if _, exists := h[string(f)]; exists {
				delete(h, string(f))
				removed++
			}
		}
		return store.NewHashValue(h), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(removed), nil
}

func cmdHExists(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	if _, ok := h[string(args[1])]; ok {
		return protocol.Int(1), nil
	}
	return protocol.Int(0), nil
}

func cmdHLen(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(int64(len(h))), nil
}

func cmdHKeys(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	items := make([]protocol.Frame, 0, len(h))
	for f := range h {
		items = append(items, protocol.BulkString(f))
	}
	return protocol.Array(items), nil
}

func cmdHVals(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	items := make([]protocol.Frame, 0, len(h))
	for _, v := range h {
		items = append(items, protocol.Bulk(v))
	}
	return protocol.Array(items), nil
}

func cmdHGetAll(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	items := make([]protocol.Frame, 0, len(h)*2)
	for f, v := range h {
		items = append(items, protocol.BulkString(f), protocol.Bulk(v))
	}
	return protocol.Array(items), nil
}

// cmdHScan implements the cursor-iteration contract (§4.3): the cursor is the
// ordinal index into the hash's field names, sorted on every call before
// indexing. The map itself is re-collected fresh each call (map range order
// is randomized per call, not just across structural changes), so without
// the sort the same numeric cursor would land on a different field each
// time; sorting gives it a stable ordering to count through, so a client
// that keeps calling with the returned cursor observes every field present
// across the full iteration at least once, as long as no field is added or
// removed between calls.
func cmdHScan(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
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

	h, err := getHash(ctx, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	fields := make([]string, 0, len(h))
	for f := range h {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	start := int(cursor)
	if start >= len(fields) {
		return protocol.Array([]protocol.Frame{protocol.BulkString("0"), protocol.Array(nil)}), nil
	}
	end := start + count
	if end > len(fields) {
		end = len(fields)
	}
	batch := fields[start:end]
	nextCursor := int64(end)
	if end >= len(fields) {
		nextCursor = 0
	}

	items := make([]protocol.Frame, 0, len(batch)*2)
	for _, f := range batch {
		if hasMatch && !globMatch(match, f) {
			continue
		}
		items = append(items, protocol.BulkString(f), protocol.Bulk(h[f]))
	}
	return protocol.Array([]protocol.Frame{
		protocol.BulkString(strconv.FormatInt(nextCursor, 10)),
		protocol.Array(items),
	}), nil
}

func cmdHIncrBy(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	delta, perr := strconv.ParseInt(string(args[2]), 10, 64)
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	field := string(args[1])
	var result int64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var h map[string][]byte
		if ok {
			var werr *errs.Error
			h, werr = cur.AsHash()
			if werr != nil {
				return store.Value{}, werr
			}
		} else {
			h = make(map[string][]byte)
		}
		var base int64
		if raw, exists := h[field]; exists {
			n, perr2 := strconv.ParseInt(string(raw), 10, 64)
			if perr2 != nil {
				return store.Value{}, errs.InvalidArgument("hash value is not an integer")
			}
			base = n
		}
		result = base + delta
		h[field] = []byte(strconv.FormatInt(result, 10))
		return store.NewHashValue(h), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(result), nil
}

func cmdHIncrByFloat(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	delta, perr := strconv.ParseFloat(string(args[2]), 64)
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not a valid float")
	}
	field := string(args[1])
	var result float64
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		var h map[string][]byte
		if ok {
			var werr *errs.Error
			h, werr = cur.AsHash()
			if werr != nil {
				return store.Value{}, werr
			}
		} else {
			h = make(map[string][]byte)
		}
		var base float64
		if raw, exists := h[field]; exists {
			f, perr2 := strconv.ParseFloat(string(raw), 64)
			if perr2 != nil {
				return store.Value{}, errs.InvalidArgument("hash value is not a float")
			}
			base = f
		}
		result = base + delta
		h[field] = []byte(strconv.FormatFloat(result, 'f', -1, 64))
		return store.NewHashValue(h), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.BulkString(strconv.FormatFloat(result, 'f', -1, 64)), nil
}
