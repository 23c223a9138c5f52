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
	"strconv"
	"strings"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

func init() {
	register(Spec{Name: "LPUSH", MinArgs: 2, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdPush(true)})
	register(Spec{Name: "RPUSH", MinArgs: 2, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdPush(false)})
	register(Spec{Name: "LPOP", MinArgs: 1, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdPop(true)})
	register(Spec{Name: "RPOP", MinArgs: 1, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdPop(false)})
	register(Spec{Name: "LLEN", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdLLen})
	register(Spec{Name: "LRANGE", MinArgs: 3, MaxArgs: 3, Keys: firstKey, Handler: cmdLRange})
	register(Spec{Name: "LINDEX", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdLIndex})
	register(Spec{Name: "LSET", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdLSet})
	register(Spec{Name: "LREM", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdLRem})
	register(Spec{Name: "LTRIM", MinArgs: 3, MaxArgs: 3, Write: true, Keys: firstKey, Handler: cmdLTrim})
	register(Spec{Name: "LINSERT", MinArgs: 4, MaxArgs: 4, Write: true, Keys: firstKey, Handler: cmdLInsert})
	register(Spec{Name: "LMOVE", MinArgs: 4, MaxArgs: 4, Write: true, Keys: lmoveKeys, Handler: cmdLMove})
}

func lmoveKeys(args [][]byte) []string { return []string{string(args[0]), string(args[1])} }

func normIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	return i
}

func cmdPush(front bool) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		key := string(args[0])
		elems := args[1:]
		var length int
		_, err := ctx.Store.Update(ctx.State.DB, key, true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
			var d *store.Deque
			if ok {
				var werr *errs.Error
				d, werr = cur.AsList()
				if werr != nil {
					return store.Value{}, werr
				}
			} else {
				d = store.NewDeque()
			}
			for _, e := range elems {
				cp := make([]byte, len(e))
				copy(cp, e)
				if front {
					d.PushFront(cp)
				} else {
					d.PushBack(cp)
				}
			}
			length = d.Len()
			return store.NewListValue(d), nil
		})
		if err != nil {
			return protocol.Frame{}, err
		}
		return protocol.Int(int64(length)), nil
	}
}

func cmdPop(front bool) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		key := string(args[0])
		count := 1
		hasCount := len(args) == 2
		if hasCount {
			n, perr := strconv.Atoi(string(args[1]))
			if perr != nil || n < 0 {
				return protocol.Frame{}, errs.InvalidArgument("value is out of range, must be positive")
			}
			count = n
		}

		var popped [][]byte
		_, err := ctx.Store.Update(ctx.State.DB, key, false, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
			if !ok {
				return store.Value{}, nil
			}
			d, werr := cur.AsList()
			if werr != nil {
				return store.Value{}, werr
			}
			for i := 0; i < count; i++ {
				var v []byte
				var popOK bool
				if front {
					v, popOK = d.PopFront()
				} else {
					v, popOK = d.PopBack()
				}
				if !popOK {
					break
				}
				popped = append(popped, v)
			}
			return store.NewListValue(d), nil
		})
		if err != nil {
			return protocol.Frame{}, err
		}
		if len(popped) == 0 {
			if hasCount {
				return protocol.NullArray(), nil
			}
			return protocol.NullBulk(), nil
		}
		if !hasCount {
			return protocol.Bulk(popped[0]), nil
		}
		items := make([]protocol.Frame, len(popped))
		for i, v := range popped {
			items[i] = protocol.Bulk(v)
		}
		return protocol.Array(items), nil
	}
}

func cmdLLen(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.Int(0), nil
	}
	d, err := v.AsList()
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(int64(d.Len())), nil
}

func cmdLRange(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	start, serr := strconv.Atoi(string(args[1]))
	stop, eerr := strconv.Atoi(string(args[2]))
	if serr != nil || eerr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.Array(nil), nil
	}
	d, err := v.AsList()
	if err != nil {
		return protocol.Frame{}, err
	}
	from := normIndex(start, d.Len())
	to := normIndex(stop, d.Len()) + 1
	slice := d.Slice(from, to)
	items := make([]protocol.Frame, len(slice))
	for i, e := range slice {
		items[i] = protocol.Bulk(e)
	}
	return protocol.Array(items), nil
}

func cmdLIndex(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	idx, perr := strconv.Atoi(string(args[1]))
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	d, err := v.AsList()
	if err != nil {
		return protocol.Frame{}, err
	}
	e := d.At(normIndex(idx, d.Len()))
	if e == nil {
		return protocol.NullBulk(), nil
	}
	return protocol.Bulk(e), nil
}

func cmdLSet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	idx, perr := strconv.Atoi(string(args[1]))
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	value := args[2]
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, errs.KeyNotFound()
		}
		d, werr := cur.AsList()
		if werr != nil {
			return store.Value{}, werr
		}
		cp := make([]byte, len(value))
		copy(cp, value)
		if !d.Set(normIndex(idx, d.Len()), cp) {
			return store.Value{}, errs.InvalidArgument("index out of range")
		}
		return store.NewListValue(d), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return okFrame(), nil
}

func cmdLRem(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	count, perr := strconv.Atoi(string(args[1]))
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	target := args[2]
	var removed int64

	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), false, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		d, werr := cur.AsList()
		if werr != nil {
			return store.Value{}, werr
		}
		if count >= 0 {
			limit := count
			if limit == 0 {
				limit = d.Len()
			}
			for i := 0; i < d.Len() && removed < int64(limit); {
				if bytesEqual(d.At(i), target) {
					d.RemoveAt(i)
					removed++
					continue
				}
				i++
			}
		} else {
			limit := -count
			for i := d.Len() - 1; i >= 0 && removed < int64(limit); i-- {
				if bytesEqual(d.At(i), target) {
					d.RemoveAt(i)
					removed++
				}
			}
		}
		return store.NewListValue(d), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(removed), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cmdLTrim(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	start, serr := strconv.Atoi(string(args[1]))
	stop, eerr := strconv.Atoi(string(args[2]))
	if serr != nil || eerr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		d, werr := cur.AsList()
		if werr != nil {
			return store.Value{}, werr
		}
		from := normIndex(start, d.Len())
		to := normIndex(stop, d.Len()) + 1
		kept := d.Slice(from, to)
		nd := store.NewDeque()
		for _, e := range kept {
			nd.PushBack(e)
		}
		return store.NewListValue(nd), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return okFrame(), nil
}

func cmdLInsert(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	where := strings.ToUpper(string(args[1]))
	if where != "BEFORE" && where != "AFTER" {
		return protocol.Frame{}, errs.InvalidArgument("syntax error")
	}
	pivot := args[2]
	value := args[3]
	var length int64 = -1

	_, err := ctx.Store.Update(ctx.State.DB, string(args[0]), true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			return store.Value{}, nil
		}
		d, werr := cur.AsList()
		if werr != nil {
			return store.Value{}, werr
		}
		for i := 0; i < d.Len(); i++ {
			if bytesEqual(d.At(i), pivot) {
				cp := make([]byte, len(value))
				copy(cp, value)
				if where == "BEFORE" {
					d.InsertAt(i, cp)
				} else {
					d.InsertAt(i+1, cp)
				}
				length = int64(d.Len())
				return store.NewListValue(d), nil
			}
		}
		return store.NewListValue(d), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(length), nil
}

// cmdLMove moves one element between the two ends of the source and
// destination lists within a single UpdatePair call: both lists are
// type-checked and the element is popped from one and pushed into the other
// under one exclusive lock, so a WRONGTYPE destination never pops the
// element without anywhere to put it, and there is no window where the
// element belongs to neither list.
func cmdLMove(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	srcKey := string(args[0])
	dstKey := string(args[1])
	fromFront := strings.EqualFold(string(args[2]), "LEFT")
	toFront := strings.EqualFold(string(args[3]), "LEFT")

	var moved []byte
	var found bool
	_, _, err := ctx.Store.UpdatePair(ctx.State.DB, srcKey, false, dstKey, true,
		func(a store.Value, aOk bool, b store.Value, bOk bool) (store.Value, store.Value, *errs.Error) {
			var src *store.Deque
			if aOk {
				var werr *errs.Error
				src, werr = a.AsList()
				if werr != nil {
					return store.Value{}, store.Value{}, werr
				}
			} else {
				src = store.NewDeque()
			}

			var dst *store.Deque
			switch {
			case srcKey == dstKey:
				dst = src
			case bOk:
				var werr *errs.Error
				dst, werr = b.AsList()
				if werr != nil {
					return store.Value{}, store.Value{}, werr
				}
			default:
				dst = store.NewDeque()
			}

			if fromFront {
				moved, found = src.PopFront()
			} else {
				moved, found = src.PopBack()
			}
			if found {
				if toFront {
					dst.PushFront(moved)
				} else {
					dst.PushBack(moved)
				}
			}
			return store.NewListValue(src), store.NewListValue(dst), nil
		})
	if err != nil {
		return protocol.Frame{}, err
	}
	if !found {
		return protocol.NullBulk(), nil
	}
	return protocol.Bulk(moved), nil
}
