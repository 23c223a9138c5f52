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
	register(Spec{Name: "GET", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdGet})
	register(Spec{Name: "SET", MinArgs: 2, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdSet})
	register(Spec{Name: "DEL", MinArgs: 1, MaxArgs: -1, Write: true, Keys: allArgsAsKeys, Handler: cmdDel})
	register(Spec{Name: "EXISTS", MinArgs: 1, MaxArgs: -1, Keys: allArgsAsKeys, Handler: cmdExists})
	register(Spec{Name: "MGET", MinArgs: 1, MaxArgs: -1, Keys: allArgsAsKeys, Handler: cmdMGet})
	register(Spec{Name: "MSET", MinArgs: 2, MaxArgs: -1, Write: true, Keys: evenArgsAsKeys, Handler: cmdMSet})
	register(Spec{Name: "STRLEN", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdStrlen})
	register(Spec{Name: "APPEND", MinArgs: 2, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdAppend})
}

func evenArgsAsKeys(args [][]byte) []string {
	out := make([]string, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		out = append(out, string(args[i]))
	}
	return out
}

func cmdGet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	b, err := v.AsString()
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Bulk(b), nil
}

func cmdSet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	key := string(args[0])
	value := args[1]

	var expireAt int64
	var nx, xx, keepExpiry bool
	now := ctx.now().UnixMilli()

	for i := 2; i < len(args); i++ {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "KEEPTTL":
			keepExpiry = true
		case "EX", "PX":
			i++
			if i >= len(args) {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			n, perr := strconv.ParseInt(string(args[i]), 10, 64)
			if perr != nil {
				return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
			}
			if opt == "EX" {
				expireAt = now + n*1000
			} else {
				expireAt = now + n
			}
		default:
			return protocol.Frame{}, errs.InvalidArgument("syntax error")
		}
	}

	_, existed := ctx.Store.Get(ctx.State.DB, key)
	if nx && existed {
		return protocol.NullBulk(), nil
	}
	if xx && !existed {
		return protocol.NullBulk(), nil
	}

	cp := make([]byte, len(value))
	copy(cp, value)

	if keepExpiry {
		_, err := ctx.Store.Update(ctx.State.DB, key, true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
			return store.NewStringValue(cp), nil
		})
		if err != nil {
			return protocol.Frame{}, err
		}
	} else {
		ctx.Store.Set(ctx.State.DB, key, store.NewStringValue(cp), expireAt)
	}
	return okFrame(), nil
}

func cmdDel(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	var n int64
	for _, a := range args {
		if _, ok := ctx.Store.DeleteAndGet(ctx.State.DB, string(a)); ok {
			n++
		}
	}
	return protocol.Int(n), nil
}

func cmdExists(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	var n int64
	for _, a := range args {
		if _, ok := ctx.Store.Get(ctx.State.DB, string(a)); ok {
			n++
		}
	}
	return protocol.Int(n), nil
}

func cmdMGet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	items := make([]protocol.Frame, len(args))
	for i, a := range args {
		v, ok := ctx.Store.Get(ctx.State.DB, string(a))
		if !ok || v.Type != store.TypeString {
			items[i] = protocol.NullBulk()
			continue
		}
		items[i] = protocol.Bulk(v.Str)
	}
	return protocol.Array(items), nil
}

func cmdMSet(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args)%2 != 0 {
		return protocol.Frame{}, errs.WrongArgCount("mset")
	}
	ops := make([]store.WriteOp, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		v := make([]byte, len(args[i+1]))
		copy(v, args[i+1])
		ops = append(ops, store.SetOp(string(args[i]), store.NewStringValue(v)))
	}
	if err := ctx.Store.WriteBatch(ctx.State.DB, ops); err != nil {
		return protocol.Frame{}, errs.New(errs.KindIO, "%v", err)
	}
	return okFrame(), nil
}

func cmdStrlen(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.Int(0), nil
	}
	b, err := v.AsString()
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(int64(len(b))), nil
}

func cmdAppend(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	key := string(args[0])
	suffix := args[1]
	var newLen int
	_, err := ctx.Store.Update(ctx.State.DB, key, true, func(cur store.Value, ok bool) (store.Value, *errs.Error) {
		if !ok {
			out := make([]byte, len(suffix))
			copy(out, suffix)
			newLen = len(out)
			return store.NewStringValue(out), nil
		}
		b, werr := cur.AsString()
		if werr != nil {
			return store.Value{}, werr
		}
		out := make([]byte, len(b)+len(suffix))
		copy(out, b)
		copy(out[len(b):], suffix)
		newLen = len(out)
		return store.NewStringValue(out), nil
	})
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Int(int64(newLen)), nil
}
