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
	"encoding/binary"
	"sort"
	"strconv"
	"strings"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

func init() {
	register(Spec{Name: "KEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdKeys})
	register(Spec{Name: "SCAN", MinArgs: 1, MaxArgs: -1, Handler: cmdScan})
	register(Spec{Name: "RANDOMKEY", MinArgs: 0, MaxArgs: 0, Handler: cmdRandomKey})
	register(Spec{Name: "RENAME", MinArgs: 2, MaxArgs: 2, Write: true, Keys: allArgsAsKeys, Handler: cmdRename(true)})
	register(Spec{Name: "RENAMENX", MinArgs: 2, MaxArgs: 2, Write: true, Keys: allArgsAsKeys, Handler: cmdRename(false)})
	register(Spec{Name: "TYPE", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdType})
	register(Spec{Name: "COPY", MinArgs: 2, MaxArgs: -1, Write: true, Keys: allArgsAsKeys, Handler: cmdCopy})
	register(Spec{Name: "DUMP", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdDump})
	register(Spec{Name: "RESTORE", MinArgs: 3, MaxArgs: -1, Write: true, Keys: firstKey, Handler: cmdRestore})
	register(Spec{Name: "MIGRATE", MinArgs: 5, MaxArgs: -1, Write: true, Handler: cmdMigrate})
	register(Spec{Name: "EXPIRE", MinArgs: 2, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdExpireRel(1000)})
	register(Spec{Name: "PEXPIRE", MinArgs: 2, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdExpireRel(1)})
	register(Spec{Name: "EXPIREAT", MinArgs: 2, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdExpireAbs(1000)})
	register(Spec{Name: "PEXPIREAT", MinArgs: 2, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdExpireAbs(1)})
	register(Spec{Name: "PERSIST", MinArgs: 1, MaxArgs: 1, Write: true, Keys: firstKey, Handler: cmdPersist})
	register(Spec{Name: "TTL", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdTTL(1000)})
	register(Spec{Name: "PTTL", MinArgs: 1, MaxArgs: 1, Keys: firstKey, Handler: cmdTTL(1)})
}

func cmdKeys(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	pattern := string(args[0])
	all := ctx.Store.Keys(ctx.State.DB)
	items := make([]protocol.Frame, 0, len(all))
	for _, k := range all {
		if globMatch(pattern, k) {
			items = append(items, protocol.BulkString(k))
		}
	}
	return protocol.Array(items), nil
}

func cmdRandomKey(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	k, ok := ctx.Store.Random(ctx.State.DB)
	if !ok {
		return protocol.NullBulk(), nil
	}
	return protocol.BulkString(k), nil
}

func cmdScan(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	cursor, perr := strconv.ParseInt(string(args[0]), 10, 64)
	if perr != nil || cursor < 0 {
		return protocol.Frame{}, errs.InvalidArgument("invalid cursor")
	}
	count := 10
	var match string
	hasMatch := false
	for i := 1; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "COUNT":
			i++
			if i >= len(args) {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			n, e := strconv.Atoi(string(args[i]))
			if e != nil || n <= 0 {
				return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
			}
			count = n
		case "MATCH":
			i++
			if i >= len(args) {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			match = string(args[i])
			hasMatch = true
		}
	}

	// Keys() ranges a live map, so its order is randomized on every call even
	// without a structural change in between; sorting gives the numeric
	// cursor a stable index to count through, so a full iteration with no
	// intervening insert/delete observes every key exactly once.
	keys := ctx.Store.Keys(ctx.State.DB)
	sort.Strings(keys)
	start := int(cursor)
	if start >= len(keys) {
		return protocol.Array([]protocol.Frame{protocol.BulkString("0"), protocol.Array(nil)}), nil
	}
	end := start + count
	if end > len(keys) {
		end = len(keys)
	}
	batch := keys[start:end]
	nextCursor := int64(end)
	if end >= len(keys) {
		nextCursor = 0
	}
	items := make([]protocol.Frame, 0, len(batch))
	for _, k := range batch {
		if hasMatch && !globMatch(match, k) {
			continue
		}
		items = append(items, protocol.BulkString(k))
	}
	return protocol.Array([]protocol.Frame{
		protocol.BulkString(strconv.FormatInt(nextCursor, 10)),
		protocol.Array(items),
	}), nil
}

// cmdRename: overwrite==true implements plain RENAME (always succeeds if the
// source exists); overwrite==false implements RENAMENX (fails if the
// destination already exists).
func cmdRename(overwrite bool) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		src, dst := string(args[0]), string(args[1])
		v, ok := ctx.Store.Get(ctx.State.DB, src)
		if !ok {
			return protocol.Frame{}, errs.KeyNotFound()
		}
		if !overwrite {
			if _, exists := ctx.Store.Get(ctx.State.DB, dst); exists {
				return protocol.Int(0), nil
			}
		}
		ttl := ctx.Store.TTLMillis(ctx.State.DB, src)
		var expireAt int64
		if ttl > 0 {
			expireAt = ctx.now().UnixMilli() + ttl
		}
		ctx.Store.DeleteAndGet(ctx.State.DB, src)
		ctx.Store.Set(ctx.State.DB, dst, v, expireAt)
		if overwrite {
			return okFrame(), nil
		}
		return protocol.Int(1), nil
	}
}

func cmdType(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.Simple("none"), nil
	}
	return protocol.Simple(v.Type.String()), nil
}

func cmdCopy(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	src, dst := string(args[0]), string(args[1])
	destDB := ctx.State.DB
	var replace bool
	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "DB":
			i++
			if i >= len(args) {
				return protocol.Frame{}, errs.InvalidArgument("syntax error")
			}
			n, e := strconv.Atoi(string(args[i]))
			if e != nil {
				return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
			}
			destDB = n
		case "REPLACE":
			replace = true
		default:
			return protocol.Frame{}, errs.InvalidArgument("syntax error")
		}
	}
	v, ok := ctx.Store.Get(ctx.State.DB, src)
	if !ok {
		return protocol.Int(0), nil
	}
	if !replace {
		if _, exists := ctx.Store.Get(destDB, dst); exists {
			return protocol.Int(0), nil
		}
	}
	ttl := ctx.Store.TTLMillis(ctx.State.DB, src)
	var expireAt int64
	if ttl > 0 {
		expireAt = ctx.now().UnixMilli() + ttl
	}
	ctx.Store.Set(destDB, dst, v.Clone(), expireAt)
	return protocol.Int(1), nil
}

// dumpFooterVersion is the two-byte format marker appended before the
// checksum in every DUMP payload, per the position-weighted checksum
// format.
const dumpFooterVersion = uint16(9)

// dumpChecksum is the position-weighted 64-bit sum: byte[i] * (i+1), summed
// modulo 2^64 (uint64 overflow wraps naturally).
func dumpChecksum(data []byte) uint64 {
	var sum uint64
	for i, b := range data {
		sum += uint64(b) * uint64(i+1)
	}
	return sum
}

func cmdDump(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	v, ok := ctx.Store.Get(ctx.State.DB, string(args[0]))
	if !ok {
		return protocol.NullBulk(), nil
	}
	ser, merr := store.MarshalValue(v)
	if merr != nil {
		return protocol.Frame{}, errs.New(errs.KindIO, "%v", merr)
	}
	body := make([]byte, 0, 1+len(ser)+2)
	body = append(body, byte(v.Type))
	body = append(body, ser...)
	footer := make([]byte, 2)
	binary.LittleEndian.PutUint16(footer, dumpFooterVersion)
	body = append(body, footer...)

	sum := dumpChecksum(body)
	out := make([]byte, len(body)+8)
	copy(out, body)
	binary.LittleEndian.PutUint64(out[len(body):], sum)
	return protocol.Bulk(out), nil
}

func cmdRestore(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	key := string(args[0])
	ttlArg, perr := strconv.ParseInt(string(args[1]), 10, 64)
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	if ttlArg < 0 {
		return protocol.Frame{}, errs.InvalidArgument("invalid expire time")
	}
	blob := args[2]

	var replace, absttl bool
	for i := 3; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "REPLACE":
			replace = true
		case "ABSTTL":
			absttl = true
		}
	}

	if !replace {
		if _, exists := ctx.Store.Get(ctx.State.DB, key); exists {
			return protocol.Frame{}, errs.BusyKey()
		}
	}

	if len(blob) < 1+2+8 {
		return protocol.Frame{}, errs.InvalidArgument("DUMP payload version or checksum are wrong")
	}
	body := blob[:len(blob)-8]
	wantSum := binary.LittleEndian.Uint64(blob[len(blob)-8:])
	if dumpChecksum(body) != wantSum {
		return protocol.Frame{}, errs.InvalidArgument("DUMP payload version or checksum are wrong")
	}
	ser := body[1 : len(body)-2]

	v, uerr := store.UnmarshalValue(ser)
	if uerr != nil {
		return protocol.Frame{}, errs.InvalidArgument("Bad data format")
	}

	var expireAt int64
	if ttlArg > 0 {
		if absttl {
			expireAt = ttlArg
		} else {
			expireAt = ctx.now().UnixMilli() + ttlArg
		}
	}
	ctx.Store.Set(ctx.State.DB, key, v, expireAt)
	return okFrame(), nil
}

// cmdMigrate implements the local (single-process, multi-database) subset
// of MIGRATE: the host/port arguments are not used and every key stays on
// this server, so the batched move is the same atomic cross-database Move
// the facade already exposes for each named key. No key is transferred to
// another node.
func cmdMigrate(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	destDB, derr := strconv.Atoi(string(args[3]))
	if derr != nil {
		return protocol.Frame{}, errs.InvalidArgument("invalid destination-db")
	}
	keys := [][]byte{}
	if len(args[2]) > 0 {
		keys = append(keys, args[2])
	}
	var copyMode bool
	for i := 5; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "COPY":
			copyMode = true
		case "REPLACE":
			// accepted and ignored: COPY overwrites through Set below, while
			// a plain move skips keys the destination already holds
		case "KEYS":
			keys = keys[:0]
			for j := i + 1; j < len(args); j++ {
				keys = append(keys, args[j])
			}
			i = len(args)
		}
	}
	if len(keys) == 0 {
		return protocol.Frame{}, errs.InvalidArgument("no keys to migrate")
	}
	moved := 0
	for _, k := range keys {
		key := string(k)
		if copyMode {
			v, ok := ctx.Store.Get(ctx.State.DB, key)
			if !ok {
				continue
			}
			ttl := ctx.Store.TTLMillis(ctx.State.DB, key)
			var expireAt int64
			if ttl > 0 {
				expireAt = ctx.now().UnixMilli() + ttl
			}
			ctx.Store.Set(destDB, key, v.Clone(), expireAt)
			moved++
			continue
		}
		ok, merr := ctx.Store.Move(ctx.State.DB, destDB, key)
		if merr != nil {
			return protocol.Frame{}, merr
		}
		if ok {
			moved++
		}
	}
	if moved == 0 {
		return protocol.Simple("NOKEY"), nil
	}
	return okFrame(), nil
}

func cmdExpireRel(unitMs int64) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		n, perr := strconv.ParseInt(string(args[1]), 10, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
		}
		return applyExpire(ctx, string(args[0]), ctx.now().UnixMilli()+n*unitMs, n <= 0)
	}
}

func cmdExpireAbs(unitMs int64) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		n, perr := strconv.ParseInt(string(args[1]), 10, 64)
		if perr != nil {
			return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
		}
		at := n * unitMs
		return applyExpire(ctx, string(args[0]), at, at <= ctx.now().UnixMilli())
	}
}

func applyExpire(ctx *Context, key string, at int64, deleteNow bool) (protocol.Frame, *errs.Error) {
	if deleteNow {
		_, existed := ctx.Store.DeleteAndGet(ctx.State.DB, key)
		if existed {
			return protocol.Int(1), nil
		}
		return protocol.Int(0), nil
	}
	if ctx.Store.SetExpireAt(ctx.State.DB, key, at) {
		return protocol.Int(1), nil
	}
	return protocol.Int(0), nil
}

func cmdPersist(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	if ctx.Store.Persist(ctx.State.DB, string(args[0])) {
		return protocol.Int(1), nil
	}
	return protocol.Int(0), nil
}

// cmdTTL: divisor 1000 implements TTL (seconds), divisor 1 implements PTTL
// (milliseconds). -2 means missing, -1 means no expiry, matching the
// facade's TTLMillis contract.
func cmdTTL(divisor int64) HandlerFunc {
	return func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
		ms := ctx.Store.TTLMillis(ctx.State.DB, string(args[0]))
		if ms < 0 {
			return protocol.Int(ms), nil
		}
		if divisor == 1 {
			return protocol.Int(ms), nil
		}
		secs := ms / 1000
		if ms%1000 != 0 {
			secs++
		}
		return protocol.Int(secs), nil
	}
}
