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

package script

import (
	"strconv"

	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
)

// whitelist names every command a script is allowed to reach through
// redis.call/redis.pcall. It deliberately excludes administration,
// clustering, MONITOR and the scripting commands themselves - a script
// re-entering EVAL or issuing CLIENT KILL is out of scope for the single
// injected "call a data command" primitive §4.6 describes.
var whitelist = map[string]bool{
	"GET": true, "SET": true, "DEL": true, "EXISTS": true, "MGET": true,
	"MSET": true, "STRLEN": true, "APPEND": true, "INCR": true, "INCRBY": true,
	"DECR": true, "DECRBY": true,
	"LPUSH": true, "RPUSH": true, "LPOP": true, "RPOP": true, "LLEN": true,
	"LRANGE": true, "LINDEX": true, "LSET": true, "LREM": true, "LTRIM": true,
	"LINSERT": true, "LMOVE": true,
	"HSET": true, "HSETNX": true, "HGET": true, "HMGET": true, "HDEL": true,
	"HEXISTS": true, "HLEN": true, "HKEYS": true, "HVALS": true, "HGETALL": true,
	"HINCRBY": true, "HINCRBYFLOAT": true,
	"SADD": true, "SREM": true, "SISMEMBER": true, "SMEMBERS": true, "SCARD": true,
	"SPOP": true, "SRANDMEMBER": true, "SUNION": true, "SINTER": true, "SDIFF": true,
	"SMOVE": true,
	"ZADD": true, "ZREM": true, "ZSCORE": true, "ZRANK": true, "ZREVRANK": true,
	"ZRANGE": true, "ZREVRANGE": true, "ZRANGEBYSCORE": true, "ZCARD": true,
	"ZCOUNT": true, "ZINCRBY": true,
	"EXPIRE": true, "PEXPIRE": true, "EXPIREAT": true, "PEXPIREAT": true,
	"PERSIST": true, "TTL": true, "PTTL": true, "TYPE": true,
}

// state carries one invocation's KEYS/ARGV bindings and target Context
// (already pointed at the overlay facade) through statement execution.
type state struct {
	ctx  *command.Context
	keys [][]byte
	argv [][]byte
}

// run executes every top-level statement in order. The first call/pcall
// failure propagated as a thrown error (i.e. from redis.call or error())
// aborts the whole script; the caller is responsible for discarding the
// overlay in that case. The final statement's result is the script's
// return value.
func run(st *state, stmts []Call) (protocol.Frame, *errs.Error) {
	var last protocol.Frame
	for _, c := range stmts {
		f, err := evalStatement(st, c)
		if err != nil {
			return protocol.Frame{}, err
		}
		last = f
	}
	return last, nil
}

func evalStatement(st *state, c Call) (protocol.Frame, *errs.Error) {
	switch {
	case c.Namespace == "redis" && c.Name == "call":
		return execCall(st, c.Args, true)
	case c.Namespace == "redis" && c.Name == "pcall":
		return execCall(st, c.Args, false)
	case c.Namespace == "" && c.Name == "error":
		msg, err := evalScalar(st, firstArgOr(c.Args, StringLit("script error")))
		if err != nil {
			return protocol.Frame{}, err
		}
		return protocol.Frame{}, errs.ScriptError("%s", string(msg))
	default:
		return protocol.Frame{}, errs.ScriptError("unknown function '%s%s'", dotPrefix(c.Namespace), c.Name)
	}
}

func firstArgOr(args []Expr, fallback Expr) Expr {
	if len(args) == 0 {
		return fallback
	}
	return args[0]
}

func dotPrefix(namespace string) string {
	if namespace == "" {
		return ""
	}
	return namespace + "."
}

// execCall evaluates a redis.call/redis.pcall invocation: the first
// argument names the command, the rest are its arguments. throwsOnError
// distinguishes call (propagates the command's error, aborting the script)
// from pcall (swallows it, returning it as an error reply frame instead).
func execCall(st *state, args []Expr, throwsOnError bool) (protocol.Frame, *errs.Error) {
	f, derr := invokeCall(st, args)
	if derr != nil {
		if throwsOnError {
			return protocol.Frame{}, derr
		}
		return protocol.Err(derr.WireLine()), nil
	}
	return f, nil
}

// invokeCall resolves the command name, checks it against the whitelist,
// evaluates its arguments and dispatches it - every failure along the way
// is an ordinary *errs.Error so execCall can route call/pcall identically.
func invokeCall(st *state, args []Expr) (protocol.Frame, *errs.Error) {
	if len(args) == 0 {
		return protocol.Frame{}, errs.ScriptError("redis.call requires a command name")
	}
	nameBytes, err := evalScalar(st, args[0])
	if err != nil {
		return protocol.Frame{}, err
	}
	name := string(nameBytes)
	if !whitelist[upper(name)] {
		return protocol.Frame{}, errs.ScriptError("command '%s' is not allowed in scripts", name)
	}

	cmdArgs := make([][]byte, 0, len(args)-1)
	for _, a := range args[1:] {
		v, verr := evalScalar(st, a)
		if verr != nil {
			return protocol.Frame{}, verr
		}
		cmdArgs = append(cmdArgs, v)
	}

	items := make([]protocol.Frame, 0, len(cmdArgs)+1)
	items = append(items, protocol.BulkString(name))
	for _, a := range cmdArgs {
		items = append(items, protocol.Bulk(a))
	}

	return command.Dispatch(st.ctx, protocol.Array(items))
}

// evalScalar evaluates an argument expression to the []byte a command
// handler expects. KEYS(i)/ARGV(i) (1-indexed, matching the EVAL numkeys
// convention) are the language's only builtin functions besides
// redis.call/redis.pcall/error; a nested redis.call/pcall is flattened to
// its reply's scalar form so it can feed another command's argument list.
func evalScalar(st *state, e Expr) ([]byte, *errs.Error) {
	switch v := e.(type) {
	case StringLit:
		return []byte(v), nil
	case NumberLit:
		return []byte(strconv.FormatFloat(float64(v), 'g', -1, 64)), nil
	case Call:
		switch {
		case v.Namespace == "" && v.Name == "KEYS":
			return indexInto(st.keys, v.Args)
		case v.Namespace == "" && v.Name == "ARGV":
			return indexInto(st.argv, v.Args)
		case v.Namespace == "redis" && v.Name == "call":
			f, err := execCall(st, v.Args, true)
			if err != nil {
				return nil, err
			}
			return frameToScalar(f), nil
		case v.Namespace == "redis" && v.Name == "pcall":
			f, err := execCall(st, v.Args, false)
			if err != nil {
				return nil, err
			}
			return frameToScalar(f), nil
		default:
			return nil, errs.ScriptError("unknown function '%s%s'", dotPrefix(v.Namespace), v.Name)
		}
	default:
		return nil, errs.ScriptError("unsupported expression")
	}
}

func indexInto(items [][]byte, args []Expr) ([]byte, *errs.Error) {
	if len(args) != 1 {
		return nil, errs.ScriptError("KEYS/ARGV take exactly one index argument")
	}
	n, ok := args[0].(NumberLit)
	if !ok {
		return nil, errs.ScriptError("KEYS/ARGV index must be a number")
	}
	i := int(n)
	if i < 1 || i > len(items) {
		return nil, errs.ScriptError("index %d out of range", i)
	}
	return items[i-1], nil
}

func frameToScalar(f protocol.Frame) []byte {
	switch f.Kind {
	case protocol.KindBulk:
		return f.Bulk
	case protocol.KindInteger:
		return []byte(strconv.FormatInt(f.Int, 10))
	case protocol.KindSimple:
		return []byte(f.Str)
	default:
		return nil
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
