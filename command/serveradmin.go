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
)

func init() {
	register(Spec{Name: "PING", MinArgs: 0, MaxArgs: 1, Handler: cmdPing})
	register(Spec{Name: "ECHO", MinArgs: 1, MaxArgs: 1, Handler: cmdEcho})
	register(Spec{Name: "SELECT", MinArgs: 1, MaxArgs: 1, Handler: cmdSelect})
	register(Spec{Name: "DBSIZE", MinArgs: 0, MaxArgs: 0, Handler: cmdDBSize})
	register(Spec{Name: "FLUSHDB", MinArgs: 0, MaxArgs: 1, Write: true, Handler: cmdFlushDB})
	register(Spec{Name: "FLUSHALL", MinArgs: 0, MaxArgs: 1, Write: true, Handler: cmdFlushAll})
	register(Spec{Name: "SWAPDB", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdSwapDB})
	register(Spec{Name: "MOVE", MinArgs: 2, MaxArgs: 2, Write: true, Keys: firstKey, Handler: cmdMove})
	register(Spec{Name: "CLIENT", MinArgs: 1, MaxArgs: -1, Handler: cmdClient})
	register(Spec{Name: "MONITOR", MinArgs: 0, MaxArgs: 0, Handler: cmdMonitor})
	register(Spec{Name: "CONFIG", MinArgs: 2, MaxArgs: -1, Handler: cmdConfig})
	register(Spec{Name: "TIME", MinArgs: 0, MaxArgs: 0, Handler: cmdTime})
	register(Spec{Name: "INFO", MinArgs: 0, MaxArgs: 1, Handler: cmdInfo})
}

func cmdPing(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	if len(args) == 1 {
		return protocol.Bulk(args[0]), nil
	}
	return protocol.Simple("PONG"), nil
}

func cmdEcho(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	return protocol.Bulk(args[0]), nil
}

func cmdSelect(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	n, perr := strconv.Atoi(string(args[0]))
	if perr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	if n < 0 || n >= ctx.Store.NumDatabases() {
		return protocol.Frame{}, errs.InvalidArgument("DB index is out of range")
	}
	ctx.State.DB = n
	return okFrame(), nil
}

func cmdDBSize(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	return protocol.Int(int64(ctx.Store.DBSize(ctx.State.DB))), nil
}

func cmdFlushDB(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	ctx.Store.FlushDB(ctx.State.DB)
	return okFrame(), nil
}

func cmdFlushAll(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	ctx.Store.FlushAll()
	return okFrame(), nil
}

func cmdSwapDB(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	a, aerr := strconv.Atoi(string(args[0]))
	b, berr := strconv.Atoi(string(args[1]))
	if aerr != nil || berr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	ctx.Store.Swap(a, b)
	return okFrame(), nil
}

func cmdMove(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	destDB, derr := strconv.Atoi(string(args[1]))
	if derr != nil {
		return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
	}
	ok, err := ctx.Store.Move(ctx.State.DB, destDB, string(args[0]))
	if err != nil {
		return protocol.Frame{}, err
	}
	if ok {
		return protocol.Int(1), nil
	}
	return protocol.Int(0), nil
}

// cmdMonitor flags the connection as a MONITOR subscriber; it never un-sets
// the flag. The connection loop owns turning the flag into an actual fan-out
// subscription, after which it reads and discards every later request on
// this connection without a reply until the client disconnects.
func cmdMonitor(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	ctx.State.Monitor = true
	return okFrame(), nil
}

func cmdClient(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "LIST":
		if ctx.Clients == nil {
			return protocol.Bulk(nil), nil
		}
		lines := ctx.Clients.List()
		return protocol.BulkString(strings.Join(lines, "\n")), nil
	case "SETNAME":
		if len(args) != 2 {
			return protocol.Frame{}, errs.WrongArgCount("client|setname")
		}
		ctx.State.Name = string(args[1])
		return okFrame(), nil
	case "GETNAME":
		if ctx.State.Name == "" {
			return protocol.NullBulk(), nil
		}
		return protocol.BulkString(ctx.State.Name), nil
	case "KILL":
		if len(args) != 2 {
			return protocol.Frame{}, errs.WrongArgCount("client|kill")
		}
		if ctx.Clients == nil || !ctx.Clients.KillAddr(string(args[1])) {
			return protocol.Frame{}, errs.New(errs.KindInvalidArgument, "No such client")
		}
		return okFrame(), nil
	default:
		return protocol.Frame{}, errs.InvalidArgument("unknown CLIENT subcommand '%s'", sub)
	}
}

func cmdConfig(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "GET":
		if len(args) != 2 {
			return protocol.Frame{}, errs.WrongArgCount("config|get")
		}
		if ctx.Server == nil {
			return protocol.Array(nil), nil
		}
		v, ok := ctx.Server.ConfigGet(string(args[1]))
		if !ok {
			return protocol.Array(nil), nil
		}
		return protocol.Array([]protocol.Frame{
			protocol.BulkString(string(args[1])),
			protocol.BulkString(v),
		}), nil
	case "SET":
		if len(args) != 3 {
			return protocol.Frame{}, errs.WrongArgCount("config|set")
		}
		if ctx.Server == nil || !ctx.Server.ConfigSet(string(args[1]), string(args[2])) {
			return protocol.Frame{}, errs.InvalidArgument("Unknown option or wrong number of arguments")
		}
		return okFrame(), nil
	default:
		return protocol.Frame{}, errs.InvalidArgument("unknown CONFIG subcommand '%s'", sub)
	}
}

func cmdTime(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	now := ctx.now()
	secs := now.Unix()
	micros := now.Nanosecond() / 1000
	return protocol.Array([]protocol.Frame{
		protocol.BulkString(strconv.FormatInt(secs, 10)),
		protocol.BulkString(strconv.Itoa(micros)),
	}), nil
}

func cmdInfo(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	section := "default"
	if len(args) == 1 {
		section = strings.ToLower(string(args[0]))
	}
	if ctx.Server == nil {
		return protocol.BulkString(""), nil
	}
	return protocol.BulkString(ctx.Server.InfoSection(section)), nil
}
