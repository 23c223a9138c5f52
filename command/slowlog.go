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
	register(Spec{Name: "SLOWLOG", MinArgs: 1, MaxArgs: 2, Handler: cmdSlowLog})
}

func cmdSlowLog(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "GET":
		n := 10
		if len(args) == 2 {
			parsed, perr := strconv.Atoi(string(args[1]))
			if perr != nil {
				return protocol.Frame{}, errs.InvalidArgument("value is not an integer or out of range")
			}
			n = parsed
		}
		if ctx.SlowLog == nil {
			return protocol.Array(nil), nil
		}
		entries := ctx.SlowLog.Recent(n)
		items := make([]protocol.Frame, len(entries))
		for i, e := range entries {
			items[i] = protocol.Array([]protocol.Frame{
				protocol.Int(e.ID),
				protocol.Int(e.UnixSeconds),
				protocol.Int(e.DurationMicro),
				protocol.Array([]protocol.Frame{protocol.BulkString(e.Command)}),
			})
		}
		return protocol.Array(items), nil
	case "LEN":
		if ctx.SlowLog == nil {
			return protocol.Int(0), nil
		}
		return protocol.Int(int64(ctx.SlowLog.Len())), nil
	case "RESET":
		if ctx.SlowLog != nil {
			ctx.SlowLog.Reset()
		}
		return okFrame(), nil
	default:
		return protocol.Frame{}, errs.InvalidArgument("unknown SLOWLOG subcommand '%s'", sub)
	}
}
