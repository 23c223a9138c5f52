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
	register(Spec{Name: "EVAL", MinArgs: 2, MaxArgs: -1, Write: true, Keys: evalKeys, Handler: cmdEval})
	register(Spec{Name: "EVALSHA", MinArgs: 2, MaxArgs: -1, Write: true, Keys: evalKeys, Handler: cmdEvalSha})
	register(Spec{Name: "SCRIPT", MinArgs: 1, MaxArgs: -1, Handler: cmdScript})
}

// evalKeys extracts the KEYS portion of `EVAL script numkeys key... arg...`
// (and the identically-shaped EVALSHA) for the cluster slot guard.
func evalKeys(args [][]byte) []string {
	if len(args) < 2 {
		return nil
	}
	n, err := strconv.Atoi(string(args[1]))
	if err != nil || n <= 0 {
		return nil
	}
	if 2+n > len(args) {
		n = len(args) - 2
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = string(args[2+i])
	}
	return out
}

func splitKeysArgv(args [][]byte) (numKeys int, rest [][]byte, err *errs.Error) {
	n, perr := strconv.Atoi(string(args[1]))
	if perr != nil || n < 0 {
		return 0, nil, errs.InvalidArgument("numkeys must be a non-negative integer")
	}
	if 2+n > len(args) {
		return 0, nil, errs.InvalidArgument("numkeys exceeds the argument count")
	}
	return n, args[2:], nil
}

func cmdEval(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	if ctx.Scripts == nil {
		return protocol.Frame{}, errs.ScriptError("scripting is not enabled on this server")
	}
	numKeys, rest, err := splitKeysArgv(args)
	if err != nil {
		return protocol.Frame{}, err
	}
	return ctx.Scripts.Eval(ctx, string(args[0]), numKeys, rest)
}

func cmdEvalSha(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	if ctx.Scripts == nil {
		return protocol.Frame{}, errs.ScriptError("scripting is not enabled on this server")
	}
	numKeys, rest, err := splitKeysArgv(args)
	if err != nil {
		return protocol.Frame{}, err
	}
	return ctx.Scripts.EvalSha(ctx, string(args[0]), numKeys, rest)
}

func cmdScript(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	if ctx.Scripts == nil {
		return protocol.Frame{}, errs.ScriptError("scripting is not enabled on this server")
	}
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "LOAD":
		if len(args) != 2 {
			return protocol.Frame{}, errs.WrongArgCount("SCRIPT LOAD")
		}
		sha, err := ctx.Scripts.Load(string(args[1]))
		if err != nil {
			return protocol.Frame{}, err
		}
		return protocol.BulkString(sha), nil
	default:
		return protocol.Frame{}, errs.InvalidArgument("unsupported SCRIPT subcommand '%s'", args[0])
	}
}
