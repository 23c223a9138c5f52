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
	"strings"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
)

func init() {
	register(Spec{Name: "CLUSTER", MinArgs: 1, MaxArgs: -1, Handler: cmdCluster})
	register(Spec{Name: "ASKING", MinArgs: 0, MaxArgs: 0, Handler: cmdAsking})
	register(Spec{Name: "READONLY", MinArgs: 0, MaxArgs: 0, Handler: cmdReadOnly})
	register(Spec{Name: "READWRITE", MinArgs: 0, MaxArgs: 0, Handler: cmdReadWrite})
}

// cmdCluster handles the per-connection flag toggles directly (they need
// nothing beyond ConnState) and forwards every other subcommand to the
// injected ClusterAdmin, which owns the state machine and slot router.
func cmdCluster(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	sub := strings.ToUpper(string(args[0]))
	rest := args[1:]

	switch sub {
	case "ASKING":
		return cmdAsking(ctx, rest)
	case "READONLY":
		return cmdReadOnly(ctx, rest)
	case "READWRITE":
		return cmdReadWrite(ctx, rest)
	}
	if ctx.Admin == nil {
		return protocol.Frame{}, errs.ClusterError("this instance has cluster support disabled")
	}
	return ctx.Admin.Dispatch(ctx, sub, rest)
}

// cmdAsking sets the single-shot marker consumed by the slot guard on the
// very next request on this connection, allowing a client that was told
// ASK <slot> <addr> to retry against the importing node during migration.
func cmdAsking(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	ctx.State.Asking = true
	return okFrame(), nil
}

func cmdReadOnly(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	ctx.State.ReadOnly = true
	return okFrame(), nil
}

func cmdReadWrite(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error) {
	ctx.State.ReadOnly = false
	return okFrame(), nil
}
