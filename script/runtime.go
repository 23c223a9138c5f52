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
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
)

// Runtime is the server-wide script cache and entry point, wired into
// command.Context.Scripts at startup. It implements command.ScriptRunner.
type Runtime struct {
	mu    sync.Mutex
	cache map[string]string // sha-1 hex, lowercase -> source
}

// NewRuntime builds an empty script cache.
func NewRuntime() *Runtime {
	return &Runtime{cache: make(map[string]string)}
}

// Load pre-compiles src (parses it, so a syntax error surfaces at load
// time) and returns its SHA-1 hex hash. Reloading identical source returns
// the same hash, matching the idempotence property SPEC_FULL requires.
func (r *Runtime) Load(src string) (string, *errs.Error) {
	if _, err := Parse(src); err != nil {
		return "", errs.ScriptError("%s", err.Error())
	}
	sha := hashSource(src)
	r.mu.Lock()
	r.cache[sha] = src
	r.mu.Unlock()
	return sha, nil
}

// Eval parses and runs src directly, caching it under its hash as a side
// effect so a later EVALSHA can reference it.
func (r *Runtime) Eval(ctx *command.Context, src string, numKeys int, args [][]byte) (protocol.Frame, *errs.Error) {
	sha := hashSource(src)
	r.mu.Lock()
	r.cache[sha] = src
	r.mu.Unlock()
	return r.execute(ctx, src, numKeys, args)
}

// EvalSha runs a previously cached script identified by hash.
func (r *Runtime) EvalSha(ctx *command.Context, sha string, numKeys int, args [][]byte) (protocol.Frame, *errs.Error) {
	r.mu.Lock()
	src, ok := r.cache[strings.ToLower(sha)]
	r.mu.Unlock()
	if !ok {
		return protocol.Frame{}, errs.InvalidArgument("NOSCRIPT No matching script. Please use EVAL.")
	}
	return r.execute(ctx, src, numKeys, args)
}

func hashSource(src string) string {
	sum := sha1.Sum([]byte(src))
	return hex.EncodeToString(sum[:])
}

// execute parses src, builds a fresh write overlay and KEYS/ARGV bindings,
// and runs every statement. A thrown error leaves the overlay uncommitted
// (nothing mutates); a normal return commits it via write_batch (§4.2).
func (r *Runtime) execute(ctx *command.Context, src string, numKeys int, args [][]byte) (protocol.Frame, *errs.Error) {
	if numKeys < 0 || numKeys > len(args) {
		return protocol.Frame{}, errs.InvalidArgument("numkeys exceeds the argument count")
	}
	stmts, perr := Parse(src)
	if perr != nil {
		return protocol.Frame{}, errs.ScriptError("%s", perr.Error())
	}

	ov := newOverlay(ctx.Store, func() int64 { return nowMillis(ctx) })
	sub := *ctx
	sub.Store = ov
	sub.Scripts = nil // scripts cannot re-enter EVAL/EVALSHA

	st := &state{ctx: &sub, keys: args[:numKeys], argv: args[numKeys:]}
	result, rerr := run(st, stmts)
	if rerr != nil {
		return protocol.Frame{}, rerr
	}
	if cerr := ov.commit(); cerr != nil {
		return protocol.Frame{}, errs.New(errs.KindIO, "%v", cerr)
	}
	return result, nil
}

func nowMillis(ctx *command.Context) int64 {
	if ctx.Now != nil {
		return ctx.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}
