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

// Package command implements the command dispatcher and every datatype
// handler group (C4, C5), grounded on the teacher's case-insensitive
// builtin-function registry in scm/builtins.go: one name, one arity check,
// one handler closure.
package command

import (
	"strings"
	"time"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/protocol"
	"github.com/launix-de/aikv/store"
)

// ConnState is the per-connection mutable state the dispatcher reads and
// mutates: selected database, client name, replica read-only flag and the
// single-shot ASKING marker consumed by the cluster slot guard.
type ConnState struct {
	DB       int
	Name     string
	Addr     string
	ReadOnly bool
	Asking   bool

	// Monitor is set by the MONITOR command; the connection loop (C7) checks
	// it after every dispatch and, once set, stops accepting further
	// commands on that connection and streams MONITOR lines instead.
	Monitor bool
}

// ClusterGuard is implemented by the cluster package (§4.5); the dispatcher
// calls it before every keyed command when clustering is enabled. A nil
// Guard on the Context means standalone mode — every command is allowed.
type ClusterGuard interface {
	Check(state *ConnState, keys []string, write bool) *errs.Error
}

// ClusterAdmin is implemented by the cluster package's subcommand dispatcher;
// it is injected the same way ClusterGuard/ScriptRunner are, so command never
// imports cluster directly (cluster already imports command for ConnState
// and errs, so the reverse import would cycle). A nil ClusterAdmin means
// clustering is disabled: CLUSTER <anything-but-ASKING/READONLY/READWRITE>
// fails with ClusterError.
type ClusterAdmin interface {
	Dispatch(ctx *Context, sub string, args [][]byte) (protocol.Frame, *errs.Error)
}

// ServerInfo answers the server-administration reads that don't belong to
// the typed value store (TIME, INFO, CONFIG).
type ServerInfo interface {
	ConfigGet(param string) (string, bool)
	ConfigSet(param, value string) bool
	InfoSection(section string) string
}

// ScriptRunner is implemented by the script package (C6); it is injected
// here rather than imported directly so that script, which needs to call
// back into Dispatch for redis.call/redis.pcall, doesn't create an import
// cycle with command.
type ScriptRunner interface {
	// Load pre-compiles src and returns its SHA-1 hex hash, caching it for
	// later invocation by hash.
	Load(src string) (string, *errs.Error)
	// Eval parses and runs src directly (caching it as Load would).
	Eval(ctx *Context, src string, numKeys int, args [][]byte) (protocol.Frame, *errs.Error)
	// EvalSha runs a previously Load-ed/Eval-ed script identified by hash.
	EvalSha(ctx *Context, sha string, numKeys int, args [][]byte) (protocol.Frame, *errs.Error)
}

// Context is threaded through every handler: the selected database's facade
// view, the connection's mutable state, and the optional cluster/server
// hooks. Handlers never reach for package-level globals.
type Context struct {
	Store   store.Facade
	State   *ConnState
	Cluster ClusterGuard
	Admin   ClusterAdmin
	Server  ServerInfo
	Scripts ScriptRunner
	Now     func() time.Time

	// Registry (client list / kill) is served from the connection package;
	// it is injected here as a thin interface to avoid an import cycle.
	Clients ClientRegistry
	SlowLog SlowLogReader
}

// ClientRegistry is implemented by the connection package's client table.
type ClientRegistry interface {
	List() []string
	KillAddr(addr string) bool
}

// SlowLogEntry mirrors observability.SlowEntry without requiring command to
// import observability directly.
type SlowLogEntry struct {
	ID            int64
	UnixSeconds   int64
	DurationMicro int64
	Command       string
}

// SlowLogReader is implemented by the observability package's ring buffer
// (C11); a nil SlowLog means SLOWLOG reports an always-empty log.
type SlowLogReader interface {
	Recent(n int) []SlowLogEntry
	Len() int
	Reset()
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// HandlerFunc executes one command given its arguments (the command name
// itself excluded).
type HandlerFunc func(ctx *Context, args [][]byte) (protocol.Frame, *errs.Error)

// KeyExtractor returns every key an invocation touches, used by the cluster
// slot guard's cross-slot check. Keyless commands (PING, TIME, ...) omit it.
type KeyExtractor func(args [][]byte) []string

// Spec describes one registered command.
type Spec struct {
	Name    string
	MinArgs int // -1 means no lower bound beyond 0
	MaxArgs int // -1 means unbounded
	Write   bool
	Keys    KeyExtractor
	Handler HandlerFunc
}

var registry = map[string]*Spec{}

func register(s Spec) {
	registry[strings.ToUpper(s.Name)] = &s
}

// firstKey is the KeyExtractor for the overwhelmingly common shape: the
// first argument is the only key.
func firstKey(args [][]byte) []string {
	if len(args) == 0 {
		return nil
	}
	return []string{string(args[0])}
}

// allArgsAsKeys treats every argument as a key (MGET, DEL, EXISTS, ...).
func allArgsAsKeys(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

// Dispatch looks up and invokes the command named by frame, which must be a
// non-empty array frame per the wire protocol's request shape.
func Dispatch(ctx *Context, frame protocol.Frame) (protocol.Frame, *errs.Error) {
	if frame.Kind != protocol.KindArray || len(frame.Items) == 0 {
		return protocol.Frame{}, errs.InvalidArgument("malformed request")
	}
	name, err := bulkToString(frame.Items[0])
	if err != nil {
		return protocol.Frame{}, err
	}
	args, err := itemsToArgs(frame.Items[1:])
	if err != nil {
		return protocol.Frame{}, err
	}

	spec, ok := registry[strings.ToUpper(name)]
	if !ok {
		return protocol.Frame{}, errs.InvalidCommand(name)
	}
	if len(args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(args) > spec.MaxArgs) {
		return protocol.Frame{}, errs.WrongArgCount(name)
	}

	if ctx.Cluster != nil && spec.Keys != nil {
		keys := spec.Keys(args)
		if len(keys) > 0 {
			if gerr := ctx.Cluster.Check(ctx.State, keys, spec.Write); gerr != nil {
				return protocol.Frame{}, gerr
			}
		}
	}

	return spec.Handler(ctx, args)
}

func bulkToString(f protocol.Frame) (string, *errs.Error) {
	if f.Kind != protocol.KindBulk || f.Bulk == nil {
		return "", errs.InvalidArgument("expected bulk string")
	}
	return string(f.Bulk), nil
}

func itemsToArgs(items []protocol.Frame) ([][]byte, *errs.Error) {
	out := make([][]byte, len(items))
	for i, it := range items {
		if it.Kind != protocol.KindBulk || it.Bulk == nil {
			return nil, errs.InvalidArgument("expected bulk string argument")
		}
		out[i] = it.Bulk
	}
	return out, nil
}

// okFrame is the shared `+OK` reply used across many admin/write commands.
func okFrame() protocol.Frame { return protocol.Simple("OK") }
