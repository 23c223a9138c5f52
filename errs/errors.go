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

// Package errs defines the typed error kinds every layer of the server
// returns instead of panicking on bad input (§7 of the specification). The
// connection loop maps a Kind to a wire error frame; it never inspects a Go
// panic to decide what to send back.
package errs

import "fmt"

// Kind identifies the class of failure so the connection loop can pick the
// right wire representation and decide whether to close the connection.
type Kind int

const (
	KindProtocolFraming Kind = iota
	KindInvalidCommand
	KindWrongArgCount
	KindInvalidArgument
	KindWrongType
	KindKeyNotFound
	KindMoved
	KindAsk
	KindCrossSlot
	KindClusterDown
	KindClusterError
	KindScriptError
	KindBusyKey
	KindIO
)

// Error is the typed error value carried through handler return paths.
type Error struct {
	Kind    Kind
	Message string
	// Redirect fields, populated for KindMoved / KindAsk.
	Slot int
	Addr string
}

func (e *Error) Error() string { return e.Message }

// CloseConnection reports whether a connection must be torn down after this
// error is written, per the table in spec §7.
func (e *Error) CloseConnection() bool {
	return e.Kind == KindProtocolFraming
}

// WireLine renders the error exactly as it must appear on the wire, without
// the leading '-' tag (the codec adds framing).
func (e *Error) WireLine() string {
	switch e.Kind {
	case KindWrongType:
		return "WRONGTYPE " + e.Message
	case KindMoved:
		return fmt.Sprintf("MOVED %d %s", e.Slot, e.Addr)
	case KindAsk:
		return fmt.Sprintf("ASK %d %s", e.Slot, e.Addr)
	case KindCrossSlot:
		return "CROSSSLOT " + e.Message
	case KindClusterDown:
		return "CLUSTERDOWN " + e.Message
	case KindBusyKey:
		return "BUSYKEY " + e.Message
	case KindInvalidCommand:
		return "ERR unknown command " + e.Message
	case KindWrongArgCount:
		return "ERR wrong number of arguments " + e.Message
	default:
		return "ERR " + e.Message
	}
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidCommand(name string) *Error {
	return &Error{Kind: KindInvalidCommand, Message: "'" + name + "'"}
}

func WrongArgCount(name string) *Error {
	return &Error{Kind: KindWrongArgCount, Message: "for '" + name + "' command"}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(KindInvalidArgument, format, args...)
}

func WrongType() *Error {
	return &Error{Kind: KindWrongType, Message: "Operation against a key holding the wrong kind of value"}
}

func KeyNotFound() *Error {
	return &Error{Kind: KindKeyNotFound, Message: "no such key"}
}

func Moved(slot int, addr string) *Error {
	return &Error{Kind: KindMoved, Slot: slot, Addr: addr}
}

func Ask(slot int, addr string) *Error {
	return &Error{Kind: KindAsk, Slot: slot, Addr: addr}
}

func CrossSlot() *Error {
	return &Error{Kind: KindCrossSlot, Message: "Keys in request don't hash to the same slot"}
}

func ClusterDown(reason string) *Error {
	return &Error{Kind: KindClusterDown, Message: reason}
}

func ClusterError(format string, args ...interface{}) *Error {
	return New(KindClusterError, format, args...)
}

func ScriptError(format string, args ...interface{}) *Error {
	return New(KindScriptError, format, args...)
}

func BusyKey() *Error {
	return &Error{Kind: KindBusyKey, Message: "Target key name already exists."}
}

func Protocol(format string, args ...interface{}) *Error {
	return New(KindProtocolFraming, format, args...)
}
