package command

import (
	"testing"

	"github.com/launix-de/aikv/protocol"
)

func frameArgs(ss ...string) protocol.Frame {
	items := make([]protocol.Frame, len(ss))
	for i, s := range ss {
		items[i] = protocol.BulkString(s)
	}
	return protocol.Array(items)
}

func TestDispatchUnknownCommand(t *testing.T) {
	ctx := newTestContext()
	_, err := Dispatch(ctx, frameArgs("NOSUCHCOMMAND"))
	if err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestDispatchArityValidation(t *testing.T) {
	ctx := newTestContext()
	if _, err := Dispatch(ctx, frameArgs("GET")); err == nil {
		t.Fatalf("expected wrong-arity error for GET with no key")
	}
	if _, err := Dispatch(ctx, frameArgs("GET", "k", "extra")); err == nil {
		t.Fatalf("expected wrong-arity error for GET with too many args")
	}
}

func TestDispatchSetThenGet(t *testing.T) {
	ctx := newTestContext()
	if _, err := Dispatch(ctx, frameArgs("SET", "k", "v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	f, err := Dispatch(ctx, frameArgs("get", "k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(f.Bulk) != "v" {
		t.Fatalf("expected v, got %q", f.Bulk)
	}
}

func TestDispatchRejectsMalformedFrame(t *testing.T) {
	ctx := newTestContext()
	if _, err := Dispatch(ctx, protocol.BulkString("not-an-array")); err == nil {
		t.Fatalf("expected malformed-request error for non-array frame")
	}
}
