package command

import "testing"

func TestPingEcho(t *testing.T) {
	ctx := newTestContext()
	f, _ := cmdPing(ctx, nil)
	if f.Str != "PONG" {
		t.Fatalf("expected PONG, got %q", f.Str)
	}
	f2, _ := cmdPing(ctx, bargs("hi"))
	if string(f2.Bulk) != "hi" {
		t.Fatalf("expected echo of argument, got %q", f2.Bulk)
	}
	f3, _ := cmdEcho(ctx, bargs("hello"))
	if string(f3.Bulk) != "hello" {
		t.Fatalf("expected hello, got %q", f3.Bulk)
	}
}

func TestSelectAndDBSize(t *testing.T) {
	ctx := newTestContext()
	if _, err := cmdSelect(ctx, bargs("3")); err != nil {
		t.Fatalf("select: %v", err)
	}
	if ctx.State.DB != 3 {
		t.Fatalf("expected db 3, got %d", ctx.State.DB)
	}
	cmdSet(ctx, bargs("a", "1"))
	f, _ := cmdDBSize(ctx, nil)
	if f.Int != 1 {
		t.Fatalf("expected dbsize 1, got %d", f.Int)
	}
}

func TestSelectOutOfRange(t *testing.T) {
	ctx := newTestContext()
	if _, err := cmdSelect(ctx, bargs("99")); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestFlushDBAndFlushAll(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("a", "1"))
	cmdFlushDB(ctx, nil)
	if f, _ := cmdDBSize(ctx, nil); f.Int != 0 {
		t.Fatalf("expected empty db after flushdb")
	}
	cmdSelect(ctx, bargs("1"))
	cmdSet(ctx, bargs("b", "2"))
	cmdFlushAll(ctx, nil)
	if f, _ := cmdDBSize(ctx, nil); f.Int != 0 {
		t.Fatalf("expected empty db after flushall")
	}
}

func TestSwapDBAndMove(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("a", "1"))
	cmdSwapDB(ctx, bargs("0", "1"))
	if _, ok := ctx.Store.Get(0, "a"); ok {
		t.Fatalf("key should have moved to db 1 after swap")
	}
	if _, ok := ctx.Store.Get(1, "a"); !ok {
		t.Fatalf("key should be present in db 1 after swap")
	}

	cmdSelect(ctx, bargs("1"))
	f, err := cmdMove(ctx, bargs("a", "2"))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if f.Int != 1 {
		t.Fatalf("expected move success")
	}
}

func TestClientSetNameGetName(t *testing.T) {
	ctx := newTestContext()
	if _, err := cmdClient(ctx, bargs("SETNAME", "worker-1")); err != nil {
		t.Fatalf("client setname: %v", err)
	}
	f, _ := cmdClient(ctx, bargs("GETNAME"))
	if string(f.Bulk) != "worker-1" {
		t.Fatalf("expected worker-1, got %q", f.Bulk)
	}
}

func TestTimeReturnsTwoElements(t *testing.T) {
	ctx := newTestContext()
	f, _ := cmdTime(ctx, nil)
	if len(f.Items) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(f.Items))
	}
}
