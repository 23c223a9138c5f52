package command

import "testing"

func TestPushPopLen(t *testing.T) {
	ctx := newTestContext()
	f, err := cmdPush(false)(ctx, bargs("l", "a", "b", "c"))
	if err != nil {
		t.Fatalf("rpush: %v", err)
	}
	if f.Int != 3 {
		t.Fatalf("expected length 3, got %d", f.Int)
	}
	ln, _ := cmdLLen(ctx, bargs("l"))
	if ln.Int != 3 {
		t.Fatalf("expected llen 3, got %d", ln.Int)
	}
	p, _ := cmdPop(true)(ctx, bargs("l"))
	if string(p.Bulk) != "a" {
		t.Fatalf("expected lpop a, got %q", p.Bulk)
	}
}

func TestLRangeNegativeIndex(t *testing.T) {
	ctx := newTestContext()
	cmdPush(false)(ctx, bargs("l", "a", "b", "c", "d"))
	f, err := cmdLRange(ctx, bargs("l", "-2", "-1"))
	if err != nil {
		t.Fatalf("lrange: %v", err)
	}
	if len(f.Items) != 2 || string(f.Items[0].Bulk) != "c" || string(f.Items[1].Bulk) != "d" {
		t.Fatalf("unexpected range result: %v", f.Items)
	}
}

func TestLIndexAndLSet(t *testing.T) {
	ctx := newTestContext()
	cmdPush(false)(ctx, bargs("l", "a", "b", "c"))
	f, _ := cmdLIndex(ctx, bargs("l", "-1"))
	if string(f.Bulk) != "c" {
		t.Fatalf("expected c, got %q", f.Bulk)
	}
	if _, err := cmdLSet(ctx, bargs("l", "0", "z")); err != nil {
		t.Fatalf("lset: %v", err)
	}
	f2, _ := cmdLIndex(ctx, bargs("l", "0"))
	if string(f2.Bulk) != "z" {
		t.Fatalf("expected z, got %q", f2.Bulk)
	}
}

func TestLRemPositiveAndNegative(t *testing.T) {
	ctx := newTestContext()
	cmdPush(false)(ctx, bargs("l", "a", "b", "a", "c", "a"))
	f, _ := cmdLRem(ctx, bargs("l", "2", "a"))
	if f.Int != 2 {
		t.Fatalf("expected 2 removed from head, got %d", f.Int)
	}
	cmdDel(ctx, bargs("l"))
	cmdPush(false)(ctx, bargs("l", "a", "b", "a", "c", "a"))
	f2, _ := cmdLRem(ctx, bargs("l", "-1", "a"))
	if f2.Int != 1 {
		t.Fatalf("expected 1 removed from tail, got %d", f2.Int)
	}
	f3, _ := cmdLIndex(ctx, bargs("l", "-1"))
	if string(f3.Bulk) != "c" {
		t.Fatalf("expected last element c after tail removal, got %q", f3.Bulk)
	}
}

func TestLTrim(t *testing.T) {
	ctx := newTestContext()
	cmdPush(false)(ctx, bargs("l", "a", "b", "c", "d", "e"))
	if _, err := cmdLTrim(ctx, bargs("l", "1", "3")); err != nil {
		t.Fatalf("ltrim: %v", err)
	}
	f, _ := cmdLRange(ctx, bargs("l", "0", "-1"))
	if len(f.Items) != 3 {
		t.Fatalf("expected 3 remaining elements, got %d", len(f.Items))
	}
	if string(f.Items[0].Bulk) != "b" {
		t.Fatalf("expected first element b, got %q", f.Items[0].Bulk)
	}
}

func TestLInsert(t *testing.T) {
	ctx := newTestContext()
	cmdPush(false)(ctx, bargs("l", "a", "c"))
	f, err := cmdLInsert(ctx, bargs("l", "BEFORE", "c", "b"))
	if err != nil {
		t.Fatalf("linsert: %v", err)
	}
	if f.Int != 3 {
		t.Fatalf("expected length 3, got %d", f.Int)
	}
	rg, _ := cmdLRange(ctx, bargs("l", "0", "-1"))
	if string(rg.Items[1].Bulk) != "b" {
		t.Fatalf("expected b inserted before c, got %v", rg.Items)
	}
}

func TestLMove(t *testing.T) {
	ctx := newTestContext()
	cmdPush(false)(ctx, bargs("src", "a", "b", "c"))
	f, err := cmdLMove(ctx, bargs("src", "dst", "RIGHT", "LEFT"))
	if err != nil {
		t.Fatalf("lmove: %v", err)
	}
	if string(f.Bulk) != "c" {
		t.Fatalf("expected moved element c, got %q", f.Bulk)
	}
	d, _ := cmdLIndex(ctx, bargs("dst", "0"))
	if string(d.Bulk) != "c" {
		t.Fatalf("expected c at head of dst, got %q", d.Bulk)
	}
}

// TestLMoveWrongTypeDestinationLeavesSourceUntouched guards the atomicity
// fix: a WRONGTYPE destination must not pop the element out of the source
// list, since nowhere received it.
func TestLMoveWrongTypeDestinationLeavesSourceUntouched(t *testing.T) {
	ctx := newTestContext()
	cmdPush(false)(ctx, bargs("src", "a", "b", "c"))
	cmdSet(ctx, bargs("dst", "not-a-list"))

	if _, err := cmdLMove(ctx, bargs("src", "dst", "RIGHT", "LEFT")); err == nil {
		t.Fatalf("expected WRONGTYPE error")
	}

	ln, _ := cmdLLen(ctx, bargs("src"))
	if ln.Int != 3 {
		t.Fatalf("source list must be untouched after a failed move, got len %d", ln.Int)
	}
	f, _ := cmdGet(ctx, bargs("dst"))
	if string(f.Bulk) != "not-a-list" {
		t.Fatalf("destination must be untouched after a failed move, got %q", f.Bulk)
	}
}
