package command

import "testing"

func TestSAddSRemSCard(t *testing.T) {
	ctx := newTestContext()
	f, err := cmdSAdd(ctx, bargs("s", "a", "b", "c"))
	if err != nil {
		t.Fatalf("sadd: %v", err)
	}
	if f.Int != 3 {
		t.Fatalf("expected 3 added, got %d", f.Int)
	}
	f2, _ := cmdSAdd(ctx, bargs("s", "a", "d"))
	if f2.Int != 1 {
		t.Fatalf("expected 1 newly added, got %d", f2.Int)
	}
	fc, _ := cmdSCard(ctx, bargs("s"))
	if fc.Int != 4 {
		t.Fatalf("expected cardinality 4, got %d", fc.Int)
	}
	fr, _ := cmdSRem(ctx, bargs("s", "a", "x"))
	if fr.Int != 1 {
		t.Fatalf("expected 1 removed, got %d", fr.Int)
	}
}

func TestSIsMemberAndEmptyDeletesKey(t *testing.T) {
	ctx := newTestContext()
	cmdSAdd(ctx, bargs("s", "a"))
	f, _ := cmdSIsMember(ctx, bargs("s", "a"))
	if f.Int != 1 {
		t.Fatalf("expected member")
	}
	cmdSRem(ctx, bargs("s", "a"))
	if _, ok := ctx.Store.Get(0, "s"); ok {
		t.Fatalf("emptied set must be deleted")
	}
}

func TestSUnionInterDiff(t *testing.T) {
	ctx := newTestContext()
	cmdSAdd(ctx, bargs("a", "1", "2", "3"))
	cmdSAdd(ctx, bargs("b", "2", "3", "4"))
	u, _ := cmdSUnion(ctx, bargs("a", "b"))
	if len(u.Items) != 4 {
		t.Fatalf("union expected 4, got %d", len(u.Items))
	}
	i, _ := cmdSInter(ctx, bargs("a", "b"))
	if len(i.Items) != 2 {
		t.Fatalf("inter expected 2, got %d", len(i.Items))
	}
	d, _ := cmdSDiff(ctx, bargs("a", "b"))
	if len(d.Items) != 1 {
		t.Fatalf("diff expected 1, got %d", len(d.Items))
	}
}

func TestSMove(t *testing.T) {
	ctx := newTestContext()
	cmdSAdd(ctx, bargs("src", "m"))
	f, err := cmdSMove(ctx, bargs("src", "dst", "m"))
	if err != nil {
		t.Fatalf("smove: %v", err)
	}
	if f.Int != 1 {
		t.Fatalf("expected moved=1")
	}
	dst, _ := getSet(ctx, "dst")
	if _, ok := dst["m"]; !ok {
		t.Fatalf("member not present in destination")
	}
}

// TestSMoveWrongTypeDestinationLeavesSourceUntouched guards the atomicity
// fix: a WRONGTYPE destination must not remove the member from the source
// set, since nowhere received it.
func TestSMoveWrongTypeDestinationLeavesSourceUntouched(t *testing.T) {
	ctx := newTestContext()
	cmdSAdd(ctx, bargs("src", "m"))
	cmdSet(ctx, bargs("dst", "not-a-set"))

	if _, err := cmdSMove(ctx, bargs("src", "dst", "m")); err == nil {
		t.Fatalf("expected WRONGTYPE error")
	}

	src, _ := getSet(ctx, "src")
	if _, ok := src["m"]; !ok {
		t.Fatalf("member must remain in source after a failed move")
	}
	f, _ := cmdGet(ctx, bargs("dst"))
	if string(f.Bulk) != "not-a-set" {
		t.Fatalf("destination must be untouched after a failed move, got %q", f.Bulk)
	}
}

func TestSScanCursorCoversAllMembers(t *testing.T) {
	ctx := newTestContext()
	cmdSAdd(ctx, bargs("s", "a", "b", "c", "d", "e"))
	seen := map[string]bool{}
	cursor := "0"
	for {
		f, err := cmdSScan(ctx, bargs("s", cursor, "COUNT", "2"))
		if err != nil {
			t.Fatalf("sscan: %v", err)
		}
		cursor = string(f.Items[0].Bulk)
		for _, it := range f.Items[1].Items {
			seen[string(it.Bulk)] = true
		}
		if cursor == "0" {
			break
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected to observe all 5 members, got %d", len(seen))
	}
}
