package command

import (
	"testing"
)

func TestKeysAndScanGlob(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("foo1", "a"))
	cmdSet(ctx, bargs("foo2", "b"))
	cmdSet(ctx, bargs("bar", "c"))
	f, _ := cmdKeys(ctx, bargs("foo*"))
	if len(f.Items) != 2 {
		t.Fatalf("expected 2 keys matching foo*, got %d", len(f.Items))
	}
}

func TestScanCoversAllKeys(t *testing.T) {
	ctx := newTestContext()
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		cmdSet(ctx, bargs(k, "v"))
	}
	seen := map[string]bool{}
	cursor := "0"
	for {
		f, err := cmdScan(ctx, bargs(cursor, "COUNT", "2"))
		if err != nil {
			t.Fatalf("scan: %v", err)
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
		t.Fatalf("expected 5 keys observed, got %d", len(seen))
	}
}

func TestRenameAndRenameNX(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("a", "1"))
	if _, err := cmdRename(true)(ctx, bargs("a", "b")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, ok := ctx.Store.Get(0, "b"); !ok {
		t.Fatalf("destination key missing after rename")
	}
	cmdSet(ctx, bargs("c", "1"))
	cmdSet(ctx, bargs("d", "2"))
	f, _ := cmdRename(false)(ctx, bargs("c", "d"))
	if f.Int != 0 {
		t.Fatalf("renamenx over existing destination must fail")
	}
}

func TestTypeAndCopy(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("s", "v"))
	ty, _ := cmdType(ctx, bargs("s"))
	if ty.Str != "string" {
		t.Fatalf("expected type string, got %q", ty.Str)
	}
	f, err := cmdCopy(ctx, bargs("s", "s2"))
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if f.Int != 1 {
		t.Fatalf("expected copy success")
	}
	if _, ok := ctx.Store.Get(0, "s2"); !ok {
		t.Fatalf("copied key missing")
	}
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("k", "hello"))
	dump, err := cmdDump(ctx, bargs("k"))
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	cmdDel(ctx, bargs("k"))
	if _, err := cmdRestore(ctx, [][]byte{[]byte("k"), []byte("0"), dump.Bulk}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	f, _ := cmdGet(ctx, bargs("k"))
	if string(f.Bulk) != "hello" {
		t.Fatalf("expected restored value hello, got %q", f.Bulk)
	}
}

func TestRestoreRejectsCorruptChecksum(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("k", "hello"))
	dump, _ := cmdDump(ctx, bargs("k"))
	corrupt := append([]byte(nil), dump.Bulk...)
	corrupt[0] ^= 0xFF
	cmdDel(ctx, bargs("k"))
	if _, err := cmdRestore(ctx, [][]byte{[]byte("k"), []byte("0"), corrupt}); err == nil {
		t.Fatalf("expected checksum verification failure")
	}
}

func TestExpirePersistTTL(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("k", "v"))
	f, err := cmdExpireRel(1000)(ctx, bargs("k", "100"))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if f.Int != 1 {
		t.Fatalf("expected expire to report 1")
	}
	ttl, _ := cmdTTL(1000)(ctx, bargs("k"))
	if ttl.Int < 99 || ttl.Int > 100 {
		t.Fatalf("expected ttl close to 100s, got %d", ttl.Int)
	}
	p, _ := cmdPersist(ctx, bargs("k"))
	if p.Int != 1 {
		t.Fatalf("expected persist to report 1")
	}
	ttl2, _ := cmdTTL(1000)(ctx, bargs("k"))
	if ttl2.Int != -1 {
		t.Fatalf("expected no expiry after persist, got %d", ttl2.Int)
	}
}

func TestExpireNonPositiveDeletesKey(t *testing.T) {
	ctx := newTestContext()
	cmdSet(ctx, bargs("k", "v"))
	f, _ := cmdExpireRel(1000)(ctx, bargs("k", "0"))
	if f.Int != 1 {
		t.Fatalf("expected existing key deletion to report 1")
	}
	if _, ok := ctx.Store.Get(0, "k"); ok {
		t.Fatalf("key should have been deleted")
	}
}
