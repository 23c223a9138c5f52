package command

import "testing"

func TestHSetHGetHDel(t *testing.T) {
	ctx := newTestContext()
	f, err := cmdHSet(ctx, bargs("h", "f1", "v1", "f2", "v2"))
	if err != nil {
		t.Fatalf("hset: %v", err)
	}
	if f.Int != 2 {
		t.Fatalf("expected 2 new fields, got %d", f.Int)
	}
	g, _ := cmdHGet(ctx, bargs("h", "f1"))
	if string(g.Bulk) != "v1" {
		t.Fatalf("expected v1, got %q", g.Bulk)
	}
	d, _ := cmdHDel(ctx, bargs("h", "f1", "fx"))
	if d.Int != 1 {
		t.Fatalf("expected 1 deleted field, got %d", d.Int)
	}
}

func TestHSetNX(t *testing.T) {
	ctx := newTestContext()
	cmdHSet(ctx, bargs("h", "f", "v1"))
	f, _ := cmdHSetNX(ctx, bargs("h", "f", "v2"))
	if f.Int != 0 {
		t.Fatalf("hsetnx must not overwrite existing field")
	}
	g, _ := cmdHGet(ctx, bargs("h", "f"))
	if string(g.Bulk) != "v1" {
		t.Fatalf("expected original value v1, got %q", g.Bulk)
	}
}

func TestHIncrByAndFloat(t *testing.T) {
	ctx := newTestContext()
	cmdHSet(ctx, bargs("h", "n", "10"))
	f, err := cmdHIncrBy(ctx, bargs("h", "n", "5"))
	if err != nil {
		t.Fatalf("hincrby: %v", err)
	}
	if f.Int != 15 {
		t.Fatalf("expected 15, got %d", f.Int)
	}
	f2, err := cmdHIncrByFloat(ctx, bargs("h", "n", "2.5"))
	if err != nil {
		t.Fatalf("hincrbyfloat: %v", err)
	}
	if string(f2.Bulk) != "17.5" {
		t.Fatalf("expected 17.5, got %q", f2.Bulk)
	}
}

func TestHGetAllAndEmptyDeletesKey(t *testing.T) {
	ctx := newTestContext()
	cmdHSet(ctx, bargs("h", "a", "1"))
	all, _ := cmdHGetAll(ctx, bargs("h"))
	if len(all.Items) != 2 {
		t.Fatalf("expected 2 items (field+value), got %d", len(all.Items))
	}
	cmdHDel(ctx, bargs("h", "a"))
	if _, ok := ctx.Store.Get(0, "h"); ok {
		t.Fatalf("emptied hash must be deleted")
	}
}

func TestHScanCoversAllFields(t *testing.T) {
	ctx := newTestContext()
	cmdHSet(ctx, bargs("h", "a", "1", "b", "2", "c", "3", "d", "4", "e", "5"))
	seen := map[string]bool{}
	cursor := "0"
	for {
		f, err := cmdHScan(ctx, bargs("h", cursor, "COUNT", "2"))
		if err != nil {
			t.Fatalf("hscan: %v", err)
		}
		cursor = string(f.Items[0].Bulk)
		batch := f.Items[1].Items
		for i := 0; i < len(batch); i += 2 {
			seen[string(batch[i].Bulk)] = true
		}
		if cursor == "0" {
			break
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 fields observed, got %d", len(seen))
	}
}
