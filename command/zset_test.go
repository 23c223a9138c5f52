package command

import "testing"

func TestZAddZScoreZCard(t *testing.T) {
	ctx := newTestContext()
	f, err := cmdZAdd(ctx, bargs("z", "1", "a", "2", "b"))
	if err != nil {
		t.Fatalf("zadd: %v", err)
	}
	if f.Int != 2 {
		t.Fatalf("expected 2 added, got %d", f.Int)
	}
	s, _ := cmdZScore(ctx, bargs("z", "a"))
	if string(s.Bulk) != "1" {
		t.Fatalf("expected score 1, got %q", s.Bulk)
	}
	c, _ := cmdZCard(ctx, bargs("z"))
	if c.Int != 2 {
		t.Fatalf("expected cardinality 2, got %d", c.Int)
	}
}

func TestZAddNXXX(t *testing.T) {
	ctx := newTestContext()
	cmdZAdd(ctx, bargs("z", "1", "a"))
	cmdZAdd(ctx, bargs("z", "5", "a", "NX"))
	s, _ := cmdZScore(ctx, bargs("z", "a"))
	if string(s.Bulk) != "1" {
		t.Fatalf("NX must not overwrite existing member, got %q", s.Bulk)
	}
	cmdZAdd(ctx, bargs("z", "9", "a", "XX"))
	s2, _ := cmdZScore(ctx, bargs("z", "a"))
	if string(s2.Bulk) != "9" {
		t.Fatalf("XX must overwrite existing member, got %q", s2.Bulk)
	}
}

func TestZRankAndRevRank(t *testing.T) {
	ctx := newTestContext()
	cmdZAdd(ctx, bargs("z", "1", "a", "2", "b", "3", "c"))
	r, _ := cmdZRank(false)(ctx, bargs("z", "b"))
	if r.Int != 1 {
		t.Fatalf("expected rank 1, got %d", r.Int)
	}
	rr, _ := cmdZRank(true)(ctx, bargs("z", "b"))
	if rr.Int != 1 {
		t.Fatalf("expected revrank 1, got %d", rr.Int)
	}
}

func TestZRangeWithScores(t *testing.T) {
	ctx := newTestContext()
	cmdZAdd(ctx, bargs("z", "1", "a", "2", "b", "3", "c"))
	f, err := cmdZRange(false)(ctx, bargs("z", "0", "-1", "WITHSCORES"))
	if err != nil {
		t.Fatalf("zrange: %v", err)
	}
	if len(f.Items) != 6 {
		t.Fatalf("expected 6 items (member+score x3), got %d", len(f.Items))
	}
	if string(f.Items[0].Bulk) != "a" || string(f.Items[1].Bulk) != "1" {
		t.Fatalf("unexpected order: %v", f.Items)
	}
}

func TestZRangeByScoreLimit(t *testing.T) {
	ctx := newTestContext()
	cmdZAdd(ctx, bargs("z", "1", "a", "2", "b", "3", "c", "4", "d"))
	f, err := cmdZRangeByScore(ctx, bargs("z", "1", "4", "LIMIT", "1", "2"))
	if err != nil {
		t.Fatalf("zrangebyscore: %v", err)
	}
	if len(f.Items) != 2 {
		t.Fatalf("expected 2 members after limit, got %d", len(f.Items))
	}
	if string(f.Items[0].Bulk) != "b" {
		t.Fatalf("expected first limited member to be b, got %q", f.Items[0].Bulk)
	}
}

func TestZIncrBy(t *testing.T) {
	ctx := newTestContext()
	cmdZAdd(ctx, bargs("z", "1", "a"))
	f, err := cmdZIncrBy(ctx, bargs("z", "4", "a"))
	if err != nil {
		t.Fatalf("zincrby: %v", err)
	}
	if string(f.Bulk) != "5" {
		t.Fatalf("expected 5, got %q", f.Bulk)
	}
}

func TestZCount(t *testing.T) {
	ctx := newTestContext()
	cmdZAdd(ctx, bargs("z", "1", "a", "2", "b", "3", "c"))
	f, _ := cmdZCount(ctx, bargs("z", "2", "3"))
	if f.Int != 2 {
		t.Fatalf("expected 2, got %d", f.Int)
	}
}
