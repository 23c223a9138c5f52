package store

import "testing"

func TestZSetSetAndScore(t *testing.T) {
	z := NewZSet()
	if isNew := z.Set("a", 1.5); !isNew {
		t.Errorf("expected a to be newly added")
	}
	if isNew := z.Set("a", 2.5); isNew {
		t.Errorf("expected re-set of existing member to report not-new")
	}
	score, ok := z.Score("a")
	if !ok || score != 2.5 {
		t.Errorf("expected score 2.5, got %v ok=%v", score, ok)
	}
}

func TestZSetRangeByIndexOrdering(t *testing.T) {
	z := NewZSet()
	z.Set("c", 3)
	z.Set("a", 1)
	z.Set("b", 2)

	members := z.RangeByIndex(0, len(z.scores), false)
	want := []string{"a", "b", "c"}
	if len(members) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(members))
	}
	for i, m := range want {
		if members[i].member != m {
			t.Errorf("index %d: expected %s, got %s", i, m, members[i].member)
		}
	}

	rev := z.RangeByIndex(0, len(z.scores), true)
	if rev[0].member != "c" || rev[2].member != "a" {
		t.Errorf("expected reverse order c,b,a, got %v", rev)
	}
}

func TestZSetTiebreakIsLexicographic(t *testing.T) {
	z := NewZSet()
	z.Set("zebra", 1)
	z.Set("apple", 1)
	members := z.RangeByIndex(0, len(z.scores), false)
	if members[0].member != "apple" || members[1].member != "zebra" {
		t.Errorf("expected lexicographic tiebreak, got %v", members)
	}
}

func TestZSetRemove(t *testing.T) {
	z := NewZSet()
	z.Set("a", 1)
	if !z.Remove("a") {
		t.Errorf("expected removal of existing member to report true")
	}
	if z.Remove("a") {
		t.Errorf("expected second removal to report false")
	}
	if z.Len() != 0 {
		t.Errorf("expected zset to be empty")
	}
}

func TestZSetRangeByScore(t *testing.T) {
	z := NewZSet()
	z.Set("a", 1)
	z.Set("b", 2)
	z.Set("c", 3)

	members := z.RangeByScore(2, 3)
	if len(members) != 2 || members[0].member != "b" || members[1].member != "c" {
		t.Errorf("expected [b c], got %v", members)
	}
	if n := z.CountByScore(1, 3); n != 3 {
		t.Errorf("expected count 3, got %d", n)
	}
}

func TestZSetClone(t *testing.T) {
	z := NewZSet()
	z.Set("a", 1)
	c := z.Clone()
	c.Set("b", 2)
	if z.Len() != 1 {
		t.Errorf("expected original zset unaffected by clone mutation, len=%d", z.Len())
	}
}
