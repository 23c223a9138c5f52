package store

import (
	"testing"

	"github.com/launix-de/aikv/errs"
)

func TestMemoryGetSetBasic(t *testing.T) {
	m := NewMemoryBackend(16)
	m.Set(0, "foo", NewStringValue([]byte("bar")), 0)

	v, ok := m.Get(0, "foo")
	if !ok {
		t.Fatalf("expected key to be present")
	}
	if string(v.Str) != "bar" {
		t.Errorf("expected bar, got %q", v.Str)
	}

	if _, ok := m.Get(1, "foo"); ok {
		t.Errorf("expected foo to be absent in db 1")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemoryBackend(1)
	now := int64(1000)
	m.clock = func() int64 { return now }

	m.Set(0, "k", NewStringValue([]byte("v")), now+500)
	if _, ok := m.Get(0, "k"); !ok {
		t.Fatalf("expected key present before expiry")
	}

	now = 1600
	if _, ok := m.Get(0, "k"); ok {
		t.Fatalf("expected key expired")
	}
	if m.DBSize(0) != 0 {
		t.Errorf("expected lazy eviction to remove the key, dbsize=%d", m.DBSize(0))
	}
}

func TestMemoryUpdateCollectionEmptinessRule(t *testing.T) {
	m := NewMemoryBackend(1)

	_, err := m.Update(0, "myset", false, func(cur Value, ok bool) (Value, *errs.Error) {
		s := make(map[string]struct{})
		if ok {
			s = cur.Set
		}
		s["a"] = struct{}{}
		return NewSetValue(s), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DBSize(0) != 1 {
		t.Fatalf("expected key to exist after insert")
	}

	_, err = m.Update(0, "myset", false, func(cur Value, ok bool) (Value, *errs.Error) {
		delete(cur.Set, "a")
		return NewSetValue(cur.Set), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DBSize(0) != 0 {
		t.Errorf("expected key removed once its set became empty, dbsize=%d", m.DBSize(0))
	}
}

func TestMemoryUpdateWrongTypeAbortsWrite(t *testing.T) {
	m := NewMemoryBackend(1)
	m.Set(0, "k", NewStringValue([]byte("v")), 0)

	_, err := m.Update(0, "k", true, func(cur Value, ok bool) (Value, *errs.Error) {
		if cur.Type != TypeString {
			return Value{}, errs.WrongType()
		}
		return Value{}, errs.WrongType()
	})
	if err == nil {
		t.Fatalf("expected wrong-type error")
	}
	v, ok := m.Get(0, "k")
	if !ok || string(v.Str) != "v" {
		t.Errorf("expected original value preserved after aborted update")
	}
}

func TestMemoryWriteBatchAtomicLastWriteWins(t *testing.T) {
	m := NewMemoryBackend(1)
	err := m.WriteBatch(0, []WriteOp{
		SetOp("a", NewStringValue([]byte("1"))),
		SetOp("a", NewStringValue([]byte("2"))),
		SetOp("b", NewStringValue([]byte("x"))),
		DeleteOp("b"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := m.Get(0, "a")
	if !ok || string(v.Str) != "2" {
		t.Errorf("expected last write to win for key a, got %+v ok=%v", v, ok)
	}
	if _, ok := m.Get(0, "b"); ok {
		t.Errorf("expected b deleted by later op in the same batch")
	}
}

func TestMemoryTTLMillisStates(t *testing.T) {
	m := NewMemoryBackend(1)
	now := int64(1000)
	m.clock = func() int64 { return now }

	if ttl := m.TTLMillis(0, "missing"); ttl != -2 {
		t.Errorf("expected -2 for missing key, got %d", ttl)
	}
	m.Set(0, "k", NewStringValue([]byte("v")), 0)
	if ttl := m.TTLMillis(0, "k"); ttl != -1 {
		t.Errorf("expected -1 for key without expiry, got %d", ttl)
	}
	m.SetExpireAt(0, "k", now+250)
	if ttl := m.TTLMillis(0, "k"); ttl != 250 {
		t.Errorf("expected 250ms remaining, got %d", ttl)
	}
	m.Persist(0, "k")
	if ttl := m.TTLMillis(0, "k"); ttl != -1 {
		t.Errorf("expected -1 after PERSIST, got %d", ttl)
	}
}

func TestMemorySwapAndMove(t *testing.T) {
	m := NewMemoryBackend(2)
	m.Set(0, "a", NewStringValue([]byte("db0")), 0)
	m.Set(1, "b", NewStringValue([]byte("db1")), 0)

	m.Swap(0, 1)
	if _, ok := m.Get(0, "b"); !ok {
		t.Errorf("expected b to be in db0 after swap")
	}
	if _, ok := m.Get(1, "a"); !ok {
		t.Errorf("expected a to be in db1 after swap")
	}

	ok, err := m.Move(1, 0, "a")
	if err != nil || !ok {
		t.Fatalf("expected move to succeed, ok=%v err=%v", ok, err)
	}
	if _, ok := m.Get(1, "a"); ok {
		t.Errorf("expected a removed from source db")
	}
	if _, ok := m.Get(0, "a"); !ok {
		t.Errorf("expected a present in destination db")
	}

	ok, err = m.Move(0, 0, "a")
	if err == nil || ok {
		t.Errorf("expected error moving a key to its own database")
	}
}

func TestMemoryUpdatePairMovesAtomically(t *testing.T) {
	m := NewMemoryBackend(1)
	m.Update(0, "src", false, func(cur Value, ok bool) (Value, *errs.Error) {
		return NewSetValue(map[string]struct{}{"m": {}}), nil
	})

	_, _, err := m.UpdatePair(0, "src", false, "dst", true, func(a Value, aOk bool, b Value, bOk bool) (Value, Value, *errs.Error) {
		if !aOk || a.Type != TypeSet {
			t.Fatalf("expected source set present")
		}
		delete(a.Set, "m")
		dst := map[string]struct{}{}
		if bOk {
			dst = b.Set
		}
		dst["m"] = struct{}{}
		return NewSetValue(a.Set), NewSetValue(dst), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.Get(0, "src"); ok {
		t.Errorf("expected emptied source set deleted")
	}
	v, ok := m.Get(0, "dst")
	if !ok || v.Type != TypeSet {
		t.Fatalf("expected destination set present")
	}
	if _, exists := v.Set["m"]; !exists {
		t.Errorf("expected moved member present in destination")
	}
}

func TestMemoryUpdatePairWrongTypeLeavesBothKeysUntouched(t *testing.T) {
	m := NewMemoryBackend(1)
	m.Update(0, "src", false, func(cur Value, ok bool) (Value, *errs.Error) {
		return NewSetValue(map[string]struct{}{"m": {}}), nil
	})
	m.Set(0, "dst", NewStringValue([]byte("not-a-set")), 0)

	_, _, err := m.UpdatePair(0, "src", false, "dst", true, func(a Value, aOk bool, b Value, bOk bool) (Value, Value, *errs.Error) {
		// mirrors cmdSMove/cmdLMove: the destination type is validated
		// before anything is popped from the source
		if b.Type != TypeSet {
			return Value{}, Value{}, errs.WrongType()
		}
		delete(a.Set, "m")
		return NewSetValue(a.Set), b, nil
	})
	if err == nil {
		t.Fatalf("expected wrong-type error")
	}

	v, ok := m.Get(0, "src")
	if !ok || v.Type != TypeSet {
		t.Fatalf("expected source untouched after aborted pair update")
	}
	if _, exists := v.Set["m"]; !exists {
		t.Errorf("expected member to remain in source after aborted pair update")
	}
	dst, ok := m.Get(0, "dst")
	if !ok || string(dst.Str) != "not-a-set" {
		t.Errorf("expected destination untouched after aborted pair update")
	}
}

func TestMemorySweepEvictsExpiredSamples(t *testing.T) {
	m := NewMemoryBackend(1)
	now := int64(1000)
	m.clock = func() int64 { return now }
	m.Set(0, "expired1", NewStringValue([]byte("x")), now-1)
	m.Set(0, "expired2", NewStringValue([]byte("x")), now-1)
	m.Set(0, "fresh", NewStringValue([]byte("x")), 0)

	sampled, evicted := m.Sweep(0, 10)
	if sampled != 3 {
		t.Errorf("expected 3 sampled, got %d", sampled)
	}
	if evicted != 2 {
		t.Errorf("expected 2 evicted, got %d", evicted)
	}
	if m.DBSize(0) != 1 {
		t.Errorf("expected 1 key left, got %d", m.DBSize(0))
	}
}
