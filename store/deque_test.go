package store

import (
	"bytes"
	"testing"
)

func TestDequePushPopOrder(t *testing.T) {
	d := NewDeque()
	d.PushBack([]byte("b"))
	d.PushBack([]byte("c"))
	d.PushFront([]byte("a"))

	if got := d.ToSlice(); len(got) != 3 || string(got[0]) != "a" || string(got[2]) != "c" {
		t.Fatalf("expected [a b c], got %v", got)
	}

	v, ok := d.PopFront()
	if !ok || string(v) != "a" {
		t.Errorf("expected PopFront to return a")
	}
	v, ok = d.PopBack()
	if !ok || string(v) != "c" {
		t.Errorf("expected PopBack to return c")
	}
	if d.Len() != 1 {
		t.Errorf("expected len 1, got %d", d.Len())
	}
}

func TestDequeGrowsAcrossWraparound(t *testing.T) {
	d := NewDeque()
	for i := 0; i < 20; i++ {
		d.PushBack([]byte{byte(i)})
	}
	for i := 0; i < 10; i++ {
		d.PopFront()
	}
	for i := 20; i < 30; i++ {
		d.PushBack([]byte{byte(i)})
	}
	if d.Len() != 20 {
		t.Fatalf("expected 20 elements, got %d", d.Len())
	}
	for i := 0; i < 20; i++ {
		want := byte(i + 10)
		got := d.At(i)
		if len(got) != 1 || got[0] != want {
			t.Errorf("index %d: expected %d, got %v", i, want, got)
		}
	}
}

func TestDequeInsertAndRemoveAt(t *testing.T) {
	d := NewDeque()
	for _, s := range []string{"a", "b", "d", "e"} {
		d.PushBack([]byte(s))
	}
	d.InsertAt(2, []byte("c"))
	want := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	got := d.ToSlice()
	if len(got) != len(want) {
		t.Fatalf("expected %d elements, got %d", len(want), len(got))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	d.RemoveAt(2)
	got = d.ToSlice()
	if len(got) != 4 || string(got[2]) != "d" {
		t.Errorf("expected c removed, got %v", got)
	}
}

func TestDequeCloneIsIndependent(t *testing.T) {
	d := NewDeque()
	d.PushBack([]byte("a"))
	c := d.Clone()
	c.PushBack([]byte("b"))
	if d.Len() != 1 {
		t.Errorf("expected original deque unaffected by clone mutation, len=%d", d.Len())
	}
}
