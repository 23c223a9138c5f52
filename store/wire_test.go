package store

import "testing"

func TestMarshalUnmarshalValueRoundTrip(t *testing.T) {
	cases := []Value{
		NewStringValue([]byte("hello")),
		NewHashValue(map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")}),
		NewSetValue(map[string]struct{}{"a": {}, "b": {}}),
		NewJSONValue(map[string]interface{}{"x": float64(1), "y": []interface{}{"a", "b"}}),
	}

	for _, v := range cases {
		raw, err := MarshalValue(v)
		if err != nil {
			t.Fatalf("marshal failed for type %v: %v", v.Type, err)
		}
		got, err := UnmarshalValue(raw)
		if err != nil {
			t.Fatalf("unmarshal failed for type %v: %v", v.Type, err)
		}
		if got.Type != v.Type {
			t.Errorf("expected type %v, got %v", v.Type, got.Type)
		}
	}
}

func TestMarshalUnmarshalList(t *testing.T) {
	d := NewDeque()
	d.PushBack([]byte("a"))
	d.PushBack([]byte("b"))
	v := NewListValue(d)

	raw, err := MarshalValue(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got, err := UnmarshalValue(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	list, perr := got.AsList()
	if perr != nil {
		t.Fatalf("unexpected wrong-type error: %v", perr)
	}
	if list.Len() != 2 || string(list.At(0)) != "a" || string(list.At(1)) != "b" {
		t.Errorf("expected [a b], got %v", list.ToSlice())
	}
}

func TestMarshalUnmarshalZSet(t *testing.T) {
	z := NewZSet()
	z.Set("a", 1.5)
	z.Set("b", 2.5)
	v := NewZSetValue(z)

	raw, err := MarshalValue(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got, err := UnmarshalValue(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	zs, perr := got.AsZSet()
	if perr != nil {
		t.Fatalf("unexpected wrong-type error: %v", perr)
	}
	score, ok := zs.Score("a")
	if !ok || score != 1.5 {
		t.Errorf("expected a=1.5, got %v ok=%v", score, ok)
	}
}
