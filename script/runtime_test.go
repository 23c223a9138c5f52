package script

import (
	"testing"
	"time"

	"github.com/launix-de/aikv/command"
	"github.com/launix-de/aikv/store"
)

func newTestContext() *command.Context {
	return &command.Context{
		Store: store.NewMemoryBackend(16),
		State: &command.ConnState{DB: 0},
		Now:   func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func TestEvalCommitsOnNormalReturn(t *testing.T) {
	rt := NewRuntime()
	ctx := newTestContext()
	src := `redis.call('SET', KEYS(1), ARGV(1))`
	_, err := rt.Eval(ctx, src, 1, [][]byte{[]byte("k"), []byte("v")})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	v, ok := ctx.Store.Get(0, "k")
	if !ok {
		t.Fatalf("expected key k to be committed")
	}
	b, _ := v.AsString()
	if string(b) != "v" {
		t.Fatalf("expected v, got %q", b)
	}
}

func TestEvalThrowDiscardsOverlay(t *testing.T) {
	rt := NewRuntime()
	ctx := newTestContext()
	src := `redis.call('SET','a','1'); redis.call('SET','b','2'); error('x')`
	_, err := rt.Eval(ctx, src, 0, nil)
	if err == nil {
		t.Fatalf("expected script error")
	}
	if _, ok := ctx.Store.Get(0, "a"); ok {
		t.Fatalf("key a must not be committed after a thrown error")
	}
	if _, ok := ctx.Store.Get(0, "b"); ok {
		t.Fatalf("key b must not be committed after a thrown error")
	}
}

func TestPcallSwallowsErrorAndContinues(t *testing.T) {
	rt := NewRuntime()
	ctx := newTestContext()
	src := `redis.pcall('NOSUCHCOMMAND'); redis.call('SET','a','1')`
	_, err := rt.Eval(ctx, src, 0, nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if _, ok := ctx.Store.Get(0, "a"); !ok {
		t.Fatalf("expected a to be committed once pcall swallowed the error")
	}
}

func TestDisallowedCommandIsRejected(t *testing.T) {
	rt := NewRuntime()
	ctx := newTestContext()
	if _, err := rt.Eval(ctx, `redis.call('FLUSHALL')`, 0, nil); err == nil {
		t.Fatalf("expected FLUSHALL to be rejected by the script whitelist")
	}
}

func TestLoadIsIdempotentAndEvalShaRuns(t *testing.T) {
	rt := NewRuntime()
	ctx := newTestContext()
	src := `redis.call('SET', KEYS(1), ARGV(1))`
	sha1, err := rt.Load(src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sha2, err := rt.Load(src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sha1 != sha2 {
		t.Fatalf("expected identical hash for identical source")
	}
	if _, err := rt.EvalSha(ctx, sha1, 1, [][]byte{[]byte("k"), []byte("v")}); err != nil {
		t.Fatalf("evalsha: %v", err)
	}
	if _, ok := ctx.Store.Get(0, "k"); !ok {
		t.Fatalf("expected key committed via evalsha")
	}
}

func TestEvalShaUnknownHashErrors(t *testing.T) {
	rt := NewRuntime()
	ctx := newTestContext()
	if _, err := rt.EvalSha(ctx, "0000000000000000000000000000000000000000", 0, nil); err == nil {
		t.Fatalf("expected NOSCRIPT error for unknown hash")
	}
}
