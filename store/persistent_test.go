package store

import (
	"testing"

	"github.com/launix-de/aikv/errs"
)

// fakeEngine is an in-memory PersistenceEngine stand-in so PersistentBackend
// tests do not touch the filesystem; it mirrors what FileEngine does but
// keeps everything in plain Go slices.
type fakeEngine struct {
	snapshot []byte
	entries  []LogEntry
}

type fakeLogWriter struct{ e *fakeEngine }

func (w *fakeLogWriter) Append(entries []LogEntry) error {
	w.e.entries = append(w.e.entries, entries...)
	return nil
}
func (w *fakeLogWriter) Close() error { return nil }

func (e *fakeEngine) ReadSnapshot() ([]byte, error)    { return e.snapshot, nil }
func (e *fakeEngine) WriteSnapshot(data []byte) error  { e.snapshot = data; e.entries = nil; return nil }
func (e *fakeEngine) OpenLog() (LogWriter, error)      { return &fakeLogWriter{e}, nil }
func (e *fakeEngine) ReplayLog() (<-chan LogEntry, LogWriter, error) {
	ch := make(chan LogEntry, len(e.entries))
	for _, entry := range e.entries {
		ch <- entry
	}
	close(ch)
	return ch, &fakeLogWriter{e}, nil
}
func (e *fakeEngine) Remove() error { e.snapshot = nil; e.entries = nil; return nil }
func (e *fakeEngine) Close() error  { return nil }

func TestPersistentBackendSurvivesReopen(t *testing.T) {
	engine := &fakeEngine{}
	pb, err := OpenPersistentBackend(4, engine)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	pb.Set(0, "k", NewStringValue([]byte("v1")), 0)
	pb.Set(0, "k2", NewStringValue([]byte("v2")), 0)
	pb.DeleteAndGet(0, "k2")

	reopened, err := OpenPersistentBackend(4, engine)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	v, ok := reopened.Get(0, "k")
	if !ok || string(v.Str) != "v1" {
		t.Fatalf("expected k=v1 to survive reopen, got %+v ok=%v", v, ok)
	}
	if _, ok := reopened.Get(0, "k2"); ok {
		t.Errorf("expected k2 to remain deleted after reopen")
	}
}

func TestPersistentBackendSnapshotTruncatesLog(t *testing.T) {
	engine := &fakeEngine{}
	pb, err := OpenPersistentBackend(1, engine)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	pb.Set(0, "a", NewStringValue([]byte("1")), 0)
	if len(engine.entries) == 0 {
		t.Fatalf("expected log entries recorded before snapshot")
	}
	pb.FlushAll()
	if len(engine.entries) != 0 {
		t.Errorf("expected snapshot to truncate the log, got %d entries", len(engine.entries))
	}
	if len(engine.snapshot) == 0 {
		t.Errorf("expected a snapshot to have been written")
	}
}

func TestPersistentBackendWriteBatchDurable(t *testing.T) {
	engine := &fakeEngine{}
	pb, err := OpenPersistentBackend(1, engine)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	err = pb.WriteBatch(0, []WriteOp{
		SetOp("x", NewStringValue([]byte("1"))),
		SetOp("y", NewStringValue([]byte("2"))),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engine.entries) != 2 {
		t.Errorf("expected 2 durable log entries, got %d", len(engine.entries))
	}
	if v, ok := pb.Get(0, "x"); !ok || string(v.Str) != "1" {
		t.Errorf("expected x=1 visible after batch")
	}
}

func TestPersistentBackendUpdatePairDurableAcrossReopen(t *testing.T) {
	engine := &fakeEngine{}
	pb, err := OpenPersistentBackend(1, engine)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	pb.Update(0, "src", false, func(cur Value, ok bool) (Value, *errs.Error) {
		return NewSetValue(map[string]struct{}{"m": {}}), nil
	})

	_, _, perr := pb.UpdatePair(0, "src", false, "dst", true, func(a Value, aOk bool, b Value, bOk bool) (Value, Value, *errs.Error) {
		delete(a.Set, "m")
		dst := map[string]struct{}{}
		if bOk {
			dst = b.Set
		}
		dst["m"] = struct{}{}
		return NewSetValue(a.Set), NewSetValue(dst), nil
	})
	if perr != nil {
		t.Fatalf("unexpected error: %v", perr)
	}

	reopened, err := OpenPersistentBackend(1, engine)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, ok := reopened.Get(0, "src"); ok {
		t.Errorf("expected emptied source deleted across reopen")
	}
	dst, ok := reopened.Get(0, "dst")
	if !ok || dst.Type != TypeSet {
		t.Fatalf("expected destination set to survive reopen")
	}
	if _, exists := dst.Set["m"]; !exists {
		t.Errorf("expected moved member to survive reopen")
	}
}
