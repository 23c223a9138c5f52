/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package store

import (
	"encoding/json"
	"sync"

	"github.com/launix-de/aikv/errs"
)

// PersistenceEngine is the interface a swappable persistent storage device
// must implement, adapted from the teacher's PersistenceEngine
// (storage/persistence.go) onto a key/value write-ahead log plus a periodic
// full snapshot instead of per-column files.
type PersistenceEngine interface {
	// ReadSnapshot returns the most recently written full-state snapshot,
	// or nil if none exists yet.
	ReadSnapshot() ([]byte, error)
	// WriteSnapshot durably replaces the snapshot.
	WriteSnapshot(data []byte) error
	// OpenLog opens the write-ahead log for appending new entries.
	OpenLog() (LogWriter, error)
	// ReplayLog streams every entry written since the last snapshot, in
	// order, then closes the channel; it also returns a LogWriter
	// positioned to append further entries.
	ReplayLog() (<-chan LogEntry, LogWriter, error)
	// Remove deletes all persisted state. PersistentBackend does not call
	// it; FLUSHALL writes an empty snapshot instead.
	Remove() error
	// Close releases engine resources.
	Close() error
}

// LogWriter appends write-ahead log entries. Append must make one durable
// commit per call (one fsync for the file engine, one PUT for an object
// store) so WriteBatch's "one log commit, one fsync" contract holds.
type LogWriter interface {
	Append(entries []LogEntry) error
	Close() error
}

// LogEntry is one write-ahead log record: a database index plus the
// WriteOp that was applied to it.
type LogEntry struct {
	DB       int    `json:"db"`
	Kind     OpKind `json:"kind"`
	Key      string `json:"key"`
	Value    []byte `json:"value,omitempty"`
	ExpireAt int64  `json:"expire_at,omitempty"`
}

// MarshalLogEntry prepares a LogEntry's wire fields from its typed Op.
func MarshalLogEntry(db int, op WriteOp) (LogEntry, error) {
	e := LogEntry{DB: db, Kind: op.Kind, Key: op.Key, ExpireAt: op.ExpireAt}
	if op.Kind == OpSet {
		raw, err := MarshalValue(op.Value)
		if err != nil {
			return LogEntry{}, err
		}
		e.Value = raw
	}
	return e, nil
}

// ToOp reconstructs the typed WriteOp from a LogEntry's wire fields.
func (e LogEntry) ToOp() (WriteOp, error) {
	if e.Kind == OpDelete {
		return DeleteOp(e.Key), nil
	}
	v, err := UnmarshalValue(e.Value)
	if err != nil {
		return WriteOp{}, err
	}
	return SetOpTTL(e.Key, v, e.ExpireAt), nil
}

// snapshotWire is the full-state snapshot format: one entry per
// (db, key) pair across every database.
type snapshotWire struct {
	Databases int              `json:"databases"`
	Entries   []snapshotRecord `json:"entries"`
}

type snapshotRecord struct {
	DB       int    `json:"db"`
	Key      string `json:"key"`
	Value    []byte `json:"value"`
	ExpireAt int64  `json:"expire_at,omitempty"`
}

// PersistentBackend layers a PersistenceEngine underneath an in-memory
// index: every read is served from RAM (as fast as MemoryBackend). Set and
// WriteBatch append to the engine's log (durability) before applying to the
// in-memory index (visibility); the other writes apply in memory first and
// then log the resulting value or deletion — mirroring the teacher's append-log
// plus in-memory rebuild split (storage/persistence.go's OpenLog/ReplayLog
// pair, storage/database.go's LoadDatabases).
type PersistentBackend struct {
	mem    *MemoryBackend
	engine PersistenceEngine

	logMu sync.Mutex
	log   LogWriter
}

// OpenPersistentBackend replays the engine's snapshot and log into a fresh
// in-memory index and returns a Facade backed by durable storage.
func OpenPersistentBackend(n int, engine PersistenceEngine) (*PersistentBackend, error) {
	mem := NewMemoryBackend(n)

	if snap, err := engine.ReadSnapshot(); err == nil && len(snap) > 0 {
		var sw snapshotWire
		if err := json.Unmarshal(snap, &sw); err != nil {
			return nil, err
		}
		for _, rec := range sw.Entries {
			v, err := UnmarshalValue(rec.Value)
			if err != nil {
				return nil, err
			}
			if rec.DB >= 0 && rec.DB < n {
				mem.Set(rec.DB, rec.Key, v, rec.ExpireAt)
			}
		}
	}

	entries, writer, err := engine.ReplayLog()
	if err != nil {
		return nil, err
	}
	for e := range entries {
		op, err := e.ToOp()
		if err != nil {
			continue
		}
		if e.DB < 0 || e.DB >= n {
			continue
		}
		mem.WriteBatch(e.DB, []WriteOp{op})
	}

	return &PersistentBackend{mem: mem, engine: engine, log: writer}, nil
}

func (p *PersistentBackend) NumDatabases() int { return p.mem.NumDatabases() }

func (p *PersistentBackend) Get(db int, key string) (Value, bool) { return p.mem.Get(db, key) }

func (p *PersistentBackend) Set(db int, key string, v Value, expireAt int64) {
	p.appendLog(db, SetOpTTL(key, v, expireAt))
	p.mem.Set(db, key, v, expireAt)
}

func (p *PersistentBackend) Update(db int, key string, keepExpiry bool, fn UpdateFn) (Value, *errs.Error) {
	// compute the mutation in memory first so the log only ever records
	// successful, already-validated writes
	var committed *WriteOp
	result, err := p.mem.Update(db, key, keepExpiry, func(current Value, ok bool) (Value, *errs.Error) {
		next, err := fn(current, ok)
		if err == nil {
			op := SetOp(key, next)
			committed = &op
		}
		return next, err
	})
	if err != nil {
		return Value{}, err
	}
	if committed != nil {
		if result.IsEmptyCollection() {
			p.appendLogRaw(db, DeleteOp(key))
		} else {
			p.appendLogRaw(db, SetOp(key, result))
		}
	}
	return result, nil
}

// UpdatePair computes the mutation in memory first, same as Update, so the
// log only ever records an already-validated pair of writes - then appends
// both resulting ops as one batched log commit, so the move is durable
// atomically too, not just visible atomically in the in-memory index.
func (p *PersistentBackend) UpdatePair(db int, keyA string, keepExpiryA bool, keyB string, keepExpiryB bool, fn UpdatePairFn) (Value, Value, *errs.Error) {
	newA, newB, err := p.mem.UpdatePair(db, keyA, keepExpiryA, keyB, keepExpiryB, fn)
	if err != nil {
		return Value{}, Value{}, err
	}

	opFor := func(key string, v Value) WriteOp {
		if v.IsEmptyCollection() {
			return DeleteOp(key)
		}
		return SetOp(key, v)
	}
	ops := []WriteOp{opFor(keyA, newA)}
	if keyB != keyA {
		ops = append(ops, opFor(keyB, newB))
	}

	entries := make([]LogEntry, 0, len(ops))
	for _, op := range ops {
		e, merr := MarshalLogEntry(db, op)
		if merr != nil {
			continue
		}
		entries = append(entries, e)
	}
	p.logMu.Lock()
	_ = p.log.Append(entries)
	p.logMu.Unlock()

	return newA, newB, nil
}

func (p *PersistentBackend) DeleteAndGet(db int, key string) (Value, bool) {
	v, ok := p.mem.DeleteAndGet(db, key)
	if ok {
		p.appendLog(db, DeleteOp(key))
	}
	return v, ok
}

func (p *PersistentBackend) WriteBatch(db int, ops []WriteOp) error {
	entries := make([]LogEntry, 0, len(ops))
	for _, op := range ops {
		e, err := MarshalLogEntry(db, op)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	p.logMu.Lock()
	err := p.log.Append(entries)
	p.logMu.Unlock()
	if err != nil {
		return err
	}
	return p.mem.WriteBatch(db, ops)
}

func (p *PersistentBackend) appendLog(db int, op WriteOp) {
	p.appendLogRaw(db, op)
}

func (p *PersistentBackend) appendLogRaw(db int, op WriteOp) {
	e, err := MarshalLogEntry(db, op)
	if err != nil {
		return
	}
	p.logMu.Lock()
	defer p.logMu.Unlock()
	_ = p.log.Append([]LogEntry{e})
}

func (p *PersistentBackend) SetExpireAt(db int, key string, atMs int64) bool {
	ok := p.mem.SetExpireAt(db, key, atMs)
	if ok {
		if v, present := p.mem.Get(db, key); present {
			p.appendLog(db, SetOpTTL(key, v, atMs))
		} else {
			p.appendLog(db, DeleteOp(key))
		}
	}
	return ok
}

func (p *PersistentBackend) Persist(db int, key string) bool {
	ok := p.mem.Persist(db, key)
	if ok {
		if v, present := p.mem.Get(db, key); present {
			p.appendLog(db, SetOp(key, v))
		}
	}
	return ok
}

func (p *PersistentBackend) TTLMillis(db int, key string) int64 { return p.mem.TTLMillis(db, key) }

func (p *PersistentBackend) FlushDB(db int) {
	p.mem.FlushDB(db)
	p.snapshotNow()
}

func (p *PersistentBackend) FlushAll() {
	p.mem.FlushAll()
	p.snapshotNow()
}

func (p *PersistentBackend) Swap(dbA, dbB int) {
	p.mem.Swap(dbA, dbB)
	p.snapshotNow()
}

func (p *PersistentBackend) Move(srcDB, dstDB int, key string) (bool, *errs.Error) {
	ok, err := p.mem.Move(srcDB, dstDB, key)
	if err != nil || !ok {
		return ok, err
	}
	p.appendLog(srcDB, DeleteOp(key))
	if v, present := p.mem.Get(dstDB, key); present {
		p.appendLog(dstDB, SetOp(key, v))
	}
	return true, nil
}

func (p *PersistentBackend) Keys(db int) []string { return p.mem.Keys(db) }
func (p *PersistentBackend) DBSize(db int) int    { return p.mem.DBSize(db) }
func (p *PersistentBackend) Random(db int) (string, bool) { return p.mem.Random(db) }

// Sweep implements the same sampling contract as MemoryBackend.Sweep, and
// additionally appends a log entry per evicted key so a restart's
// ReplayLog sees the same database the sweeper produced, not a stale
// pre-eviction copy.
func (p *PersistentBackend) Sweep(db int, n int) (sampled, evicted int) {
	sampled, keys := p.mem.SweepKeys(db, n)
	for _, k := range keys {
		p.appendLog(db, DeleteOp(k))
	}
	return sampled, len(keys)
}

// snapshotNow writes a full-state snapshot and truncates the log, the way
// the teacher's schema.json + shard rebuild pair periodically compacts
// append-only state (storage/database.go's save/rebuild).
func (p *PersistentBackend) snapshotNow() {
	sw := snapshotWire{Databases: p.mem.NumDatabases()}
	for dbIdx := 0; dbIdx < p.mem.NumDatabases(); dbIdx++ {
		d := p.mem.db(dbIdx)
		d.mu.RLock()
		for k, e := range d.data {
			raw, err := MarshalValue(e.Value)
			if err != nil {
				continue
			}
			sw.Entries = append(sw.Entries, snapshotRecord{DB: dbIdx, Key: k, Value: raw, ExpireAt: e.ExpireAt})
		}
		d.mu.RUnlock()
	}
	data, err := json.Marshal(sw)
	if err != nil {
		return
	}
	_ = p.engine.WriteSnapshot(data)
}

func (p *PersistentBackend) Close() error {
	p.snapshotNow()
	p.logMu.Lock()
	_ = p.log.Close()
	p.logMu.Unlock()
	return p.engine.Close()
}
