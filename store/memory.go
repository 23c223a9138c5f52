/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

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
	"math/rand"
	"sync"
	"time"

	"github.com/launix-de/aikv/errs"
)

// database is one namespace: a key->Entry map guarded by a single
// reader/writer lock, mirroring the teacher's per-table mutex discipline
// (storage/table.go) but scoped to a plain map instead of a column shard
// list.
type database struct {
	mu   sync.RWMutex
	data map[string]*Entry
}

func newDatabase() *database {
	return &database{data: make(map[string]*Entry)}
}

// MemoryBackend is the in-process Facade implementation: an array of
// per-database maps. WriteBatch takes the writer lock once and applies every
// operation before releasing it, so the batch is atomic with respect to any
// concurrent reader or writer of that database.
type MemoryBackend struct {
	dbs   []*database
	clock func() int64
}

// NewMemoryBackend allocates n independent, empty databases.
func NewMemoryBackend(n int) *MemoryBackend {
	dbs := make([]*database, n)
	for i := range dbs {
		dbs[i] = newDatabase()
	}
	return &MemoryBackend{dbs: dbs, clock: func() int64 { return time.Now().UnixMilli() }}
}

func (m *MemoryBackend) NumDatabases() int { return len(m.dbs) }

func (m *MemoryBackend) db(i int) *database { return m.dbs[i] }

// expired reports whether e is logically absent at time now.
func expired(e *Entry, now int64) bool {
	return e.ExpireAt != 0 && e.ExpireAt <= now
}

func (m *MemoryBackend) Get(dbIdx int, key string) (Value, bool) {
	d := m.db(dbIdx)
	now := m.clock()

	d.mu.RLock()
	e, ok := d.data[key]
	if !ok {
		d.mu.RUnlock()
		return Value{}, false
	}
	isExpired := expired(e, now)
	v := e.Value
	d.mu.RUnlock()
	if isExpired {
		// lazily evict under the write lock; re-check in case a
		// concurrent writer already replaced/removed it
		d.mu.Lock()
		if cur, ok := d.data[key]; ok && expired(cur, now) {
			delete(d.data, key)
		}
		d.mu.Unlock()
		return Value{}, false
	}
	return v, true
}

func (m *MemoryBackend) Set(dbIdx int, key string, v Value, expireAt int64) {
	d := m.db(dbIdx)
	d.mu.Lock()
	d.data[key] = &Entry{Value: v, ExpireAt: expireAt}
	d.mu.Unlock()
}

func (m *MemoryBackend) Update(dbIdx int, key string, keepExpiry bool, fn UpdateFn) (Value, *errs.Error) {
	d := m.db(dbIdx)
	now := m.clock()

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.data[key]
	if ok && expired(e, now) {
		delete(d.data, key)
		ok = false
	}
	var current Value
	var existingExpiry int64
	if ok {
		current = e.Value
		existingExpiry = e.ExpireAt
	}

	next, err := fn(current, ok)
	if err != nil {
		return Value{}, err
	}

	if next.IsEmptyCollection() {
		delete(d.data, key)
		return next, nil
	}

	expireAt := int64(0)
	if keepExpiry {
		expireAt = existingExpiry
	}
	d.data[key] = &Entry{Value: next, ExpireAt: expireAt}
	return next, nil
}

func (m *MemoryBackend) UpdatePair(dbIdx int, keyA string, keepExpiryA bool, keyB string, keepExpiryB bool, fn UpdatePairFn) (Value, Value, *errs.Error) {
	d := m.db(dbIdx)
	now := m.clock()

	d.mu.Lock()
	defer d.mu.Unlock()

	read := func(key string) (Value, bool, int64) {
		e, ok := d.data[key]
		if ok && expired(e, now) {
			delete(d.data, key)
			ok = false
		}
		if !ok {
			return Value{}, false, 0
		}
		return e.Value, true, e.ExpireAt
	}

	curA, okA, expA := read(keyA)
	curB, okB, expB := curA, okA, expA
	if keyB != keyA {
		curB, okB, expB = read(keyB)
	}

	newA, newB, err := fn(curA, okA, curB, okB)
	if err != nil {
		return Value{}, Value{}, err
	}

	write := func(key string, v Value, keepExpiry bool, existingExpiry int64) {
		if v.IsEmptyCollection() {
			delete(d.data, key)
			return
		}
		expireAt := int64(0)
		if keepExpiry {
			expireAt = existingExpiry
		}
		d.data[key] = &Entry{Value: v, ExpireAt: expireAt}
	}

	if keyA == keyB {
		// same key observed on both sides: last write wins, mirroring
		// WriteBatch's documented duplicate-key rule
		write(keyB, newB, keepExpiryB, expB)
	} else {
		write(keyA, newA, keepExpiryA, expA)
		write(keyB, newB, keepExpiryB, expB)
	}
	return newA, newB, nil
}

func (m *MemoryBackend) DeleteAndGet(dbIdx int, key string) (Value, bool) {
	d := m.db(dbIdx)
	now := m.clock()

	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.data[key]
	if !ok {
		return Value{}, false
	}
	delete(d.data, key)
	if expired(e, now) {
		return Value{}, false
	}
	return e.Value, true
}

func (m *MemoryBackend) WriteBatch(dbIdx int, ops []WriteOp) error {
	d := m.db(dbIdx)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			d.data[op.Key] = &Entry{Value: op.Value, ExpireAt: op.ExpireAt}
		case OpDelete:
			delete(d.data, op.Key)
		}
	}
	return nil
}

func (m *MemoryBackend) SetExpireAt(dbIdx int, key string, atMs int64) bool {
	d := m.db(dbIdx)
	now := m.clock()
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.data[key]
	if !ok || expired(e, now) {
		delete(d.data, key)
		return false
	}
	if atMs <= now {
		delete(d.data, key)
		return true
	}
	e.ExpireAt = atMs
	return true
}

func (m *MemoryBackend) Persist(dbIdx int, key string) bool {
	d := m.db(dbIdx)
	now := m.clock()
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.data[key]
	if !ok || expired(e, now) {
		return false
	}
	if e.ExpireAt == 0 {
		return false
	}
	e.ExpireAt = 0
	return true
}

func (m *MemoryBackend) TTLMillis(dbIdx int, key string) int64 {
	d := m.db(dbIdx)
	now := m.clock()
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.data[key]
	if !ok || expired(e, now) {
		return -2
	}
	if e.ExpireAt == 0 {
		return -1
	}
	return e.ExpireAt - now
}

func (m *MemoryBackend) FlushDB(dbIdx int) {
	d := m.db(dbIdx)
	d.mu.Lock()
	d.data = make(map[string]*Entry)
	d.mu.Unlock()
}

func (m *MemoryBackend) FlushAll() {
	for i := range m.dbs {
		m.FlushDB(i)
	}
}

func (m *MemoryBackend) Swap(dbA, dbB int) {
	if dbA == dbB {
		return
	}
	// consistent lock order by index to avoid deadlocks against a
	// concurrent swap of the same pair in the opposite order
	lo, hi := dbA, dbB
	if lo > hi {
		lo, hi = hi, lo
	}
	m.db(lo).mu.Lock()
	defer m.db(lo).mu.Unlock()
	m.db(hi).mu.Lock()
	defer m.db(hi).mu.Unlock()
	m.dbs[dbA].data, m.dbs[dbB].data = m.dbs[dbB].data, m.dbs[dbA].data
}

func (m *MemoryBackend) Move(srcDB, dstDB int, key string) (bool, *errs.Error) {
	if srcDB == dstDB {
		return false, errs.InvalidArgument("source and destination objects are the same")
	}
	src := m.db(srcDB)
	dst := m.db(dstDB)
	now := m.clock()

	// lock in a fixed order (by db index) to avoid deadlock against a
	// concurrent MOVE in the opposite direction
	first, second := src, dst
	if srcDB > dstDB {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first != second {
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	e, ok := src.data[key]
	if !ok || expired(e, now) {
		return false, nil
	}
	if _, exists := dst.data[key]; exists {
		return false, nil
	}
	dst.data[key] = e
	delete(src.data, key)
	return true, nil
}

func (m *MemoryBackend) Keys(dbIdx int) []string {
	d := m.db(dbIdx)
	now := m.clock()
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.data))
	for k, e := range d.data {
		if !expired(e, now) {
			out = append(out, k)
		}
	}
	return out
}

func (m *MemoryBackend) DBSize(dbIdx int) int {
	d := m.db(dbIdx)
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.data)
}

func (m *MemoryBackend) Random(dbIdx int) (string, bool) {
	keys := m.Keys(dbIdx)
	if len(keys) == 0 {
		return "", false
	}
	return keys[rand.Intn(len(keys))], true
}

func (m *MemoryBackend) Close() error { return nil }

// Sweep is used by the background expiration sweeper (C12): it samples up
// to n keys from dbIdx and evicts those past expiry, returning how many of
// the sampled keys were expired so the sweeper can decide whether to loop
// again within the same tick.
func (m *MemoryBackend) Sweep(dbIdx int, n int) (sampled, evicted int) {
	d := m.db(dbIdx)
	now := m.clock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.data) == 0 {
		return 0, 0
	}
	for k, e := range d.data {
		if sampled >= n {
			break
		}
		sampled++
		if expired(e, now) {
			delete(d.data, k)
			evicted++
		}
	}
	return
}

// SweepKeys behaves like Sweep but also names the evicted keys, so a
// durable backend (PersistentBackend) can append a matching delete to its
// write-ahead log for each one.
func (m *MemoryBackend) SweepKeys(dbIdx int, n int) (sampled int, evictedKeys []string) {
	d := m.db(dbIdx)
	now := m.clock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.data) == 0 {
		return 0, nil
	}
	for k, e := range d.data {
		if sampled >= n {
			break
		}
		sampled++
		if expired(e, now) {
			delete(d.data, k)
			evictedKeys = append(evictedKeys, k)
		}
	}
	return
}
