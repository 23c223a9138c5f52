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

package script

import (
	"sort"
	"sync"

	"github.com/launix-de/aikv/errs"
	"github.com/launix-de/aikv/store"
)

// overlayKey addresses one (database, key) pair the overlay has touched.
type overlayKey struct {
	db  int
	key string
}

type overlayEntry struct {
	value    store.Value
	expireAt int64
	deleted  bool
}

// overlay implements store.Facade over an underlying facade, buffering every
// write in memory instead of applying it. Reads consult the buffer first
// (read-your-own-writes), falling back to the underlying store - exactly
// the semantics SPEC_FULL §4.6 describes for script transactions. A script
// that returns normally calls commit(), which replays the buffer through
// the underlying store's WriteBatch, one call per touched database; a
// script that throws is simply discarded by never calling commit.
type overlay struct {
	under  store.Facade
	now    func() int64
	mu     sync.Mutex
	writes map[overlayKey]overlayEntry
}

func newOverlay(under store.Facade, now func() int64) *overlay {
	return &overlay{under: under, now: now, writes: make(map[overlayKey]overlayEntry)}
}

func (o *overlay) Get(db int, key string) (store.Value, bool) {
	o.mu.Lock()
	e, ok := o.writes[overlayKey{db, key}]
	o.mu.Unlock()
	if ok {
		if e.deleted {
			return store.Value{}, false
		}
		return e.value, true
	}
	return o.under.Get(db, key)
}

func (o *overlay) Set(db int, key string, v store.Value, expireAt int64) {
	o.mu.Lock()
	o.writes[overlayKey{db, key}] = overlayEntry{value: v, expireAt: expireAt}
	o.mu.Unlock()
}

// existingExpiryFor returns the TTL a write to key should inherit when
// keepExpiry is requested: the buffered expiry if this key has already been
// touched by the overlay, else the underlying store's current TTL.
func (o *overlay) existingExpiryFor(db int, key string, ok bool) int64 {
	if !ok {
		return 0
	}
	o.mu.Lock()
	e, buffered := o.writes[overlayKey{db, key}]
	o.mu.Unlock()
	if buffered {
		return e.expireAt
	}
	if rel := o.under.TTLMillis(db, key); rel > 0 {
		return o.now() + rel
	}
	return 0
}

func (o *overlay) Update(db int, key string, keepExpiry bool, fn store.UpdateFn) (store.Value, *errs.Error) {
	current, ok := o.Get(db, key)
	existingExpiry := o.existingExpiryFor(db, key, ok)

	next, err := fn(current, ok)
	if err != nil {
		return store.Value{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if next.IsEmptyCollection() {
		o.writes[overlayKey{db, key}] = overlayEntry{deleted: true}
		return next, nil
	}
	expireAt := int64(0)
	if keepExpiry {
		expireAt = existingExpiry
	}
	o.writes[overlayKey{db, key}] = overlayEntry{value: next, expireAt: expireAt}
	return next, nil
}

// UpdatePair mirrors Update across two keys: fn observes both current
// values together (keyB's also set to keyA's when the two keys coincide, so
// a same-key cross-collection move sees a single consistent snapshot) and
// both replacements are buffered together, under the overlay's own lock, so
// a script's cross-collection move is all-or-nothing against the overlay
// the same way MemoryBackend.UpdatePair is all-or-nothing against the live
// store.
func (o *overlay) UpdatePair(db int, keyA string, keepExpiryA bool, keyB string, keepExpiryB bool, fn store.UpdatePairFn) (store.Value, store.Value, *errs.Error) {
	a, aOk := o.Get(db, keyA)
	b, bOk := a, aOk
	if keyB != keyA {
		b, bOk = o.Get(db, keyB)
	}

	expA := o.existingExpiryFor(db, keyA, aOk)
	expB := expA
	if keyB != keyA {
		expB = o.existingExpiryFor(db, keyB, bOk)
	}

	newA, newB, err := fn(a, aOk, b, bOk)
	if err != nil {
		return store.Value{}, store.Value{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	write := func(key string, v store.Value, keepExpiry bool, existingExpiry int64) {
		if v.IsEmptyCollection() {
			o.writes[overlayKey{db, key}] = overlayEntry{deleted: true}
			return
		}
		expireAt := int64(0)
		if keepExpiry {
			expireAt = existingExpiry
		}
		o.writes[overlayKey{db, key}] = overlayEntry{value: v, expireAt: expireAt}
	}
	if keyA == keyB {
		write(keyB, newB, keepExpiryB, expB)
	} else {
		write(keyA, newA, keepExpiryA, expA)
		write(keyB, newB, keepExpiryB, expB)
	}
	return newA, newB, nil
}

func (o *overlay) DeleteAndGet(db int, key string) (store.Value, bool) {
	v, ok := o.Get(db, key)
	o.mu.Lock()
	o.writes[overlayKey{db, key}] = overlayEntry{deleted: true}
	o.mu.Unlock()
	return v, ok
}

func (o *overlay) WriteBatch(db int, ops []store.WriteOp) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case store.OpSet:
			o.writes[overlayKey{db, op.Key}] = overlayEntry{value: op.Value, expireAt: op.ExpireAt}
		case store.OpDelete:
			o.writes[overlayKey{db, op.Key}] = overlayEntry{deleted: true}
		}
	}
	return nil
}

func (o *overlay) SetExpireAt(db int, key string, atMs int64) bool {
	v, ok := o.Get(db, key)
	if !ok {
		return false
	}
	o.mu.Lock()
	o.writes[overlayKey{db, key}] = overlayEntry{value: v, expireAt: atMs}
	o.mu.Unlock()
	return true
}

func (o *overlay) Persist(db int, key string) bool {
	v, ok := o.Get(db, key)
	if !ok {
		return false
	}
	o.mu.Lock()
	o.writes[overlayKey{db, key}] = overlayEntry{value: v, expireAt: 0}
	o.mu.Unlock()
	return true
}

func (o *overlay) TTLMillis(db int, key string) int64 {
	o.mu.Lock()
	e, ok := o.writes[overlayKey{db, key}]
	o.mu.Unlock()
	if ok {
		if e.deleted {
			return -2
		}
		if e.expireAt == 0 {
			return -1
		}
		return e.expireAt - o.now()
	}
	return o.under.TTLMillis(db, key)
}

// The remaining Facade methods are server-administration operations, which
// the script whitelist never exposes to a call()/pcall() invocation; they
// pass straight through to the underlying facade rather than being made
// overlay-aware, since no script in this language can reach them.
func (o *overlay) FlushDB(db int)          { o.under.FlushDB(db) }
func (o *overlay) FlushAll()               { o.under.FlushAll() }
func (o *overlay) Swap(a, b int)           { o.under.Swap(a, b) }
func (o *overlay) Keys(db int) []string    { return o.under.Keys(db) }
func (o *overlay) DBSize(db int) int       { return o.under.DBSize(db) }
func (o *overlay) NumDatabases() int       { return o.under.NumDatabases() }
func (o *overlay) Close() error            { return nil }
func (o *overlay) Move(src, dst int, key string) (bool, *errs.Error) {
	return o.under.Move(src, dst, key)
}
func (o *overlay) Random(db int) (string, bool) { return o.under.Random(db) }

// commit replays every buffered write through the underlying facade, one
// WriteBatch call per touched database, in ascending database order (the
// same fixed lock-ordering discipline store.MemoryBackend.Swap/Move use to
// avoid deadlocking against a concurrent cross-database operation).
func (o *overlay) commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	byDB := map[int][]store.WriteOp{}
	for k, e := range o.writes {
		if e.deleted {
			byDB[k.db] = append(byDB[k.db], store.DeleteOp(k.key))
		} else {
			byDB[k.db] = append(byDB[k.db], store.SetOpTTL(k.key, e.value, e.expireAt))
		}
	}
	dbs := make([]int, 0, len(byDB))
	for db := range byDB {
		dbs = append(dbs, db)
	}
	sort.Ints(dbs)
	for _, db := range dbs {
		if err := o.under.WriteBatch(db, byDB[db]); err != nil {
			return err
		}
	}
	return nil
}
