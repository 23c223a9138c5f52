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

import "github.com/launix-de/aikv/errs"

// Entry is one key's stored value plus its optional absolute expiration
// instant in epoch milliseconds; ExpireAt == 0 means no expiry.
type Entry struct {
	Value    Value
	ExpireAt int64
}

// OpKind selects the kind of write carried by a WriteOp.
type OpKind byte

const (
	OpSet OpKind = iota
	OpDelete
)

// WriteOp is one operation inside an atomic WriteBatch. Duplicate keys
// within a batch use last-write-wins, applied in slice order.
type WriteOp struct {
	Kind     OpKind
	Key      string
	Value    Value
	ExpireAt int64 // only meaningful for OpSet
}

func SetOp(key string, v Value) WriteOp      { return WriteOp{Kind: OpSet, Key: key, Value: v} }
func SetOpTTL(key string, v Value, at int64) WriteOp {
	return WriteOp{Kind: OpSet, Key: key, Value: v, ExpireAt: at}
}
func DeleteOp(key string) WriteOp { return WriteOp{Kind: OpDelete, Key: key} }

// UpdateFn is the closure passed to Facade.Update: it receives the current
// value (ok=false if absent) and returns the new value to store, or a
// typed error to abort the mutation entirely (nothing is written).
type UpdateFn func(current Value, ok bool) (Value, *errs.Error)

// UpdatePairFn is the closure passed to Facade.UpdatePair: it observes the
// current values of both keys (aOk/bOk false if absent or expired) and
// returns their replacements, or a typed error that aborts the mutation
// entirely so neither key is written.
type UpdatePairFn func(a Value, aOk bool, b Value, bOk bool) (newA, newB Value, err *errs.Error)

// Facade is the uniform API over swappable backends (§4.2): every datatype
// handler goes through this interface, never touching a raw lock or a
// backend-specific type.
type Facade interface {
	// Get returns the value at (db, key), or ok=false if missing or
	// logically expired. Observing expiry here evicts the key lazily.
	Get(db int, key string) (Value, bool)

	// Set performs an unconditional put, replacing any existing value
	// (of any type). expireAt == 0 means no expiry.
	Set(db int, key string, v Value, expireAt int64)

	// Update performs an atomic read-modify-write under one exclusive
	// lock on the entry. fn observes the owned current value (a zero
	// Value with ok=false if the key is absent or expired) and returns
	// the replacement. If fn returns an error, nothing is mutated. When
	// fn's returned value is an empty collection, the key is deleted
	// instead of stored (collection-emptiness rule), whatever keepExpiry
	// says. Otherwise keepExpiry tells Update to preserve the existing TTL
	// on the write.
	Update(db int, key string, keepExpiry bool, fn UpdateFn) (Value, *errs.Error)

	// UpdatePair performs an atomic read-modify-write across two keys of
	// the same db under one exclusive lock region: fn observes both
	// current values together and returns both replacements, which become
	// visible together or not at all. This is what a cross-collection move
	// (LMOVE, SMOVE) uses so a destination type mismatch is caught before
	// anything is popped from the source, and so there is never an
	// observable instant where the moved element belongs to neither
	// collection. If keyA == keyB, fn still observes the same current
	// value as both a and b; newB is the one that gets written (last
	// write wins, matching WriteBatch's duplicate-key rule).
	UpdatePair(db int, keyA string, keepExpiryA bool, keyB string, keepExpiryB bool, fn UpdatePairFn) (newA, newB Value, err *errs.Error)

	// DeleteAndGet removes (db, key) and returns the value that was
	// there, or ok=false if it was already absent/expired.
	DeleteAndGet(db int, key string) (Value, bool)

	// WriteBatch applies every op atomically: either all become visible
	// or (on a persistent backend, if durability fails) none do.
	WriteBatch(db int, ops []WriteOp) error

	// TTL API.
	SetExpireAt(db int, key string, atMs int64) bool
	Persist(db int, key string) bool
	TTLMillis(db int, key string) int64

	// Admin API.
	FlushDB(db int)
	FlushAll()
	Swap(dbA, dbB int)
	Move(srcDB, dstDB int, key string) (bool, *errs.Error)
	Keys(db int) []string
	DBSize(db int) int
	Random(db int) (string, bool)
	NumDatabases() int

	// Close releases any backend resources (file handles, network
	// clients) on shutdown.
	Close() error
}

// Sweeper is implemented by every backend in this package (MemoryBackend,
// PersistentBackend) and consumed by the expire package's background
// sampler (C12): it samples up to n keys from db and evicts those past
// expiry, reporting how many of the n samples were expired so the caller
// can decide whether to loop again within the same tick (§4.6:
// "if the observed expired ratio exceeds a threshold, loops again within
// the same tick"). It is a separate interface rather than part of Facade
// because an observability.InstrumentedFacade decorator only needs to
// forward it, not re-implement it — a type assertion at the sweeper's
// construction site finds it under the decorator's embedded Facade.
type Sweeper interface {
	Sweep(db int, n int) (sampled, evicted int)
}
