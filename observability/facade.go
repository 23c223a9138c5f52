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

package observability

import "github.com/launix-de/aikv/store"

// InstrumentedFacade wraps a store.Facade to count keyspace hits/misses on
// Get, the one call site every read command funnels through. Every other
// method is forwarded unchanged - embedding the inner Facade means adding a
// method to the interface later only requires overriding the ones that need
// instrumentation, not every method on this type.
type InstrumentedFacade struct {
	store.Facade
	metrics *Metrics
}

// Instrument returns a Facade that records keyspace hit/miss counters on m
// around every Get, then delegates to inner.
func Instrument(inner store.Facade, m *Metrics) store.Facade {
	return &InstrumentedFacade{Facade: inner, metrics: m}
}

func (f *InstrumentedFacade) Get(db int, key string) (store.Value, bool) {
	v, ok := f.Facade.Get(db, key)
	if ok {
		f.metrics.recordKeyspaceHit()
	} else {
		f.metrics.recordKeyspaceMiss()
	}
	return v, ok
}

// Sweep forwards to the inner backend's store.Sweeper implementation.
// Embedding store.Facade only promotes Facade's own method set, so this
// explicit forwarder is what lets the expire package's sweeper type-assert
// an *InstrumentedFacade to store.Sweeper the same way it would the raw
// backend.
func (f *InstrumentedFacade) Sweep(db int, n int) (sampled, evicted int) {
	if s, ok := f.Facade.(store.Sweeper); ok {
		return s.Sweep(db, n)
	}
	return 0, 0
}
