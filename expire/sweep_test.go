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

package expire

import (
	"context"
	"testing"
	"time"

	"github.com/launix-de/aikv/store"
)

func TestTickEvictsExpiredKeysAcrossDatabases(t *testing.T) {
	mem := store.NewMemoryBackend(2)
	expiredAt := time.Now().Add(-time.Hour).UnixMilli()

	for i := 0; i < 30; i++ {
		mem.Set(0, keyName(i), store.NewStringValue([]byte("v")), expiredAt)
	}
	mem.Set(1, "fresh", store.NewStringValue([]byte("v")), 0)

	s := New(mem, 2, Config{SampleSize: 30, Threshold: 0.25, MaxLoopsPerTick: 4}, nil)
	s.tick()

	if got := mem.DBSize(0); got != 0 {
		t.Fatalf("expected db0 fully swept, got %d keys remaining", got)
	}
	if got := mem.DBSize(1); got != 1 {
		t.Fatalf("expected db1's fresh key to survive, got %d keys", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	mem := store.NewMemoryBackend(1)
	s := New(mem, 1, Config{Interval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after context cancellation")
	}
}

func keyName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i%len(letters)]) + string(rune('0'+i/len(letters)))
}
