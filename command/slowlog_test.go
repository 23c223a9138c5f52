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

package command

import "testing"

type fakeSlowLog struct {
	entries []SlowLogEntry
	reset   bool
}

func (f *fakeSlowLog) Recent(n int) []SlowLogEntry {
	if n <= 0 || n > len(f.entries) {
		return f.entries
	}
	return f.entries[:n]
}
func (f *fakeSlowLog) Len() int   { return len(f.entries) }
func (f *fakeSlowLog) Reset()     { f.reset = true; f.entries = nil }

func TestSlowLogGetLenReset(t *testing.T) {
	ctx := newTestContext()
	fake := &fakeSlowLog{entries: []SlowLogEntry{
		{ID: 1, UnixSeconds: 1700000000, DurationMicro: 5000, Command: "SET"},
	}}
	ctx.SlowLog = fake

	f, err := cmdSlowLog(ctx, bargs("LEN"))
	if err != nil || f.Int != 1 {
		t.Fatalf("expected len 1, got %+v err=%v", f, err)
	}

	f, err = cmdSlowLog(ctx, bargs("GET"))
	if err != nil || len(f.Items) != 1 {
		t.Fatalf("expected 1 entry, got %+v err=%v", f, err)
	}

	_, err = cmdSlowLog(ctx, bargs("RESET"))
	if err != nil || !fake.reset {
		t.Fatalf("expected reset to be called, err=%v", err)
	}
}

func TestSlowLogNilReader(t *testing.T) {
	ctx := newTestContext()
	f, err := cmdSlowLog(ctx, bargs("LEN"))
	if err != nil || f.Int != 0 {
		t.Fatalf("expected 0 with nil slowlog, got %+v err=%v", f, err)
	}
}
