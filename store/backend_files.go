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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// FileEngine is the local-disk PersistenceEngine: a schema.json-style
// snapshot file plus a line-oriented append log, adapted from the teacher's
// FileStorage (storage/persistence-files.go) onto one log per whole keyspace
// instead of one per shard, with each log line lz4-compressed independently
// so a half-written tail segment never corrupts the lines before it.
type FileEngine struct {
	dir string
}

// NewFileEngine opens (creating if necessary) a local directory as the
// persistence root.
func NewFileEngine(dir string) (*FileEngine, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return &FileEngine{dir: dir}, nil
}

func (f *FileEngine) snapshotPath() string { return filepath.Join(f.dir, "snapshot.json") }
func (f *FileEngine) snapshotOldPath() string { return filepath.Join(f.dir, "snapshot.json.old") }
func (f *FileEngine) logPath() string      { return filepath.Join(f.dir, "wal.log") }

func (f *FileEngine) ReadSnapshot() ([]byte, error) {
	data, err := os.ReadFile(f.snapshotPath())
	if err != nil || len(data) == 0 {
		// rescue the previous snapshot if the latest write was interrupted,
		// mirroring the teacher's schema.json/schema.json.old rescue pair
		return os.ReadFile(f.snapshotOldPath())
	}
	return data, nil
}

func (f *FileEngine) WriteSnapshot(data []byte) error {
	if stat, err := os.Stat(f.snapshotPath()); err == nil && stat.Size() > 0 {
		_ = os.Rename(f.snapshotPath(), f.snapshotOldPath())
	}
	tmp := f.snapshotPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.snapshotPath()); err != nil {
		return err
	}
	// the snapshot now subsumes everything in the log
	return os.Truncate(f.logPath(), 0)
}

func (f *FileEngine) OpenLog() (LogWriter, error) {
	file, err := os.OpenFile(f.logPath(), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, err
	}
	return &fileLogWriter{f: file}, nil
}

func (f *FileEngine) ReplayLog() (<-chan LogEntry, LogWriter, error) {
	file, err := os.OpenFile(f.logPath(), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan LogEntry, 64)
	reader, err := os.Open(f.logPath())
	if err != nil {
		close(ch)
		return ch, &fileLogWriter{f: file}, nil
	}
	go func() {
		defer close(ch)
		defer reader.Close()
		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			raw, err := decompressLine(line)
			if err != nil {
				continue
			}
			var e LogEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				continue
			}
			ch <- e
		}
	}()
	return ch, &fileLogWriter{f: file}, nil
}

func (f *FileEngine) Remove() error {
	if err := os.Remove(f.logPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(f.snapshotPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	_ = os.Remove(f.snapshotOldPath())
	return nil
}

func (f *FileEngine) Close() error { return nil }

type fileLogWriter struct {
	f *os.File
}

func (w *fileLogWriter) Append(entries []LogEntry) error {
	var out bytes.Buffer
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		compressed, err := compressLine(raw)
		if err != nil {
			return err
		}
		out.Write(compressed)
		out.WriteByte('\n')
	}
	if _, err := w.f.Write(out.Bytes()); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *fileLogWriter) Close() error { return w.f.Close() }

// compressLine lz4-compresses one log record and hex-encodes it so the
// result stays newline-free and bufio.Scanner's line framing keeps working.
func compressLine(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	enc := make([]byte, len(buf.Bytes())*2)
	const hextable = "0123456789abcdef"
	for i, b := range buf.Bytes() {
		enc[i*2] = hextable[b>>4]
		enc[i*2+1] = hextable[b&0xf]
	}
	return enc, nil
}

func decompressLine(line []byte) ([]byte, error) {
	if len(line)%2 != 0 {
		return nil, fmt.Errorf("store: malformed log line")
	}
	raw := make([]byte, len(line)/2)
	for i := range raw {
		hi, err := hexNibble(line[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(line[i*2+1])
		if err != nil {
			return nil, err
		}
		raw[i] = hi<<4 | lo
	}
	zr := lz4.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	if _, err := out.ReadFrom(zr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("store: malformed hex digit %q", c)
	}
}
