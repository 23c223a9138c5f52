//go:build ceph

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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephConfig names the RADOS pool/prefix a CephEngine connects to.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

// CephEngine is the RADOS-backed PersistenceEngine, grounded on the
// teacher's CephStorage (storage/persistence-ceph.go): no append primitive,
// so the write-ahead log is a manifest of offset-written segments and the
// snapshot is a single whole-object overwrite.
type CephEngine struct {
	cfg    CephConfig
	prefix string

	mu     sync.Mutex
	conn   *rados.Conn
	ioctx  *rados.IOContext
	opened bool
}

func NewCephEngine(cfg CephConfig) *CephEngine {
	prefix := path.Join(strings.TrimSuffix(cfg.Prefix, "/"), "aikv")
	return &CephEngine{cfg: cfg, prefix: prefix}
}

func (s *CephEngine) ensureOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return
	}
	conn, err := rados.NewConnWithClusterAndUser(s.cfg.ClusterName, s.cfg.UserName)
	if err != nil {
		panic(err)
	}
	if s.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(s.cfg.ConfFile); err != nil {
			panic(err)
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		panic(err)
	}
	ioctx, err := conn.OpenIOContext(s.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		panic(err)
	}
	s.conn = conn
	s.ioctx = ioctx
	s.opened = true
}

func (s *CephEngine) obj(name string) string { return path.Join(s.prefix, name) }

func (s *CephEngine) ReadSnapshot() ([]byte, error) {
	s.ensureOpen()
	obj := s.obj("snapshot.json")
	stat, err := s.ioctx.Stat(obj)
	if err != nil {
		return nil, nil
	}
	data := make([]byte, stat.Size)
	n, err := s.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, nil
	}
	return data[:n], nil
}

func (s *CephEngine) WriteSnapshot(data []byte) error {
	s.ensureOpen()
	if err := s.ioctx.WriteFull(s.obj("snapshot.json"), data); err != nil {
		return err
	}
	return s.writeManifest(nil)
}

func (s *CephEngine) manifestObj() string { return s.obj("wal.manifest") }
func (s *CephEngine) segmentObj(seg uint32) string {
	return s.obj(fmt.Sprintf("wal.%08d", seg))
}

func (s *CephEngine) readManifest() ([]uint32, error) {
	stat, err := s.ioctx.Stat(s.manifestObj())
	if err != nil || stat.Size == 0 {
		return nil, fmt.Errorf("store: no manifest")
	}
	raw := make([]byte, stat.Size)
	n, err := s.ioctx.Read(s.manifestObj(), raw, 0)
	if err != nil {
		return nil, err
	}
	var segs []uint32
	if err := json.Unmarshal(raw[:n], &segs); err != nil {
		return nil, err
	}
	return segs, nil
}

func (s *CephEngine) writeManifest(segs []uint32) error {
	raw, _ := json.Marshal(segs)
	return s.ioctx.WriteFull(s.manifestObj(), raw)
}

func (s *CephEngine) OpenLog() (LogWriter, error) {
	s.ensureOpen()
	return s.openOrCreateLog()
}

func (s *CephEngine) openOrCreateLog() (*cephLogWriter, error) {
	segs, err := s.readManifest()
	var seg uint32
	if err != nil || len(segs) == 0 {
		seg = 0
		if werr := s.writeManifest([]uint32{0}); werr != nil {
			return nil, werr
		}
	} else {
		sort.Slice(segs, func(i, j int) bool { return segs[i] < segs[j] })
		seg = segs[len(segs)-1]
	}
	obj := s.segmentObj(seg)
	st, err := s.ioctx.Stat(obj)
	var offset uint64
	if err != nil {
		if terr := s.ioctx.Truncate(obj, 0); terr != nil {
			return nil, terr
		}
	} else {
		offset = uint64(st.Size)
	}
	return &cephLogWriter{engine: s, seg: seg, offset: offset}, nil
}

func (s *CephEngine) ReplayLog() (<-chan LogEntry, LogWriter, error) {
	s.ensureOpen()
	ch := make(chan LogEntry, 64)
	go func() {
		defer close(ch)
		segs, err := s.readManifest()
		if err != nil {
			return
		}
		sort.Slice(segs, func(i, j int) bool { return segs[i] < segs[j] })
		for _, seg := range segs {
			obj := s.segmentObj(seg)
			stat, err := s.ioctx.Stat(obj)
			if err != nil || stat.Size == 0 {
				continue
			}
			data := make([]byte, stat.Size)
			n, err := s.ioctx.Read(obj, data, 0)
			if err != nil || n == 0 {
				continue
			}
			decodeCephSegment(data[:n], ch)
		}
	}()
	writer, err := s.openOrCreateLog()
	if err != nil {
		return nil, nil, err
	}
	return ch, writer, nil
}

func (s *CephEngine) Remove() error {
	s.ensureOpen()
	segs, _ := s.readManifest()
	for _, seg := range segs {
		_ = s.ioctx.Delete(s.segmentObj(seg))
	}
	_ = s.ioctx.Delete(s.manifestObj())
	_ = s.ioctx.Delete(s.obj("snapshot.json"))
	return nil
}

func (s *CephEngine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		s.ioctx.Destroy()
		s.conn.Shutdown()
	}
	return nil
}

type cephLogWriter struct {
	engine *CephEngine
	mu     sync.Mutex
	seg    uint32
	offset uint64
}

func (w *cephLogWriter) Append(entries []LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var frame bytes.Buffer
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		_ = binary.Write(&frame, binary.LittleEndian, uint32(len(payload)))
		frame.Write(payload)
	}

	const maxSeg = 64 * 1024 * 1024
	if w.offset+uint64(frame.Len()) > maxSeg {
		next := w.seg + 1
		if err := w.engine.ioctx.Truncate(w.engine.segmentObj(next), 0); err != nil {
			return err
		}
		segs, _ := w.engine.readManifest()
		segs = append(segs, next)
		if err := w.engine.writeManifest(segs); err != nil {
			return err
		}
		w.seg = next
		w.offset = 0
	}

	op := rados.CreateWriteOp()
	defer op.Release()
	op.Write(frame.Bytes(), w.offset)
	if err := op.Operate(w.engine.ioctx, w.engine.segmentObj(w.seg), rados.OperationNoFlag); err != nil {
		return err
	}
	w.offset += uint64(frame.Len())
	return nil
}

func (w *cephLogWriter) Close() error { return nil }

func decodeCephSegment(data []byte, out chan<- LogEntry) {
	i := 0
	for i+4 <= len(data) {
		n := int(binary.LittleEndian.Uint32(data[i : i+4]))
		i += 4
		if n <= 0 || i+n > len(data) {
			return
		}
		var e LogEntry
		if json.Unmarshal(data[i:i+n], &e) == nil {
			out <- e
		}
		i += n
	}
}
