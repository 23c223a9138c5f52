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
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ulikunitz/xz"
)

// S3Config names the object-storage bucket and optional S3-compatible
// endpoint, mirroring the teacher's S3Factory (storage/persistence-s3.go)
// field set.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

// S3Engine is the object-storage PersistenceEngine: the snapshot lives at a
// single xz-compressed object (snapshots compact infrequently and benefit
// from xz's higher ratio over lz4), the write-ahead log is a manifest of
// append-only segments that are read-modify-written on every flush since S3
// objects cannot be appended in place — the same segment-and-manifest
// scheme the teacher uses for its S3 column logs.
type S3Engine struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func NewS3Engine(cfg S3Config) *S3Engine {
	return &S3Engine{cfg: cfg}
}

func (s *S3Engine) ensureOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return
	}
	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		panic(fmt.Sprintf("store: failed to load AWS config: %v", err))
	}
	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	s.opened = true
}

func (s *S3Engine) key(name string) string {
	if s.cfg.Prefix == "" {
		return name
	}
	return s.cfg.Prefix + "/" + name
}

func (s *S3Engine) get(key string) ([]byte, error) {
	resp, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *S3Engine) put(key string, data []byte) error {
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *S3Engine) ReadSnapshot() ([]byte, error) {
	s.ensureOpen()
	raw, err := s.get(s.key("snapshot.xz"))
	if err != nil {
		return nil, nil
	}
	xr, err := xz.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(xr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (s *S3Engine) WriteSnapshot(data []byte) error {
	s.ensureOpen()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		return err
	}
	if _, err := xw.Write(data); err != nil {
		return err
	}
	if err := xw.Close(); err != nil {
		return err
	}
	if err := s.put(s.key("snapshot.xz"), buf.Bytes()); err != nil {
		return err
	}
	return s.writeManifest(nil)
}

func (s *S3Engine) manifestKey() string { return s.key("wal.manifest") }
func (s *S3Engine) segmentKey(seg uint32) string {
	return s.key(fmt.Sprintf("wal.%08d", seg))
}

func (s *S3Engine) readManifest() ([]uint32, error) {
	raw, err := s.get(s.manifestKey())
	if err != nil {
		return nil, err
	}
	var segs []uint32
	if err := json.Unmarshal(raw, &segs); err != nil {
		return nil, err
	}
	return segs, nil
}

func (s *S3Engine) writeManifest(segs []uint32) error {
	raw, _ := json.Marshal(segs)
	return s.put(s.manifestKey(), raw)
}

func (s *S3Engine) OpenLog() (LogWriter, error) {
	s.ensureOpen()
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
	return &s3LogWriter{engine: s, seg: seg}, nil
}

func (s *S3Engine) ReplayLog() (<-chan LogEntry, LogWriter, error) {
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
			raw, err := s.get(s.segmentKey(seg))
			if err != nil || len(raw) == 0 {
				continue
			}
			decodeS3Segment(raw, ch)
		}
	}()
	writer, err := s.OpenLog()
	if err != nil {
		return nil, nil, err
	}
	return ch, writer, nil
}

func (s *S3Engine) Remove() error {
	s.ensureOpen()
	segs, _ := s.readManifest()
	for _, seg := range segs {
		_, _ = s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.Bucket), Key: aws.String(s.segmentKey(seg)),
		})
	}
	_, _ = s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket), Key: aws.String(s.manifestKey()),
	})
	_, _ = s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket), Key: aws.String(s.key("snapshot.xz")),
	})
	return nil
}

func (s *S3Engine) Close() error { return nil }

// s3LogWriter frames the appended entries and read-modify-writes the current
// segment on every Append, since S3 objects are immutable once written.
type s3LogWriter struct {
	engine *S3Engine
	mu     sync.Mutex
	seg    uint32
}

func (w *s3LogWriter) Append(entries []LogEntry) error {
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

	key := w.engine.segmentKey(w.seg)
	existing, _ := w.engine.get(key)

	const maxSegBytes = 32 * 1024 * 1024
	if len(existing)+frame.Len() > maxSegBytes {
		segs, _ := w.engine.readManifest()
		next := w.seg + 1
		segs = append(segs, next)
		if err := w.engine.writeManifest(segs); err != nil {
			return err
		}
		w.seg = next
		existing = nil
		key = w.engine.segmentKey(w.seg)
	}

	return w.engine.put(key, append(existing, frame.Bytes()...))
}

func (w *s3LogWriter) Close() error { return nil }

func decodeS3Segment(data []byte, out chan<- LogEntry) {
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
