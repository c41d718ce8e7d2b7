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
package undo

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/houjibofa/zheap/xid"
)

// S3Config names the bucket an S3Store persists segments into, mirroring
// storage/persistence-s3.go's S3Factory field-for-field (this package
// only ever needs one schema's worth of storage, so there is no separate
// per-database factory/instance split).
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

// S3Store is a Store backed by S3 (or an S3-compatible endpoint such as
// MinIO or Ceph RGW). Because S3 objects cannot be appended to, each
// segment is buffered locally and the whole object rewritten on every
// Append — the same read-modify-write trade the teacher's S3Logfile
// makes in storage/persistence-s3.go, carried over unchanged because
// undo segments are written far less often than memcp's row logs.
type S3Store struct {
	cfg S3Config
	max int64

	mu      sync.Mutex
	client  *s3.Client
	segment uuid.UUID
	records [][]byte // framed, encoded records of the open segment, in order
	size    int64
	manifest []uuid.UUID
	discards map[uuid.UUID]bool
}

// NewS3Store connects (lazily, on first use) to the configured bucket
// and starts a fresh segment.
func NewS3Store(cfg S3Config, maxSegmentBytes int64) (*S3Store, error) {
	s := &S3Store{
		cfg:      cfg,
		max:      maxSegmentBytes,
		segment:  uuid.New(),
		discards: make(map[uuid.UUID]bool),
	}
	s.manifest = []uuid.UUID{s.segment}
	return s, nil
}

func (s *S3Store) ensureClient(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("undo: loading AWS config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	s.client = s3.NewFromConfig(cfg, s3Opts...)
	return nil
}

func (s *S3Store) key(segment uuid.UUID) string {
	pfx := strings.TrimSuffix(s.cfg.Prefix, "/")
	if pfx == "" {
		return segment.String() + ".seg"
	}
	return pfx + "/" + segment.String() + ".seg"
}

func (s *S3Store) manifestKey() string {
	pfx := strings.TrimSuffix(s.cfg.Prefix, "/")
	if pfx == "" {
		return "manifest.json"
	}
	return pfx + "/manifest.json"
}

func (s *S3Store) Append(rec Record, ownerXid xid.XID) (Ptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	if err := s.ensureClient(ctx); err != nil {
		return Ptr{}, err
	}

	buf := encodeRecord(rec, ownerXid)
	framed := binary.BigEndian.AppendUint32(nil, uint32(len(buf)))
	framed = append(framed, buf...)

	ptr := Ptr{Segment: s.segment, Offset: uint64(len(s.records))}
	s.records = append(s.records, framed)
	s.size += int64(len(framed))

	if err := s.flushSegmentLocked(); err != nil {
		return Ptr{}, err
	}

	if s.size >= s.max {
		if err := s.rotateLocked(); err != nil {
			return ptr, err
		}
	}
	return ptr, nil
}

func (s *S3Store) flushSegmentLocked() error {
	var body bytes.Buffer
	for _, r := range s.records {
		body.Write(r)
	}
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(s.segment)),
		Body:   bytes.NewReader(body.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("undo: writing segment %s: %w", s.segment, err)
	}
	return s.writeManifestLocked()
}

func (s *S3Store) writeManifestLocked() error {
	ids := make([]string, len(s.manifest))
	for i, id := range s.manifest {
		ids[i] = id.String()
	}
	raw, _ := json.Marshal(ids)
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.manifestKey()),
		Body:   bytes.NewReader(raw),
	})
	return err
}

func (s *S3Store) rotateLocked() error {
	s.segment = uuid.New()
	s.records = nil
	s.size = 0
	s.manifest = append(s.manifest, s.segment)
	return s.writeManifestLocked()
}

func (s *S3Store) Read(ptr Ptr) (Record, xid.XID, error) {
	s.mu.Lock()
	if s.discards[ptr.Segment] {
		s.mu.Unlock()
		return Record{}, xid.Invalid, ErrDiscarded
	}
	if ptr.Segment == s.segment {
		records := s.records
		s.mu.Unlock()
		return readFramedAt(records, ptr.Offset)
	}
	s.mu.Unlock()

	ctx := context.Background()
	if err := s.ensureClient(ctx); err != nil {
		return Record{}, xid.Invalid, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(ptr.Segment)),
	})
	if err != nil {
		return Record{}, xid.Invalid, ErrDiscarded
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Record{}, xid.Invalid, ErrNotFound
	}
	records, err := splitFramed(data)
	if err != nil {
		return Record{}, xid.Invalid, ErrNotFound
	}
	return readFramedAt(records, ptr.Offset)
}

func splitFramed(data []byte) ([][]byte, error) {
	var out [][]byte
	i := 0
	for i < len(data) {
		if i+4 > len(data) {
			return nil, fmt.Errorf("undo: truncated segment")
		}
		n := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if i+n > len(data) {
			return nil, fmt.Errorf("undo: truncated segment")
		}
		out = append(out, data[i-4:i+n])
		i += n
	}
	return out, nil
}

func readFramedAt(framed [][]byte, offset uint64) (Record, xid.XID, error) {
	if offset >= uint64(len(framed)) {
		return Record{}, xid.Invalid, ErrNotFound
	}
	body := framed[offset][4:]
	rec, owner, err := decodeRecord(bytes.NewReader(body))
	if err != nil {
		return Record{}, xid.Invalid, ErrNotFound
	}
	return rec, owner, nil
}

// DiscardBefore removes every sealed (non-open) segment object, matching
// FileStore's all-or-nothing per-segment truncation policy.
func (s *S3Store) DiscardBefore(horizon xid.XID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()
	if err := s.ensureClient(ctx); err != nil {
		return err
	}
	kept := s.manifest[:0:0]
	for _, id := range s.manifest {
		if id == s.segment || s.discards[id] {
			kept = append(kept, id)
			continue
		}
		s.discards[id] = true
		_, _ = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(s.key(id)),
		})
		kept = append(kept, id)
	}
	s.manifest = kept
	return s.writeManifestLocked()
}

func (s *S3Store) Close() error {
	return nil
}
