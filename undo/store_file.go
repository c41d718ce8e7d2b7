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
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	lz4 "github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/xid"
)

// FileStore persists undo segments under Config.Dir, one file per
// segment, each a sequential append-only log of binary-encoded records —
// grounded on storage/persistence-files.go's FileStorage and its
// sequential OpenLog/ReplayLog model (the teacher never seeks within a
// log segment either, only replays it start to finish).
//
// The currently-open segment is written through an lz4 writer (fast,
// low latency for the hot append path). Once rotated, a segment is
// sealed: FileStore re-encodes it with xz when Config.ColdCompression is
// set (smaller, slower — appropriate for a segment that will only ever
// be read during a rare old-snapshot lookup or a rollback).
type FileStore struct {
	cfg StoreConfig
	max int64

	mu       sync.Mutex
	segment  uuid.UUID
	offset   uint64 // next record index in the open segment
	file     *os.File
	lzw      *lz4.Writer
	sealed   map[uuid.UUID]bool
	discards map[uuid.UUID]bool

	watcher *segmentWatcher
}

// NewFileStore opens (creating if needed) cfg.Dir and starts the first
// segment.
func NewFileStore(cfg StoreConfig) (*FileStore, error) {
	max, err := cfg.segmentSizeBytes()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("undo: creating store dir: %w", err)
	}
	s := &FileStore{
		cfg:      cfg,
		max:      max,
		sealed:   make(map[uuid.UUID]bool),
		discards: make(map[uuid.UUID]bool),
	}
	if err := s.openSegment(uuid.New()); err != nil {
		return nil, err
	}
	w, err := newSegmentWatcher(cfg.Dir, s.onSegmentRemoved)
	if err != nil {
		// Watching is best-effort: a platform without inotify/kqueue
		// support must not prevent the store from working, only skip
		// detecting externally-deleted segments.
		w = nil
	}
	s.watcher = w
	return s, nil
}

func (s *FileStore) segmentPath(id uuid.UUID) string {
	return filepath.Join(s.cfg.Dir, id.String()+".lz4")
}

func (s *FileStore) sealedPath(id uuid.UUID) string {
	if s.cfg.ColdCompression {
		return filepath.Join(s.cfg.Dir, id.String()+".xz")
	}
	return s.segmentPath(id)
}

func (s *FileStore) openSegment(id uuid.UUID) error {
	f, err := os.Create(s.segmentPath(id))
	if err != nil {
		return fmt.Errorf("undo: opening segment %s: %w", id, err)
	}
	s.segment = id
	s.offset = 0
	s.file = f
	s.lzw = lz4.NewWriter(f)
	return nil
}

func encodeRecord(rec Record, owner xid.XID) []byte {
	var b []byte
	put64 := func(v uint64) { b = binary.BigEndian.AppendUint64(b, v) }
	put32 := func(v uint32) { b = binary.BigEndian.AppendUint32(b, v) }
	put16 := func(v uint16) { b = binary.BigEndian.AppendUint16(b, v) }

	put64(uint64(owner))
	b = append(b, byte(rec.Type))
	put64(uint64(rec.PrevXid))
	put32(uint32(rec.PrevCid))
	segBytes, _ := rec.BlkPrev.Segment.MarshalBinary()
	b = append(b, segBytes...)
	put64(rec.BlkPrev.Offset)
	put32(rec.Ctid.Block)
	put16(rec.Ctid.Offset)
	put32(rec.Self.Block)
	put16(rec.Self.Offset)
	put32(uint32(rec.Slot))
	put32(uint32(len(rec.Payload)))
	b = append(b, rec.Payload...)
	return b
}

func decodeRecord(r io.Reader) (Record, xid.XID, error) {
	var hdr [8 + 1 + 8 + 4 + 16 + 8 + 4 + 2 + 4 + 2 + 4 + 4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Record{}, xid.Invalid, err
	}
	p := hdr[:]
	owner := xid.XID(binary.BigEndian.Uint64(p))
	p = p[8:]
	typ := RecordType(p[0])
	p = p[1:]
	prevXid := xid.XID(binary.BigEndian.Uint64(p))
	p = p[8:]
	prevCid := xid.CID(binary.BigEndian.Uint32(p))
	p = p[4:]
	var seg uuid.UUID
	copy(seg[:], p[:16])
	p = p[16:]
	blkOffset := binary.BigEndian.Uint64(p)
	p = p[8:]
	ctidBlock := binary.BigEndian.Uint32(p)
	p = p[4:]
	ctidOffset := binary.BigEndian.Uint16(p)
	p = p[2:]
	selfBlock := binary.BigEndian.Uint32(p)
	p = p[4:]
	selfOffset := binary.BigEndian.Uint16(p)
	p = p[2:]
	slot := int32(binary.BigEndian.Uint32(p))
	p = p[4:]
	payloadLen := binary.BigEndian.Uint32(p)

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Record{}, xid.Invalid, err
		}
	}
	return Record{
		Type:    typ,
		PrevXid: prevXid,
		PrevCid: prevCid,
		BlkPrev: Ptr{Segment: seg, Offset: blkOffset},
		Ctid:    tid.TID{Block: ctidBlock, Offset: ctidOffset},
		Self:    tid.TID{Block: selfBlock, Offset: selfOffset},
		Slot:    slot,
		Payload: payload,
	}, owner, nil
}

func (s *FileStore) Append(rec Record, ownerXid xid.XID) (Ptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := encodeRecord(rec, ownerXid)
	var framed []byte
	framed = binary.BigEndian.AppendUint32(framed, uint32(len(buf)))
	framed = append(framed, buf...)
	if _, err := s.lzw.Write(framed); err != nil {
		return Ptr{}, fmt.Errorf("undo: writing segment %s: %w", s.segment, err)
	}
	if err := s.lzw.Flush(); err != nil {
		return Ptr{}, fmt.Errorf("undo: flushing segment %s: %w", s.segment, err)
	}

	ptr := Ptr{Segment: s.segment, Offset: s.offset}
	s.offset++

	if stat, err := s.file.Stat(); err == nil && stat.Size() >= s.max {
		if err := s.rotateLocked(); err != nil {
			return ptr, err
		}
	}
	return ptr, nil
}

// rotateLocked seals the current segment and opens a fresh one. Caller
// must hold s.mu.
func (s *FileStore) rotateLocked() error {
	sealedID := s.segment
	s.lzw.Close()
	s.file.Close()
	if s.cfg.ColdCompression {
		if err := recompressToXz(s.segmentPath(sealedID), s.sealedPath(sealedID)); err != nil {
			return err
		}
		os.Remove(s.segmentPath(sealedID))
	}
	s.sealed[sealedID] = true
	return s.openSegment(uuid.New())
}

// recompressToXz decompresses an lz4 segment and re-writes it xz-compressed.
func recompressToXz(lz4Path, xzPath string) error {
	in, err := os.Open(lz4Path)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(xzPath)
	if err != nil {
		return err
	}
	defer out.Close()
	zw, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, lz4.NewReader(in)); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (s *FileStore) Read(ptr Ptr) (Record, xid.XID, error) {
	s.mu.Lock()
	discarded := s.discards[ptr.Segment]
	isOpen := ptr.Segment == s.segment
	sealedPath := s.sealedPath(ptr.Segment)
	s.mu.Unlock()

	if discarded {
		return Record{}, xid.Invalid, ErrDiscarded
	}

	var r io.Reader
	if isOpen {
		f, err := os.Open(s.segmentPath(ptr.Segment))
		if err != nil {
			return Record{}, xid.Invalid, ErrNotFound
		}
		defer f.Close()
		r = lz4.NewReader(f)
	} else {
		f, err := os.Open(sealedPath)
		if err != nil {
			return Record{}, xid.Invalid, ErrDiscarded
		}
		defer f.Close()
		if s.cfg.ColdCompression {
			zr, err := xz.NewReader(bufio.NewReader(f))
			if err != nil {
				return Record{}, xid.Invalid, fmt.Errorf("undo: opening sealed segment %s: %w", ptr.Segment, err)
			}
			r = zr
		} else {
			r = lz4.NewReader(f)
		}
	}

	for i := uint64(0); ; i++ {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Record{}, xid.Invalid, ErrNotFound
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return Record{}, xid.Invalid, ErrNotFound
		}
		if i == ptr.Offset {
			rec, owner, err := decodeRecord(bytes.NewReader(body))
			return rec, owner, err
		}
	}
}

// DiscardBefore marks every sealed segment as discarded and removes its
// file; the open segment is kept. horizon is not compared against the
// owner xids of the records a sealed segment holds.
func (s *FileStore) DiscardBefore(horizon xid.XID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sealed {
		if s.discards[id] {
			continue
		}
		s.discards[id] = true
		os.Remove(s.sealedPath(id))
	}
	return nil
}

// onSegmentRemoved is invoked by the fsnotify watcher when a sealed
// segment file disappears out-of-process (e.g. an operator or a
// separate vacuum process truncating storage directly); it folds that
// external fact into the same discard bookkeeping DiscardBefore uses so
// Read reports ErrDiscarded instead of ErrNotFound. A removal while the
// segment's sealed file still exists (rotateLocked deleting the .lz4
// copy after writing the .xz one) is ignored.
func (s *FileStore) onSegmentRemoved(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.sealedPath(id)); err == nil {
		return
	}
	s.discards[id] = true
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.lzw.Close()
	return s.file.Close()
}
