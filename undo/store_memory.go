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
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/houjibofa/zheap/xid"
)

type memoryEntry struct {
	ptr   Ptr
	rec   Record
	owner xid.XID
}

// MemoryStore is the default, in-process Store: tests and the REPL demo
// use it. Records are indexed by an ordered github.com/google/btree
// tree keyed on Ptr, grounded on storage/index.go's
// btree.BTreeG[indexPair] delta index, instead of a plain map, so
// DiscardBefore visits the entries in Ptr order. It still visits every
// entry; it does not stop at the first record it keeps.
type MemoryStore struct {
	mu       sync.RWMutex
	tree     *btree.BTreeG[memoryEntry]
	segment  uuid.UUID
	offset   uint64
	horizon  xid.XID
	discards map[uuid.UUID]bool // segments Read reports as ErrDiscarded; DiscardBefore does not set it
}

// NewMemoryStore creates an empty store with one open segment.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tree: btree.NewG[memoryEntry](8, func(a, b memoryEntry) bool {
			return a.ptr.Less(b.ptr)
		}),
		segment:  uuid.New(),
		discards: make(map[uuid.UUID]bool),
	}
}

func (s *MemoryStore) Append(rec Record, ownerXid xid.XID) (Ptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr := Ptr{Segment: s.segment, Offset: s.offset}
	s.offset++
	s.tree.ReplaceOrInsert(memoryEntry{ptr: ptr, rec: rec, owner: ownerXid})
	return ptr, nil
}

func (s *MemoryStore) Read(ptr Ptr) (Record, xid.XID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.discards[ptr.Segment] {
		return Record{}, xid.Invalid, ErrDiscarded
	}
	e, ok := s.tree.Get(memoryEntry{ptr: ptr})
	if !ok {
		return Record{}, xid.Invalid, ErrNotFound
	}
	return e.rec, e.owner, nil
}

// DiscardBefore drops every entry whose owner xid precedes horizon,
// walking the btree's ordered ascent so the oldest records are
// considered first, matching a real truncation sweep.
func (s *MemoryStore) DiscardBefore(horizon xid.XID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.horizon = horizon
	var toDelete []memoryEntry
	s.tree.Ascend(func(e memoryEntry) bool {
		if e.owner.Precedes(horizon) {
			toDelete = append(toDelete, e)
		}
		return true
	})
	for _, e := range toDelete {
		s.tree.Delete(e)
	}
	return nil
}

// Rotate seals the current segment and opens a fresh one, returning the
// sealed segment's id. MemoryStore never rotates by size on its own;
// Rotate only runs when a caller invokes it.
func (s *MemoryStore) Rotate() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	sealed := s.segment
	s.segment = uuid.New()
	s.offset = 0
	return sealed
}

func (s *MemoryStore) Close() error {
	return nil
}
