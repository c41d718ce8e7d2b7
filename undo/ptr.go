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
	"fmt"

	"github.com/google/uuid"
)

// Ptr addresses one undo record: a segment (identified by uuid, so
// segments can be rotated and distributed across backends without a
// central offset counter) plus a byte offset within it. The zero Ptr is
// InvalidUndoRecPtr — "end of chain".
type Ptr struct {
	Segment uuid.UUID
	Offset  uint64
}

// Invalid is the zero Ptr, meaning "no further undo" (chain terminator).
var Invalid Ptr

// Valid reports whether p addresses a real record.
func (p Ptr) Valid() bool {
	return p != Invalid
}

func (p Ptr) String() string {
	if !p.Valid() {
		return "<end-of-chain>"
	}
	return fmt.Sprintf("%s:%d", p.Segment, p.Offset)
}

// Less gives Ptr a total order (segment, then offset) so it can key a
// btree.BTreeG index — segments sort by their uuid's string form since
// google/uuid has no native numeric order, matching how the teacher
// orders storageShards by "uuid.String()" for deterministic commit-lock
// ordering (storage/transaction.go's commitACID).
func (p Ptr) Less(other Ptr) bool {
	if p.Segment != other.Segment {
		return p.Segment.String() < other.Segment.String()
	}
	return p.Offset < other.Offset
}
