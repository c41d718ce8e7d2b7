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

// Package page implements component C of spec.md §4: pure accessors
// over a physical tuple and its page's transaction-slot footer. Nothing
// here touches undo chain identity resolution (that is package
// visibility's job) beyond the handful of one-hop lookups the spec's
// accessor contract itself requires (get_ctid reads the most recent
// undo UPDATE record directly).
package page

// Infomask is the mutually-informative flag bitset spec.md §3 attaches
// to every tuple.
type Infomask uint16

const (
	// Deleted marks a tuple whose delete-mark is the most recent
	// operation against it.
	Deleted Infomask = 1 << iota
	// Updated marks a non-in-place update: the row moved, and Ctid
	// holds its new location.
	Updated
	// InplaceUpdated marks an in-place update: same physical slot, new
	// undo-reachable prior image.
	InplaceUpdated
	// XidLockOnly marks a tuple whose most recent operation was a lock,
	// not a data change.
	XidLockOnly
	// InvalidXactSlot marks a tuple whose transaction slot was reused:
	// its SlotID no longer identifies the tuple's true owning
	// transaction, which must be recovered by walking undo.
	InvalidXactSlot
)

// Has reports whether m contains every bit of flags.
func (m Infomask) Has(flags Infomask) bool {
	return m&flags == flags
}
