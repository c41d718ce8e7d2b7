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

import "errors"

// ErrDiscarded is returned by Store.Read/Reader.Fetch when the
// requested record has been truncated below the global horizon
// (spec.md §4.B, §7 item 2). This is a structured outcome, not a
// failure: callers are expected to treat it as "definitely visible /
// all-visible" per the §4.D/§7 failure-semantics rule, never to retry.
var ErrDiscarded = errors.New("undo: record discarded")

// ErrNotFound is returned when a Ptr does not address any record the
// store still holds: one it never wrote, or, for MemoryStore, one its
// DiscardBefore deleted record by record. Callers should treat this the
// same as ErrDiscarded for visibility purposes, but it is kept distinct
// for store-level diagnostics.
var ErrNotFound = errors.New("undo: record not found")
