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

// Package zassert carries the one runtime switch every other package in
// this module consults for spec.md §7 item 3: "invariant violation —
// debug assertion; in release, return the pessimistic verdict". It is a
// plain package-level bool, matching the teacher's Settings.Backtrace /
// Settings.Trace switches in storage/settings.go rather than a build
// tag, so it can be flipped on in a test binary without a separate
// build.
package zassert

import "fmt"

// Enabled gates Assertf. Off by default, so release builds never panic
// on a tuple that merely looks inconsistent. With it off, the callers
// (in packages undo and visibility) carry on past the failed check;
// they do not switch to a pessimistic verdict.
var Enabled = false

// Assertf panics with a formatted message if Enabled and cond is false.
// It is a no-op when Enabled is false, regardless of cond.
func Assertf(cond bool, format string, args ...any) {
	if Enabled && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
