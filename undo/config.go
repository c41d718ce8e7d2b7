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

	units "github.com/docker/go-units"
)

// StoreConfig is the plain-struct configuration for FileStore, matching
// the teacher's SettingsT in storage/settings.go rather than a flags or
// env-var framework.
type StoreConfig struct {
	Dir string // base directory segments are written under

	// SegmentSize is a human-readable size ("64MB", "1GiB", ...) parsed
	// with docker/go-units, matching how an operator would size
	// storage/settings.go's ShardSize if it were exposed as a string.
	SegmentSize string

	// ColdCompression selects xz (slower, smaller) instead of the
	// default lz4 (fast) for segments sealed by rotation.
	ColdCompression bool
}

// segmentSizeBytes parses SegmentSize, defaulting to 64MiB when unset.
func (c StoreConfig) segmentSizeBytes() (int64, error) {
	if c.SegmentSize == "" {
		return 64 * 1024 * 1024, nil
	}
	n, err := units.FromHumanSize(c.SegmentSize)
	if err != nil {
		return 0, fmt.Errorf("undo: invalid SegmentSize %q: %w", c.SegmentSize, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("undo: SegmentSize %q must be positive", c.SegmentSize)
	}
	return n, nil
}
