//go:build !ceph

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

import "github.com/houjibofa/zheap/xid"

// CephConfig is a stub when Ceph support is not compiled in.
// Build with -tags=ceph to enable Ceph-backed undo segment storage.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

// CephStore is an opaque stub type so callers can reference it (e.g. in
// a factory switch) without a build-tag-gated import. It satisfies Store
// so code written against the interface compiles either way; every
// method except Close panics because there is no connection to back it
// with, and Close returns nil.
type CephStore struct{}

// NewCephStore panics: this build was not compiled with -tags=ceph.
func NewCephStore(cfg CephConfig, maxSegmentBytes int64) (*CephStore, error) {
	panic("undo: Ceph support not compiled in. Build with: go build -tags=ceph")
}

func (s *CephStore) Append(rec Record, ownerXid xid.XID) (Ptr, error) {
	panic("undo: Ceph support not compiled in")
}
func (s *CephStore) Read(ptr Ptr) (Record, xid.XID, error) {
	panic("undo: Ceph support not compiled in")
}
func (s *CephStore) DiscardBefore(horizon xid.XID) error { panic("undo: Ceph support not compiled in") }
func (s *CephStore) Close() error                        { return nil }
