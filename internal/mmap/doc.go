// Package mmap provides read-only memory-mapped file access for LocalStore.
//
//	m, err := mmap.Open("truth.json.zst")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// Unix platforms use mmap(2) with a sequential madvise(2) hint; Windows uses
// CreateFileMapping/MapViewOfFile.
//
// A Mapping is safe for concurrent readers. Close is idempotent; callers must
// not use the slice returned by Bytes after Close returns.
package mmap
