// Package mmap provides read-write memory-mapped temporary files. A Map backs
// the paged-out form of column storage: an exclusive scratch file, mapped
// shared, removed from disk when the mapping closes.
package mmap

import (
	"fmt"
	"os"
	"unsafe"
)

// Map is a read-write memory mapping over an exclusive temporary file.
// It is not safe for concurrent use.
type Map struct {
	file *os.File
	data []byte
	path string
	size int64
}

// Create creates an exclusive temporary file of size bytes in dir and maps
// it read-write. The file contents start zeroed. The file is removed when
// the mapping is closed, and on every error path here.
func Create(dir string, size int64) (*Map, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative mapping size %d", size)
	}

	file, err := os.CreateTemp(dir, "datamatrix-*.page")
	if err != nil {
		return nil, fmt.Errorf("failed to create page file: %w", err)
	}

	m := &Map{file: file, path: file.Name()}
	if err := m.remap(size); err != nil {
		file.Close()
		os.Remove(m.path)
		return nil, err
	}
	return m, nil
}

// remap truncates the file to size and maps it. Any previous mapping must
// already be released.
func (m *Map) remap(size int64) error {
	if err := m.file.Truncate(size); err != nil {
		return fmt.Errorf("failed to size page file: %w", err)
	}

	m.size = size
	if size == 0 {
		m.data = nil
		return nil
	}

	data, err := mmap(int(m.file.Fd()), 0, int(size), ProtRead|ProtWrite, MapShared)
	if err != nil {
		return fmt.Errorf("failed to mmap page file: %w", err)
	}

	// Column access is random by nature; tell the kernel not to read ahead.
	_ = madvise(data, MadvRandom)

	m.data = data
	return nil
}

// Data returns the mapped bytes. The slice is invalidated by Resize and Close.
func (m *Map) Data() []byte {
	return m.data
}

// Float64s views the mapped bytes as float64 values. mmap returns
// page-aligned memory, so the reinterpretation is always aligned.
func (m *Map) Float64s() []float64 {
	if len(m.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&m.data[0])), len(m.data)/8)
}

// Len returns the mapped size in bytes.
func (m *Map) Len() int64 {
	return m.size
}

// Path returns the page file path.
func (m *Map) Path() string {
	return m.path
}

// Resize remaps the file at a new size, preserving the leading min(old, new)
// bytes. On failure the mapping is left closed and the file removed; the
// caller must treat the Map as dead.
func (m *Map) Resize(newSize int64) error {
	if newSize < 0 {
		return fmt.Errorf("negative mapping size %d", newSize)
	}
	if m.file == nil {
		return fmt.Errorf("mapping is closed")
	}
	if newSize == m.size {
		return nil
	}

	if m.data != nil {
		if err := munmap(m.data); err != nil {
			m.data = nil
			m.file.Close()
			os.Remove(m.path)
			m.file = nil
			return fmt.Errorf("failed to unmap page file: %w", err)
		}
		m.data = nil
	}

	if err := m.remap(newSize); err != nil {
		m.file.Close()
		os.Remove(m.path)
		m.file = nil
		return err
	}
	return nil
}

// Close releases the mapping, closes the file, and removes it from disk.
// Close is idempotent.
func (m *Map) Close() error {
	if m.file == nil {
		return nil
	}

	var err error
	if m.data != nil {
		err = munmap(m.data)
		m.data = nil
	}

	if closeErr := m.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	m.file = nil

	if rmErr := os.Remove(m.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}
