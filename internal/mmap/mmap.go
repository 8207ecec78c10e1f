// Package mmap provides read-only memory-mapped file access for local
// segment blobs.
package mmap

import (
	"errors"
	"io"
	"os"
)

// File is a read-only memory-mapped file.
type File struct {
	data []byte
	f    *os.File
}

// Open maps the file at path into memory as read-only.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := fi.Size()
	if size < 0 {
		f.Close()
		return nil, errors.New("mmap: negative file size")
	}
	if size == 0 {
		return &File{f: f}, nil
	}

	data, err := mmap(f, int(size))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{data: data, f: f}, nil
}

// Bytes returns the mapped bytes. The slice is valid until Close.
func (m *File) Bytes() []byte { return m.data }

// ReadAt implements io.ReaderAt over the mapping.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the memory and closes the underlying file.
func (m *File) Close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.data != nil {
		err = munmap(m.data)
		m.data = nil
	}
	if m.f != nil {
		if cerr := m.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.f = nil
	}
	return err
}
