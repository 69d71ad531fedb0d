// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package cv

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Storage is the byte addressable persistent memory the configuration
// table lives in. Cell offsets are 0 based.
// A successful WriteCell must be durable before it returns.
type Storage interface {
	// Size returns the number of cells of the storage.
	Size() int
	// ReadCell returns the value of the cell at given offset.
	ReadCell(offset int) (byte, error)
	// WriteCell sets the value of the cell at given offset.
	WriteCell(offset int, value byte) error
	// Close releases the storage.
	Close() error
}

// erasedCell is the value of a cell that has never been written.
const erasedCell = 0xFF

// MemoryStorage is a volatile Storage, used for simulation and tests.
type MemoryStorage struct {
	mutex  sync.Mutex
	cells  [Size]byte
	writes int
}

// NewMemoryStorage creates a storage with all cells erased.
func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{}
	for i := range s.cells {
		s.cells[i] = erasedCell
	}
	return s
}

// Size returns the number of cells of the storage.
func (s *MemoryStorage) Size() int { return Size }

// ReadCell returns the value of the cell at given offset.
func (s *MemoryStorage) ReadCell(offset int) (byte, error) {
	if offset < 0 || offset >= Size {
		return 0, errors.Wrapf(ErrOutOfRange, "offset %d", offset)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cells[offset], nil
}

// WriteCell sets the value of the cell at given offset.
func (s *MemoryStorage) WriteCell(offset int, value byte) error {
	if offset < 0 || offset >= Size {
		return errors.Wrapf(ErrOutOfRange, "offset %d", offset)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cells[offset] = value
	s.writes++
	return nil
}

// Writes returns the number of cell writes performed so far.
func (s *MemoryStorage) Writes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writes
}

// Close releases the storage.
func (s *MemoryStorage) Close() error { return nil }

// FileStorage keeps the cells in a file of Size bytes.
// Every write is synced to disk before returning.
type FileStorage struct {
	mutex sync.Mutex
	f     *os.File
}

// OpenFileStorage opens (or creates) the given file as storage.
// A new or short file is extended with erased cells.
func OpenFileStorage(path string) (*FileStorage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cv file '%s'", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, maskAny(err)
	}
	if size := info.Size(); size < Size {
		pad := make([]byte, Size-size)
		for i := range pad {
			pad[i] = erasedCell
		}
		if _, err := f.WriteAt(pad, size); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "failed to extend cv file")
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, maskAny(err)
		}
	}
	return &FileStorage{f: f}, nil
}

// Size returns the number of cells of the storage.
func (s *FileStorage) Size() int { return Size }

// ReadCell returns the value of the cell at given offset.
func (s *FileStorage) ReadCell(offset int) (byte, error) {
	if offset < 0 || offset >= Size {
		return 0, errors.Wrapf(ErrOutOfRange, "offset %d", offset)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var buf [1]byte
	if _, err := s.f.ReadAt(buf[:], int64(offset)); err != nil && err != io.EOF {
		return 0, maskAny(err)
	}
	return buf[0], nil
}

// WriteCell sets the value of the cell at given offset.
func (s *FileStorage) WriteCell(offset int, value byte) error {
	if offset < 0 || offset >= Size {
		return errors.Wrapf(ErrOutOfRange, "offset %d", offset)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.f.WriteAt([]byte{value}, int64(offset)); err != nil {
		return maskAny(err)
	}
	if err := s.f.Sync(); err != nil {
		return maskAny(err)
	}
	return nil
}

// Close releases the storage.
func (s *FileStorage) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.f.Close()
}
