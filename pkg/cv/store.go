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
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Image is a complete configuration table. Index 0 holds CV1.
type Image [Size]byte

// Get returns the value of the given CV in the image.
func (img *Image) Get(cv int) byte {
	return img[cv-1]
}

// Set the value of the given CV in the image.
func (img *Image) Set(cv int, value byte) {
	img[cv-1] = value
}

// Store is a typed view over the persistent configuration table.
// It is owned by the decoder and must only be used from its goroutine.
type Store struct {
	log      zerolog.Logger
	storage  Storage
	defaults Image
	cells    Image
}

// NewStore loads the table from the given storage.
func NewStore(storage Storage, defaults Image, log zerolog.Logger) (*Store, error) {
	if storage.Size() < Size {
		return nil, errors.Errorf("storage too small; got %d cells, need %d", storage.Size(), Size)
	}
	s := &Store{
		log:      log.With().Str("component", "cv-store").Logger(),
		storage:  storage,
		defaults: defaults,
	}
	for i := range s.cells {
		v, err := storage.ReadCell(i)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load cv %d", i+1)
		}
		s.cells[i] = v
	}
	return s, nil
}

// Get returns the value of the given CV.
func (s *Store) Get(cv int) (byte, error) {
	if !IsValidCV(cv) {
		return 0, errors.Wrapf(ErrOutOfRange, "cv %d", cv)
	}
	return s.cells.Get(cv), nil
}

// MustGet returns the value of the given CV, or 0 when out of range.
func (s *Store) MustGet(cv int) byte {
	v, _ := s.Get(cv)
	return v
}

// Set the value of the given CV.
// The value is durable when Set returns without error.
// Writing an unchanged value does not touch storage.
func (s *Store) Set(cv int, value byte) error {
	if !IsValidCV(cv) {
		return errors.Wrapf(ErrOutOfRange, "cv %d", cv)
	}
	if s.cells.Get(cv) == value {
		return nil
	}
	if err := s.storage.WriteCell(cv-1, value); err != nil {
		cellWriteErrorsTotal.Inc()
		return errors.Wrapf(err, "failed to write cv %d", cv)
	}
	cellWritesTotal.Inc()
	s.cells.Set(cv, value)
	return nil
}

// Get16 returns the 16-bit value stored in the given low/high CV pair.
func (s *Store) Get16(lowCV, highCV int) uint16 {
	return uint16(s.MustGet(lowCV)) | uint16(s.MustGet(highCV))<<8
}

// Set16 stores a 16-bit value in the given low/high CV pair.
// The pair is not written atomically; the high byte is written first.
func (s *Store) Set16(lowCV, highCV int, value uint16) error {
	if err := s.Set(highCV, byte(value>>8)); err != nil {
		return err
	}
	return s.Set(lowCV, byte(value))
}

// IsInitialized returns true if the marker in CVOptions is present.
func (s *Store) IsInitialized() bool {
	return s.cells.Get(CVOptions)&markerMask == Marker
}

// Options returns the option bits of CVOptions.
func (s *Store) Options() byte {
	return s.cells.Get(CVOptions) &^ markerMask
}

// BaseAddress returns the stored base accessory address.
func (s *Store) BaseAddress() int {
	return int(s.Get16(CVAddressLow, CVAddressHigh) & MaxAddress)
}

// SetBaseAddress stores the given base accessory address.
func (s *Store) SetBaseAddress(addr int) error {
	return s.Set16(CVAddressLow, CVAddressHigh, uint16(addr&MaxAddress))
}

// PomAddress returns the program-on-main service address.
func (s *Store) PomAddress() int {
	return int(s.Get16(CVPomAddressLow, CVPomAddressHigh))
}

// Defaults returns the compiled in default image.
func (s *Store) Defaults() Image {
	return s.defaults
}

// Snapshot returns a copy of the current table.
func (s *Store) Snapshot() Image {
	return s.cells
}

// ResetToDefaults overwrites the entire table with the default image.
// The marker is cleared first and written last, so an interrupted reset
// is detected as uninitialized at the next boot.
func (s *Store) ResetToDefaults() error {
	s.log.Info().Msg("Resetting configuration to defaults")
	resetsTotal.Inc()
	if s.IsInitialized() {
		if err := s.Set(CVOptions, erasedCell); err != nil {
			return err
		}
	}
	for cv := 1; cv <= Size; cv++ {
		if cv == CVOptions {
			continue
		}
		if err := s.Set(cv, s.defaults.Get(cv)); err != nil {
			return err
		}
	}
	if err := s.Set(CVOptions, s.defaults.Get(CVOptions)); err != nil {
		return err
	}
	return nil
}
