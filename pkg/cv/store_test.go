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
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testDefaults() Image {
	var img Image
	img.Set(CVAddressLow, 4)
	img.Set(CVOptions, Marker|OptionAutoAddress)
	img.Set(CVPomAddressLow, 4)
	img.Set(BlockCV(0, Param1), 60)
	img.Set(BlockCV(0, Param2), 120)
	img.Set(BlockCV(0, Param3), 8)
	return img
}

func TestBlockOf(t *testing.T) {
	tests := []struct {
		cv    int
		block int
		param Param
		ok    bool
	}{
		{49, 0, 0, false},
		{50, 0, ParamMode, true},
		{54, 0, ParamState, true},
		{55, 1, ParamMode, true},
		{63, 2, Param3, true},
		{89, 7, ParamState, true},
		{90, 0, 0, false},
	}
	for _, test := range tests {
		block, param, ok := BlockOf(test.cv)
		if ok != test.ok {
			t.Errorf("cv %d: expected ok=%v, got %v", test.cv, test.ok, ok)
			continue
		}
		if ok && (block != test.block || param != test.param) {
			t.Errorf("cv %d: expected %d/%s, got %d/%s", test.cv, test.block, test.param, block, param)
		}
		if ok && BlockCV(block, param) != test.cv {
			t.Errorf("cv %d: BlockCV mismatch, got %d", test.cv, BlockCV(block, param))
		}
	}
}

func TestNewStoreUninitialized(t *testing.T) {
	s, err := NewStore(NewMemoryStorage(), testDefaults(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if s.IsInitialized() {
		t.Error("Erased storage must not be initialized")
	}
}

func TestResetToDefaults(t *testing.T) {
	storage := NewMemoryStorage()
	s, err := NewStore(storage, testDefaults(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.ResetToDefaults(); err != nil {
		t.Fatalf("ResetToDefaults failed: %v", err)
	}
	if !s.IsInitialized() {
		t.Error("Store must be initialized after reset")
	}
	defaults := testDefaults()
	for cv := 1; cv <= Size; cv++ {
		if v := s.MustGet(cv); v != defaults.Get(cv) {
			t.Errorf("cv %d: expected %d, got %d", cv, defaults.Get(cv), v)
		}
	}
	// Values must have reached storage
	if v, _ := storage.ReadCell(BlockCV(0, Param2) - 1); v != 120 {
		t.Errorf("Expected 120 in storage, got %d", v)
	}
	if s.BaseAddress() != 4 {
		t.Errorf("Expected base address 4, got %d", s.BaseAddress())
	}
	if s.Options() != OptionAutoAddress {
		t.Errorf("Expected options %d, got %d", OptionAutoAddress, s.Options())
	}
}

func TestSetOutOfRange(t *testing.T) {
	s, _ := NewStore(NewMemoryStorage(), testDefaults(), zerolog.Nop())
	for _, cv := range []int{0, -1, Size + 1} {
		if err := s.Set(cv, 1); !IsOutOfRange(err) {
			t.Errorf("cv %d: expected out of range, got %v", cv, err)
		}
		if _, err := s.Get(cv); !IsOutOfRange(err) {
			t.Errorf("cv %d: expected out of range on get, got %v", cv, err)
		}
	}
	if err := s.Set(Size, 7); err != nil {
		t.Errorf("cv %d must be writable: %v", Size, err)
	}
}

func TestSetUnchangedSkipsStorage(t *testing.T) {
	storage := NewMemoryStorage()
	s, _ := NewStore(storage, testDefaults(), zerolog.Nop())
	if err := s.Set(51, 10); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	writes := storage.Writes()
	if err := s.Set(51, 10); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if storage.Writes() != writes {
		t.Errorf("Expected %d writes, got %d", writes, storage.Writes())
	}
}

func TestBaseAddressNineBits(t *testing.T) {
	s, _ := NewStore(NewMemoryStorage(), testDefaults(), zerolog.Nop())
	if err := s.SetBaseAddress(300); err != nil {
		t.Fatalf("SetBaseAddress failed: %v", err)
	}
	if s.BaseAddress() != 300 {
		t.Errorf("Expected 300, got %d", s.BaseAddress())
	}
	if s.MustGet(CVAddressLow) != 300&0xFF || s.MustGet(CVAddressHigh) != 1 {
		t.Errorf("Unexpected cells %d/%d", s.MustGet(CVAddressLow), s.MustGet(CVAddressHigh))
	}
}

func TestFileStoragePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.bin")
	storage, err := OpenFileStorage(path)
	if err != nil {
		t.Fatalf("OpenFileStorage failed: %v", err)
	}
	if v, _ := storage.ReadCell(10); v != erasedCell {
		t.Errorf("Expected erased cell, got %d", v)
	}
	if err := storage.WriteCell(CVOptions-1, Marker); err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}
	storage.Close()

	storage, err = OpenFileStorage(path)
	if err != nil {
		t.Fatalf("OpenFileStorage (reopen) failed: %v", err)
	}
	defer storage.Close()
	s, err := NewStore(storage, testDefaults(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if !s.IsInitialized() {
		t.Error("Expected marker to survive reopen")
	}
}
