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

package identity

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
)

func newStore(t *testing.T, storage cv.Storage) *cv.Store {
	store, err := cv.NewStore(storage, deployment.Default().Image(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func initializedStore(t *testing.T, options byte) *cv.Store {
	store := newStore(t, cv.NewMemoryStorage())
	if err := store.ResetToDefaults(); err != nil {
		t.Fatalf("ResetToDefaults failed: %v", err)
	}
	if err := store.Set(cv.CVOptions, cv.Marker|options); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.SetBaseAddress(42); err != nil {
		t.Fatalf("SetBaseAddress failed: %v", err)
	}
	return store
}

func TestQuantizeBand(t *testing.T) {
	tests := []struct {
		level    int
		expected Band
	}{
		{1023, BandHigh},
		{800, BandHigh},
		{799, BandMidHigh},
		{550, BandMidHigh},
		{549, BandMidLow},
		{200, BandMidLow},
		{199, BandLow},
		{0, BandLow},
	}
	for _, test := range tests {
		if b := QuantizeBand(test.level); b != test.expected {
			t.Errorf("Level %d: expected %s, got %s", test.level, test.expected, b)
		}
	}
}

func TestResolveModes(t *testing.T) {
	tests := []struct {
		name        string
		options     byte
		level       int
		mode        Mode
		address     int
		knownAddres bool
	}{
		{"high", 0, 1023, ModeNormal, 42, true},
		{"high pom", cv.OptionPomEnabled, 1023, ModePomConditional, 42, true},
		{"mid-high", 0, 700, ModePomAlways, 4, true},
		{"mid-low reserved", 0, 300, ModeNormal, 42, true},
		{"low auto", cv.OptionAutoAddress, 0, ModeFullProgramming, 0, false},
		{"low no auto", 0, 0, ModePomAlways, 42, true},
	}
	for _, test := range tests {
		store := initializedStore(t, test.options)
		r, err := Resolve(zerolog.Nop(), store, Inputs{ModeLevel: test.level})
		if err != nil {
			t.Fatalf("%s: Resolve failed: %v", test.name, err)
		}
		id := r.Identity()
		if id.Mode != test.mode {
			t.Errorf("%s: expected mode %s, got %s", test.name, test.mode, id.Mode)
		}
		if id.AddressKnown != test.knownAddres {
			t.Errorf("%s: expected address known %v, got %v", test.name, test.knownAddres, id.AddressKnown)
		}
		if id.AddressKnown && id.BaseAddress != test.address {
			t.Errorf("%s: expected address %d, got %d", test.name, test.address, id.BaseAddress)
		}
		if id.WasReset {
			t.Errorf("%s: unexpected reset", test.name)
		}
	}
}

type countingStorage struct {
	*cv.MemoryStorage
	markerResets int
}

func (s *countingStorage) WriteCell(offset int, value byte) error {
	if offset == cv.CVOptions-1 && value&0xF0 == cv.Marker {
		s.markerResets++
	}
	return s.MemoryStorage.WriteCell(offset, value)
}

func TestResolveResetsUninitializedOnce(t *testing.T) {
	storage := &countingStorage{MemoryStorage: cv.NewMemoryStorage()}
	store := newStore(t, storage)
	r, err := Resolve(zerolog.Nop(), store, Inputs{ModeLevel: 1023})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if storage.markerResets != 1 {
		t.Errorf("Expected exactly 1 reset, got %d", storage.markerResets)
	}
	if !r.Identity().WasReset {
		t.Error("Expected WasReset")
	}
	defaults := deployment.Default().Image()
	snapshot := store.Snapshot()
	for k := 0; k < cv.MaxBlocks; k++ {
		for p := cv.ParamMode; p <= cv.ParamState; p++ {
			n := cv.BlockCV(k, p)
			if snapshot.Get(n) != defaults.Get(n) {
				t.Errorf("CV %d: expected default %d, got %d", n, defaults.Get(n), snapshot.Get(n))
			}
		}
	}
	// Booting again must not reset
	if _, err := Resolve(zerolog.Nop(), store, Inputs{ModeLevel: 1023}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if storage.markerResets != 1 {
		t.Errorf("Expected no reset on 2nd boot, got %d", storage.markerResets)
	}
}

func TestResolveResetInput(t *testing.T) {
	store := initializedStore(t, 0)
	if err := store.Set(cv.BlockCV(0, cv.Param1), 11); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	r, err := Resolve(zerolog.Nop(), store, Inputs{ModeLevel: 1023, ResetAsserted: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	id := r.Identity()
	if !id.WasReset || !id.ResetRequested {
		t.Errorf("Expected reset, got %+v", id)
	}
	if v := store.MustGet(cv.BlockCV(0, cv.Param1)); v != 60 {
		t.Errorf("Expected default 60, got %d", v)
	}
	if id.BaseAddress != 4 {
		t.Errorf("Expected default address 4, got %d", id.BaseAddress)
	}
}

func TestLearnAddress(t *testing.T) {
	store := initializedStore(t, cv.OptionAutoAddress)
	r, err := Resolve(zerolog.Nop(), store, Inputs{ModeLevel: 10})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if learned, err := r.Learn(17); err != nil || !learned {
		t.Fatalf("Expected address to be learned, got %v, %v", learned, err)
	}
	if learned, _ := r.Learn(23); learned {
		t.Error("Expected only the first address to be learned")
	}
	id := r.Identity()
	if id.BaseAddress != 17 || !id.AddressKnown {
		t.Errorf("Expected base address 17, got %+v", id)
	}
	if a := store.BaseAddress(); a != 17 {
		t.Errorf("Expected persisted address 17, got %d", a)
	}
	// Next boot in normal mode uses it
	r, err = Resolve(zerolog.Nop(), store, Inputs{ModeLevel: 1023})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if a := r.Identity().BaseAddress; a != 17 {
		t.Errorf("Expected address 17 after reboot, got %d", a)
	}
}

func TestLearnOnlyInFullProgramming(t *testing.T) {
	store := initializedStore(t, 0)
	r, err := Resolve(zerolog.Nop(), store, Inputs{ModeLevel: 1023})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if learned, _ := r.Learn(17); learned {
		t.Error("Expected no learning in normal mode")
	}
}

func TestAuthorizesPom(t *testing.T) {
	tests := []struct {
		mode     Mode
		service  int
		expected bool
	}{
		{ModeNormal, 4, false},
		{ModePomConditional, 4, true},
		{ModePomConditional, 5, false},
		{ModePomAlways, 5, true},
		{ModeFullProgramming, 99, true},
	}
	for _, test := range tests {
		id := Identity{Mode: test.mode, PomAddress: 4}
		if v := id.AuthorizesPom(test.service); v != test.expected {
			t.Errorf("%s/%d: expected %v, got %v", test.mode, test.service, test.expected, v)
		}
	}
}

func TestTranslateAddress(t *testing.T) {
	if a := (Identity{RocoAddress: true}).TranslateAddress(3); a != 7 {
		t.Errorf("Expected 7, got %d", a)
	}
	if a := (Identity{}).TranslateAddress(3); a != 3 {
		t.Errorf("Expected 3, got %d", a)
	}
}
