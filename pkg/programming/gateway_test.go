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

package programming

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/decoder/identity"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
)

type fakeFunctions struct {
	changed     []int
	reloadAll   int
	baseAddress int
}

func (f *fakeFunctions) ConfigChanged(cv int)    { f.changed = append(f.changed, cv) }
func (f *fakeFunctions) ReloadAll()              { f.reloadAll++ }
func (f *fakeFunctions) SetBaseAddress(addr int) { f.baseAddress = addr }

func newTestGateway(t *testing.T, options byte, modeLevel int) (*Gateway, *cv.Store, *fakeFunctions) {
	store, err := cv.NewStore(cv.NewMemoryStorage(), deployment.Default().Image(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.ResetToDefaults(); err != nil {
		t.Fatalf("ResetToDefaults failed: %v", err)
	}
	if err := store.Set(cv.CVOptions, cv.Marker|options); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	r, err := identity.Resolve(zerolog.Nop(), store, identity.Inputs{ModeLevel: modeLevel})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	fs := &fakeFunctions{}
	return NewGateway(zerolog.Nop(), store, r, fs), store, fs
}

func TestDirectRoundTrip(t *testing.T) {
	g, store, fs := newTestGateway(t, 0, 1023)
	for _, n := range []int{1, 50, 51, 52, 53, 88, 256} {
		if err := g.Write(Request{CV: n, Value: 77, Write: true}); err != nil {
			t.Fatalf("Write cv %d failed: %v", n, err)
		}
		if v := store.MustGet(n); v != 77 {
			t.Errorf("CV %d: expected 77, got %d", n, v)
		}
		if v, err := g.Read(Request{CV: n}); err != nil || v != 77 {
			t.Errorf("CV %d: expected read 77, got %d, %v", n, v, err)
		}
	}
	if len(fs.changed) != 7 {
		t.Errorf("Expected 7 change notifications, got %v", fs.changed)
	}
}

func TestRuntimeStateIsReadOnly(t *testing.T) {
	g, store, fs := newTestGateway(t, 0, 1023)
	n := cv.BlockCV(2, cv.ParamState)
	before := store.MustGet(n)
	err := g.Write(Request{CV: n, Value: before + 1, Write: true})
	if !IsReadOnly(err) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
	if v := store.MustGet(n); v != before {
		t.Errorf("Runtime state changed to %d", v)
	}
	if len(fs.changed) != 0 {
		t.Errorf("Expected no change notification, got %v", fs.changed)
	}
}

func TestOutOfRange(t *testing.T) {
	g, _, _ := newTestGateway(t, 0, 1023)
	for _, n := range []int{0, 257} {
		if err := g.Write(Request{CV: n, Value: 1, Write: true}); !cv.IsOutOfRange(err) {
			t.Errorf("CV %d: expected out of range, got %v", n, err)
		}
	}
}

func TestPomAuthorization(t *testing.T) {
	tests := []struct {
		name     string
		options  byte
		level    int
		service  int
		accepted bool
	}{
		{"normal", 0, 1023, 4, false},
		{"conditional match", cv.OptionPomEnabled, 1023, 4, true},
		{"conditional mismatch", cv.OptionPomEnabled, 1023, 5, false},
		{"always", 0, 700, 123, true},
		{"full programming", cv.OptionAutoAddress, 0, 1, true},
	}
	for _, test := range tests {
		g, store, _ := newTestGateway(t, test.options, test.level)
		n := cv.BlockCV(0, cv.Param1)
		err := g.Write(Request{Addressing: PomService, ServiceAddress: test.service, CV: n, Value: 33, Write: true})
		if test.accepted {
			if err != nil {
				t.Errorf("%s: expected write to be accepted, got %v", test.name, err)
			}
			if v := store.MustGet(n); v != 33 {
				t.Errorf("%s: expected 33, got %d", test.name, v)
			}
		} else {
			if !IsUnauthorized(err) {
				t.Errorf("%s: expected ErrUnauthorized, got %v", test.name, err)
			}
			if v := store.MustGet(n); v != 60 {
				t.Errorf("%s: expected unchanged 60, got %d", test.name, v)
			}
		}
	}
}

func TestOptionsKeepMarker(t *testing.T) {
	g, store, _ := newTestGateway(t, 0, 1023)
	if err := g.Write(Request{CV: cv.CVOptions, Value: 0x04, Write: true}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !store.IsInitialized() {
		t.Error("Expected marker to be kept")
	}
	if o := store.Options(); o != 0x04 {
		t.Errorf("Expected options 0x04, got 0x%02x", o)
	}
}

func TestFactoryReset(t *testing.T) {
	g, store, fs := newTestGateway(t, 0, 1023)
	n := cv.BlockCV(0, cv.Param2)
	if err := g.Write(Request{CV: n, Value: 1, Write: true}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := g.Write(Request{CV: CVManufacturer, Value: 8, Write: true}); err != nil {
		t.Fatalf("Factory reset failed: %v", err)
	}
	if v := store.MustGet(n); v != 120 {
		t.Errorf("Expected default 120, got %d", v)
	}
	if fs.reloadAll != 1 {
		t.Errorf("Expected all functions to reload, got %d", fs.reloadAll)
	}
	if err := g.Write(Request{CV: CVManufacturer, Value: 1, Write: true}); !IsReadOnly(err) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
}

func TestLearnAddress(t *testing.T) {
	g, store, fs := newTestGateway(t, cv.OptionAutoAddress, 0)
	if !g.LearnAddress(17) {
		t.Fatal("Expected address to be learned")
	}
	if g.LearnAddress(18) {
		t.Error("Expected 2nd address to be ignored")
	}
	if fs.baseAddress != 17 {
		t.Errorf("Expected base address 17, got %d", fs.baseAddress)
	}
	if a := store.BaseAddress(); a != 17 {
		t.Errorf("Expected persisted address 17, got %d", a)
	}
}
