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

package deployment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default deployment must be valid, got %v", err)
	}
}

func TestValidateGroups(t *testing.T) {
	tests := []struct {
		name  string
		kinds []Kind
		valid bool
	}{
		{"signal2 ok", []Kind{KindSignal2, KindSignalContinuation}, true},
		{"signal3 ok", []Kind{KindServo, KindSignal3, KindSignalContinuation, KindSignalContinuation}, true},
		{"signal2 missing", []Kind{KindSignal2, KindServo}, false},
		{"signal3 short", []Kind{KindSignal3, KindSignalContinuation}, false},
		{"lone continuation", []Kind{KindServo, KindSignalContinuation}, false},
	}
	for _, test := range tests {
		d := Deployment{Address: 1, ModeSelectPin: bridge.NC, ResetPin: bridge.NC, ModeLEDPin: bridge.NC}
		for i, k := range test.kinds {
			d.Functions = append(d.Functions, Function{Kind: k, Pins: []bridge.Pin{bridge.Pin(i)}})
		}
		err := d.Validate()
		if test.valid && err != nil {
			t.Errorf("%s: expected valid, got %v", test.name, err)
		} else if !test.valid && err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}

func TestValidateDuplicatePins(t *testing.T) {
	d := Default()
	d.Functions[1].Pins[0] = d.Functions[0].Pins[0]
	err := d.Validate()
	if err == nil || !strings.Contains(err.Error(), "more than once") {
		t.Errorf("Expected duplicate pin error, got %v", err)
	}
}

func TestValidateRanges(t *testing.T) {
	d := Default()
	d.Address = 0
	if err := d.Validate(); err == nil {
		t.Error("Expected error for address 0")
	}
	d = Default()
	d.Functions = append(d.Functions, Function{Kind: KindServo, Pins: []bridge.Pin{40}})
	if err := d.Validate(); err == nil {
		t.Error("Expected error for 9 functions")
	}
	d = Default()
	d.Functions[0].Pins = []bridge.Pin{bridge.NC}
	if err := d.Validate(); err == nil {
		t.Error("Expected error for servo without pin")
	}
}

func TestImage(t *testing.T) {
	d := Default()
	img := d.Image()
	if img.Get(cv.CVAddressLow) != 4 || img.Get(cv.CVAddressHigh) != 0 {
		t.Errorf("Unexpected address cells %d/%d", img.Get(cv.CVAddressLow), img.Get(cv.CVAddressHigh))
	}
	if img.Get(cv.CVOptions) != cv.Marker|cv.OptionAutoAddress {
		t.Errorf("Unexpected options 0x%02x", img.Get(cv.CVOptions))
	}
	if img.Get(cv.BlockCV(2, cv.Param1)) != 60 || img.Get(cv.BlockCV(2, cv.Param2)) != 120 {
		t.Error("Unexpected servo parameters")
	}
	if img.Get(cv.BlockCV(6, cv.ParamMode)) != 0b11111000 {
		t.Errorf("Unexpected hard/soft mask 0x%02x", img.Get(cv.BlockCV(6, cv.ParamMode)))
	}
}

func TestParse(t *testing.T) {
	raw := `
address: 17
options: 4
pomAddress: 300
modeSelectPin: 21
functions:
  - kind: servo
    pins: [14, -1]
    mode: 1
    param1: 30
    param2: 150
    param3: 4
  - kind: coil
    pins: [2, 3]
    mode: 1
    param1: 20
    param2: 100
`
	d, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Parsed deployment must be valid, got %v", err)
	}
	if d.Address != 17 || d.PomAddress != 300 || d.Options != cv.OptionPomEnabled {
		t.Errorf("Unexpected header %+v", d)
	}
	if d.ResetPin != bridge.NC || d.ModeLEDPin != bridge.NC {
		t.Error("Missing pins must default to NC")
	}
	if len(d.Functions) != 2 || d.Functions[0].Param2 != 150 || d.Functions[1].Pin(2) != bridge.NC {
		t.Errorf("Unexpected functions %+v", d.Functions)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	raw := `
address: 0
functions:
  - kind: servo
    pins: [5]
  - kind: coil
    pins: [5, 5]
  - kind: signal0
    pins: [6]
`
	path := filepath.Join(t.TempDir(), "deployment.yaml")
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected an invalid deployment to be rejected")
	}
	for _, expected := range []string{"address 0", "pins used more than once"} {
		if !strings.Contains(err.Error(), expected) {
			t.Errorf("Expected error to mention '%s', got %v", expected, err)
		}
	}
	if _, err := Parse([]byte(raw)); err == nil {
		t.Error("Expected Parse to reject an invalid deployment")
	}
}
