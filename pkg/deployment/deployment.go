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
	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
)

// PinsPerFunction is the number of output channels per sub-address.
const PinsPerFunction = 3

// Function binds a sub-address to an output function kind, its pins and
// the initial values of its parameter block.
type Function struct {
	Kind Kind `yaml:"kind"`
	// Output pins (out1..out3). Missing entries are not connected.
	Pins   []bridge.Pin `yaml:"pins"`
	Mode   byte         `yaml:"mode"`
	Param1 byte         `yaml:"param1"`
	Param2 byte         `yaml:"param2"`
	Param3 byte         `yaml:"param3"`
}

// Pin returns output pin i (0 based), or bridge.NC.
func (f Function) Pin(i int) bridge.Pin {
	if i < 0 || i >= len(f.Pins) {
		return bridge.NC
	}
	return f.Pins[i]
}

// Deployment holds the build time settings of a decoder: default CV values
// and the binding of sub-addresses to functions and pins.
type Deployment struct {
	// Default base accessory address
	Address int `yaml:"address"`
	// Default option bits of CV47 (without marker)
	Options byte `yaml:"options"`
	// Default program-on-main service address
	PomAddress int `yaml:"pomAddress"`

	// Analog input sampled at boot to select the operating mode
	ModeSelectPin bridge.Pin `yaml:"modeSelectPin"`
	// Input that resets CVs at boot and centers the selected servo
	ResetPin bridge.Pin `yaml:"resetPin"`
	// Output showing the operating mode
	ModeLEDPin bridge.Pin `yaml:"modeLedPin"`

	Encoder Encoder `yaml:"encoder"`

	Functions []Function `yaml:"functions"`
}

// Encoder describes the rotary encoder used for servo calibration.
type Encoder struct {
	Enabled bool       `yaml:"enabled"`
	PinA    bridge.Pin `yaml:"pinA"`
	PinB    bridge.Pin `yaml:"pinB"`
	// Number of quadrature steps per detent (2 or 4)
	StepsPerDetent int `yaml:"stepsPerDetent"`
}

// Arduino style analog pin numbers of the reference board.
const (
	pinA0 bridge.Pin = 14 + iota
	pinA1
	pinA2
	pinA3
	pinA4
	pinA5
	pinA6
	pinA7
)

// Default returns the compiled in deployment of the reference board:
// 3 servos, a double coil turnout, a blinking light,
// a 2-address signal and a steady lamp.
func Default() Deployment {
	nc := bridge.NC
	return Deployment{
		Address:       4,
		Options:       0x01, // auto address learning
		PomAddress:    4,
		ModeSelectPin: pinA7,
		ResetPin:      pinA6,
		ModeLEDPin:    13,
		Encoder: Encoder{
			Enabled:        true,
			PinA:           pinA5,
			PinB:           pinA4,
			StepsPerDetent: 2,
		},
		Functions: []Function{
			{Kind: KindServo, Pins: []bridge.Pin{pinA0, 5, nc}, Mode: ServoAutoOff, Param1: 60, Param2: 120, Param3: 8},
			{Kind: KindServo, Pins: []bridge.Pin{pinA1, nc, nc}, Mode: ServoAutoOff, Param1: 60, Param2: 120, Param3: 8},
			{Kind: KindServo, Pins: []bridge.Pin{pinA2, pinA3, nc}, Mode: ServoAutoOff, Param1: 60, Param2: 120, Param3: 8},
			{Kind: KindCoil, Pins: []bridge.Pin{2, 3, nc}, Mode: CoilAutoOff, Param1: 50, Param2: 20},
			{Kind: KindStatic, Pins: []bridge.Pin{6, 7, nc}, Mode: StaticBlink | StaticSoft, Param1: 50, Param2: 50, Param3: 100},
			{Kind: KindSignal2, Pins: []bridge.Pin{9, 10, 11}, Param1: 0b0000010, Param2: 0b0000001, Param3: 50},
			{Kind: KindSignalContinuation, Pins: []bridge.Pin{12, nc, nc}, Mode: 0b11111000, Param1: 0b0000100, Param2: 0b0001001},
			{Kind: KindStatic, Pins: []bridge.Pin{8, nc, nc}},
		},
	}
}
