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

package bridge

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Pin identifies a hardware pin of the board.
type Pin int

// NC marks a pin that is not connected. Writes to it are ignored.
const NC Pin = -1

// Connected returns true if the pin is bound to hardware.
func (p Pin) Connected() bool {
	return p >= 0
}

// String returns the pin number, or "NC".
func (p Pin) String() string {
	if !p.Connected() {
		return "NC"
	}
	return strconv.Itoa(int(p))
}

const (
	// MaxAnalogValue is the highest value returned by AnalogRead.
	MaxAnalogValue = 1023
	// MaxDuty is the duty value of a fully enabled PWM output.
	MaxDuty = 255
)

var (
	// ErrNotSupported is returned when the bridge cannot drive a pin
	// in the requested way.
	ErrNotSupported = errors.New("not supported")
)

// API of the bridge, the hardware the decoder inputs and outputs
// are connected to.
type API interface {
	// AnalogRead samples the analog input at given pin (0..MaxAnalogValue).
	AnalogRead(pin Pin) (int, error)
	// DigitalRead returns the level of the digital input at given pin.
	DigitalRead(pin Pin) (bool, error)
	// DigitalWrite sets the level of the digital output at given pin.
	DigitalWrite(pin Pin, level bool) error
	// PWMWrite sets the duty cycle (0..MaxDuty) of the output at given pin.
	PWMWrite(pin Pin, duty uint8) error
	// ServoWrite sets the servo pulse width of the output at given pin.
	// A pulse width of 0 stops the pulses.
	ServoWrite(pin Pin, pulse time.Duration) error

	Close() error
}
