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
	"sync"
	"time"
)

// PinMode is the way an output pin was last driven.
type PinMode uint8

const (
	PinModeNone PinMode = iota
	PinModeDigital
	PinModePWM
	PinModeServo
)

// PinState is the last value written to an output pin.
type PinState struct {
	Mode PinMode
	// Digital: 0/1, PWM: duty, Servo: pulse width in microseconds.
	Value int
	// Number of writes to the pin.
	Writes int
}

// VirtualBridge keeps all pins in memory.
// Inputs are set with SetAnalog/SetDigital.
type VirtualBridge struct {
	mutex   sync.Mutex
	analog  map[Pin]int
	digital map[Pin]bool
	outputs map[Pin]PinState
}

// NewVirtualBridge implements the bridge for a simulated decoder.
// Analog inputs read as open (MaxAnalogValue), digital inputs as high.
func NewVirtualBridge() *VirtualBridge {
	return &VirtualBridge{
		analog:  make(map[Pin]int),
		digital: make(map[Pin]bool),
		outputs: make(map[Pin]PinState),
	}
}

// SetAnalog sets the value returned by AnalogRead for the given pin.
func (b *VirtualBridge) SetAnalog(pin Pin, value int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.analog[pin] = value
}

// SetDigital sets the level returned by DigitalRead for the given pin.
func (b *VirtualBridge) SetDigital(pin Pin, level bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.digital[pin] = level
}

// Output returns the last state written to the given pin.
func (b *VirtualBridge) Output(pin Pin) PinState {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.outputs[pin]
}

// AnalogRead samples the analog input at given pin.
func (b *VirtualBridge) AnalogRead(pin Pin) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if v, ok := b.analog[pin]; ok {
		return v, nil
	}
	return MaxAnalogValue, nil
}

// DigitalRead returns the level of the digital input at given pin.
func (b *VirtualBridge) DigitalRead(pin Pin) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if v, ok := b.digital[pin]; ok {
		return v, nil
	}
	return true, nil
}

// DigitalWrite sets the level of the digital output at given pin.
func (b *VirtualBridge) DigitalWrite(pin Pin, level bool) error {
	value := 0
	if level {
		value = 1
	}
	b.set(pin, PinModeDigital, value)
	return nil
}

// PWMWrite sets the duty cycle of the output at given pin.
func (b *VirtualBridge) PWMWrite(pin Pin, duty uint8) error {
	b.set(pin, PinModePWM, int(duty))
	return nil
}

// ServoWrite sets the servo pulse width of the output at given pin.
func (b *VirtualBridge) ServoWrite(pin Pin, pulse time.Duration) error {
	b.set(pin, PinModeServo, int(pulse/time.Microsecond))
	return nil
}

func (b *VirtualBridge) set(pin Pin, mode PinMode, value int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	st := b.outputs[pin]
	st.Mode = mode
	st.Value = value
	st.Writes++
	b.outputs[pin] = st
	pinWritesTotal.WithLabelValues("virtual").Inc()
}

// Close the bridge.
func (b *VirtualBridge) Close() error {
	return nil
}
