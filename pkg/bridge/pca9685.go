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
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// I2CDevice communicates with a device on the I2C bus that has a specific address.
type I2CDevice interface {
	// Write a byte to given register
	WriteByteReg(reg uint8, val uint8) error
	Close() error
}

const (
	pca9685MODE1Reg      = 0x00
	pca9685LEDBaseReg    = 0x06
	pca9685PRESCALEReg   = 0xFE
	pca9685RegIncrement  = 4
	// Full on/off bit in the high register of an on/off value
	pca9685Full = 0b00010000

	// PCA9685Outputs is the number of outputs of a PCA9685.
	PCA9685Outputs  = 16
	pca9685Steps    = 4096
	pca9685MaxValue = pca9685Steps - 1
	pca9685Clock    = 25000000.0
	servoFrequency  = 50
	servoPeriod     = time.Second / servoFrequency
)

// pca9685Bridge drives the pins firstPin..firstPin+15 with a PCA9685
// PWM controller and passes all other pins to the wrapped bridge.
type pca9685Bridge struct {
	API
	mutex    sync.Mutex
	dev      I2CDevice
	firstPin Pin
}

// NewPCA9685Bridge wraps the given bridge with a PCA9685 running at the
// servo frequency (50Hz).
func NewPCA9685Bridge(inner API, dev I2CDevice, firstPin Pin) (API, error) {
	if !firstPin.Connected() {
		return nil, errors.Errorf("invalid first pin %s", firstPin)
	}
	prescaleval := pca9685Clock / pca9685Steps / servoFrequency
	prescale := uint8(math.Floor(prescaleval - 1.0 + 0.5))
	// MODE1: SLEEP=1, ALLCALL=1
	if err := dev.WriteByteReg(pca9685MODE1Reg, 0x11); err != nil {
		return nil, errors.Wrap(err, "failed to put pca9685 to sleep")
	}
	if err := dev.WriteByteReg(pca9685PRESCALEReg, prescale); err != nil {
		return nil, errors.Wrap(err, "failed to set pca9685 prescaler")
	}
	// MODE1: SLEEP=0, ALLCALL=1
	if err := dev.WriteByteReg(pca9685MODE1Reg, 0x01); err != nil {
		return nil, errors.Wrap(err, "failed to wake pca9685")
	}
	return &pca9685Bridge{
		API:      inner,
		dev:      dev,
		firstPin: firstPin,
	}, nil
}

// output returns the output index of the given pin, or -1 when
// the pin is not driven by the PCA9685.
func (b *pca9685Bridge) output(pin Pin) int {
	if pin < b.firstPin || pin >= b.firstPin+PCA9685Outputs {
		return -1
	}
	return int(pin - b.firstPin)
}

// DigitalWrite switches an output fully on or off.
func (b *pca9685Bridge) DigitalWrite(pin Pin, level bool) error {
	idx := b.output(pin)
	if idx < 0 {
		return b.API.DigitalWrite(pin, level)
	}
	if level {
		return b.set(idx, pca9685Full<<8, 0)
	}
	return b.set(idx, 0, pca9685Full<<8)
}

// PWMWrite sets the duty cycle of an output.
func (b *pca9685Bridge) PWMWrite(pin Pin, duty uint8) error {
	idx := b.output(pin)
	if idx < 0 {
		return b.API.PWMWrite(pin, duty)
	}
	switch duty {
	case 0:
		return b.set(idx, 0, pca9685Full<<8)
	case MaxDuty:
		return b.set(idx, pca9685Full<<8, 0)
	}
	return b.set(idx, 0, uint32(duty)*pca9685MaxValue/MaxDuty)
}

// ServoWrite sets the pulse width of an output.
func (b *pca9685Bridge) ServoWrite(pin Pin, pulse time.Duration) error {
	idx := b.output(pin)
	if idx < 0 {
		return b.API.ServoWrite(pin, pulse)
	}
	if pulse <= 0 {
		return b.set(idx, 0, pca9685Full<<8)
	}
	off := uint32(pulse * pca9685Steps / servoPeriod)
	if off > pca9685MaxValue {
		off = pca9685MaxValue
	}
	return b.set(idx, 0, off)
}

// set writes the on & off registers of an output. The values include
// the full on/off bits in their high byte.
func (b *pca9685Bridge) set(idx int, onValue, offValue uint32) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	regBase := uint8(pca9685LEDBaseReg + idx*pca9685RegIncrement)
	values := [4]uint8{
		uint8(onValue & 0xFF),
		uint8((onValue >> 8) & 0x1F),
		uint8(offValue & 0xFF),
		uint8((offValue >> 8) & 0x1F),
	}
	for i, v := range values {
		if err := b.dev.WriteByteReg(regBase+uint8(i), v); err != nil {
			pinErrorsTotal.WithLabelValues("pca9685").Inc()
			return errors.Wrapf(err, "failed to write pca9685 output %d", idx)
		}
	}
	pinWritesTotal.WithLabelValues("pca9685").Inc()
	return nil
}

// Close puts the PCA9685 to sleep and closes the wrapped bridge.
func (b *pca9685Bridge) Close() error {
	b.mutex.Lock()
	err := b.dev.WriteByteReg(pca9685MODE1Reg, 0x11)
	b.dev.Close()
	b.mutex.Unlock()
	if cerr := b.API.Close(); err == nil {
		err = cerr
	}
	return err
}
