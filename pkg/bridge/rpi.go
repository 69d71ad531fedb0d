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

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

const (
	// Duty threshold above which a PWM write turns a digital pin on.
	rpiPWMThreshold = MaxDuty / 2
)

type inputPin interface {
	Read() (bool, error)
}

type outputPin interface {
	Write(bool) error
}

type piBridge struct {
	mutex       sync.Mutex
	analogLevel int
	inputs      map[Pin]inputPin
	outputs     map[Pin]outputPin
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's.
// The board has no analog inputs, so AnalogRead returns the given level
// for every pin.
func NewRaspberryPiBridge(analogLevel int) (API, error) {
	if analogLevel < 0 || analogLevel > MaxAnalogValue {
		return nil, errors.Errorf("analog level %d out of range", analogLevel)
	}
	return &piBridge{
		analogLevel: analogLevel,
		inputs:      make(map[Pin]inputPin),
		outputs:     make(map[Pin]outputPin),
	}, nil
}

// AnalogRead returns the configured analog level.
func (p *piBridge) AnalogRead(pin Pin) (int, error) {
	return p.analogLevel, nil
}

// DigitalRead returns the level of the digital input at given pin.
func (p *piBridge) DigitalRead(pin Pin) (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	in, found := p.inputs[pin]
	if !found {
		activeLow := false
		x, err := gpio.Input(int(pin), activeLow)
		if err != nil {
			pinErrorsTotal.WithLabelValues("rpi").Inc()
			return false, errors.Wrapf(err, "Input[%d] failed", pin)
		}
		in = x
		p.inputs[pin] = in
	}
	v, err := in.Read()
	if err != nil {
		pinErrorsTotal.WithLabelValues("rpi").Inc()
		return false, errors.Wrapf(err, "Read[%d] failed", pin)
	}
	return v, nil
}

// DigitalWrite sets the level of the digital output at given pin.
func (p *piBridge) DigitalWrite(pin Pin, level bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	out, found := p.outputs[pin]
	if !found {
		activeLow := false
		x, err := gpio.Output(int(pin), activeLow, level)
		if err != nil {
			pinErrorsTotal.WithLabelValues("rpi").Inc()
			return errors.Wrapf(err, "Output[%d] failed", pin)
		}
		p.outputs[pin] = x
		pinWritesTotal.WithLabelValues("rpi").Inc()
		return nil
	}
	if err := out.Write(level); err != nil {
		pinErrorsTotal.WithLabelValues("rpi").Inc()
		return errors.Wrapf(err, "Write[%d] failed", pin)
	}
	pinWritesTotal.WithLabelValues("rpi").Inc()
	return nil
}

// PWMWrite drives the pin digitally, on when duty is above half.
func (p *piBridge) PWMWrite(pin Pin, duty uint8) error {
	return p.DigitalWrite(pin, duty > rpiPWMThreshold)
}

// ServoWrite is not supported on the GPIO header.
func (p *piBridge) ServoWrite(pin Pin, pulse time.Duration) error {
	return errors.Wrapf(ErrNotSupported, "servo on pin %d", pin)
}

// Close releases all pins.
func (p *piBridge) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for pin, out := range p.outputs {
		if err := out.Write(false); err != nil {
			return errors.Wrapf(err, "Write[%d] failed", pin)
		}
	}
	p.inputs = make(map[Pin]inputPin)
	p.outputs = make(map[Pin]outputPin)
	return nil
}
