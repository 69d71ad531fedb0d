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
	"fmt"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
)

var (
	// ErrValidation is the cause of all deployment validation errors.
	ErrValidation = errors.New("validation failed")
)

func invalid(format string, args ...interface{}) error {
	return errors.Wrap(ErrValidation, fmt.Sprintf(format, args...))
}

// Validate the deployment, returning nil on ok,
// or an (aggregated) error upon validation issues.
func (d Deployment) Validate() error {
	var ae aerr.AggregateError
	if d.Address < 1 || d.Address > cv.MaxAddress {
		ae.Add(invalid("address %d out of range [1..%d]", d.Address, cv.MaxAddress))
	}
	if d.PomAddress < 0 || d.PomAddress > 0xFFFF {
		ae.Add(invalid("pom address %d out of range [0..65535]", d.PomAddress))
	}
	if d.Options&0xF0 != 0 {
		ae.Add(invalid("options 0x%02x use marker bits", d.Options))
	}
	if d.Encoder.Enabled {
		if !d.Encoder.PinA.Connected() || !d.Encoder.PinB.Connected() {
			ae.Add(invalid("encoder enabled without both pins"))
		}
		switch d.Encoder.StepsPerDetent {
		case 1, 2, 4:
			// ok
		default:
			ae.Add(invalid("encoder steps per detent must be 1, 2 or 4, got %d", d.Encoder.StepsPerDetent))
		}
	}
	if len(d.Functions) == 0 || len(d.Functions) > cv.MaxBlocks {
		ae.Add(invalid("function count %d out of range [1..%d]", len(d.Functions), cv.MaxBlocks))
	}
	for i, f := range d.Functions {
		if err := f.validate(i); err != nil {
			ae.Add(err)
		}
	}
	for _, err := range d.validateGroups() {
		ae.Add(err)
	}
	if dups := lo.FindDuplicates(d.connectedPins()); len(dups) > 0 {
		ae.Add(invalid("pins used more than once: %v", dups))
	}
	return ae.AsError()
}

// validate a single function binding.
func (f Function) validate(index int) error {
	if !f.Kind.IsValid() {
		return invalid("function %d: unknown kind '%s'", index, f.Kind)
	}
	if len(f.Pins) > PinsPerFunction {
		return invalid("function %d: %d pins, at most %d allowed", index, len(f.Pins), PinsPerFunction)
	}
	switch f.Kind {
	case KindServo:
		if !f.Pin(0).Connected() {
			return invalid("function %d: servo needs a connected first pin", index)
		}
	case KindCoil:
		if !f.Pin(0).Connected() && !f.Pin(1).Connected() {
			return invalid("function %d: coil needs at least one connected pin", index)
		}
	}
	return nil
}

// validateGroups checks that every signal is followed by the right number
// of continuations and that no continuation stands alone.
func (d Deployment) validateGroups() []error {
	var result []error
	for i := 0; i < len(d.Functions); {
		f := d.Functions[i]
		if f.Kind == KindSignalContinuation {
			result = append(result, invalid("function %d: continuation without signal", i))
			i++
			continue
		}
		size := f.Kind.GroupSize()
		for j := 1; j < size; j++ {
			if i+j >= len(d.Functions) || d.Functions[i+j].Kind != KindSignalContinuation {
				result = append(result, invalid("function %d: %s needs a continuation at %d", i, f.Kind, i+j))
				size = j
				break
			}
		}
		i += size
	}
	return result
}

// connectedPins returns all connected pins of the deployment.
func (d Deployment) connectedPins() []bridge.Pin {
	var all []bridge.Pin
	for _, f := range d.Functions {
		all = append(all, f.Pins...)
	}
	all = append(all, d.ModeSelectPin, d.ResetPin, d.ModeLEDPin)
	if d.Encoder.Enabled {
		all = append(all, d.Encoder.PinA, d.Encoder.PinB)
	}
	return lo.Filter(all, func(p bridge.Pin, _ int) bool { return p.Connected() })
}
