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

// Kind of output function bound to a sub-address.
type Kind string

const (
	KindServo  Kind = "servo"
	KindCoil   Kind = "coil"
	KindStatic Kind = "static"
	// KindSignal2 / KindSignal3 start a signal group spanning 2 or 3
	// sub-addresses. The group's remaining sub-addresses are bound to
	// KindSignalContinuation.
	KindSignal2            Kind = "signal2"
	KindSignal3            Kind = "signal3"
	KindSignalContinuation Kind = "signal0"
)

// IsValid returns true if the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindServo, KindCoil, KindStatic, KindSignal2, KindSignal3, KindSignalContinuation:
		return true
	default:
		return false
	}
}

// GroupSize returns the number of sub-addresses used by a function of this kind.
// Continuations return 0 since they belong to a preceding signal.
func (k Kind) GroupSize() int {
	switch k {
	case KindSignal2:
		return 2
	case KindSignal3:
		return 3
	case KindSignalContinuation:
		return 0
	default:
		return 1
	}
}

// Mode bits of the first cell of a parameter block.
const (
	// Servo: disable pulses once the target is reached.
	ServoAutoOff = 0x01
	// Coil: end the pulse after param1 instead of waiting for a deactivate.
	CoilAutoOff = 0x01
	// Static: blink instead of steady output.
	StaticBlink = 0x01
	// Static: start blinking with both outputs on.
	StaticBothOnStart = 0x02
	// Static: fade instead of hard switching.
	StaticSoft = 0x04
)
