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

package functions

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
)

const (
	// MaxAngle is the maximum servo angle in degrees.
	MaxAngle = 180
	// CenterAngle is the mid-position in degrees.
	CenterAngle = 90
	// Angles are kept in 1/100 degree.
	angleScale = 100
	// Pulse width of 0 degree and the range up to MaxAngle.
	minPulseWidth   = 700 * time.Microsecond
	pulseWidthRange = 1600 * time.Microsecond
	// Time after arrival before the pulse is switched off (auto-off).
	servoSettleDelay = 100 * time.Millisecond
)

type servoState uint8

const (
	servoIdle servoState = iota
	servoMoving
)

// Servo positions a hobby servo between two end positions.
// Channels: out1 = servo pulse, out2 = relay for position 1,
// out3 = relay for position 0.
type Servo struct {
	base

	state      servoState
	bit        uint8 // last commanded position
	angle      int   // current angle, 1/100 degree
	pulseOn    bool
	settleLeft time.Duration

	// Calibration overrides
	endpointOverride [2]int // degrees, -1 when not set
	centerOverride   bool
}

var _ Function = &Servo{}

// NewServo creates a servo at the position restored from its runtime cell.
func NewServo(log zerolog.Logger, store *cv.Store, block int, binding deployment.Function) *Servo {
	s := &Servo{
		base:             newBase(log, store, block, binding),
		endpointOverride: [2]int{-1, -1},
	}
	s.bit = s.cfg.State & 0x01
	s.angle = s.targetAngle()
	// Send a short burst of pulses so the servo holds its restored position.
	s.pulseOn = true
	s.settleLeft = servoSettleDelay
	return s
}

// Kind returns deployment.KindServo.
func (s *Servo) Kind() deployment.Kind { return deployment.KindServo }

// Blocks returns 1.
func (s *Servo) Blocks() int { return 1 }

// Reload re-reads the configuration and drops endpoint overrides.
func (s *Servo) Reload() {
	s.cfg = readConfig(s.store, s.block)
	s.endpointOverride = [2]int{-1, -1}
}

// SetCommandedState moves the servo toward the position of the given bit.
// Deactivate commands are ignored.
func (s *Servo) SetCommandedState(member int, cmd Command) bool {
	if !cmd.Activate {
		return false
	}
	bit := cmd.Bit & 0x01
	changed := s.bit != bit
	s.bit = bit
	return changed
}

// OnTick moves the servo and handles auto-off.
func (s *Servo) OnTick(delta time.Duration) {
	target := s.targetAngle()
	if s.angle != target {
		s.state = servoMoving
		s.pulseOn = true
		speed := int(s.cfg.Param3)
		if speed == 0 {
			s.angle = target
		} else {
			// param3/10 degree per 10ms equals param3/100 degree per ms.
			ms := int(delta / time.Millisecond)
			if ms < 1 {
				ms = 1
			}
			step := speed * ms
			if s.angle < target {
				s.angle = minInt(s.angle+step, target)
			} else {
				s.angle = maxInt(s.angle-step, target)
			}
		}
		if s.angle != target {
			return
		}
		s.settleLeft = servoSettleDelay
	}
	if s.state == servoMoving {
		s.state = servoIdle
	}
	// At rest the runtime cell holds the commanded bit.
	if !s.centerOverride {
		s.persistState(s.bit)
	}
	if s.pulseOn && s.autoOff() {
		s.settleLeft -= delta
		if s.settleLeft <= 0 {
			s.pulseOn = false
		}
	}
}

// Outputs returns the servo pulse and both relays.
func (s *Servo) Outputs() []ChannelOutput {
	pulse := 0
	if s.pulseOn {
		pulse = int(s.PulseWidth() / time.Microsecond)
	}
	idle := s.state == servoIdle && !s.centerOverride
	return []ChannelOutput{
		{Pin: s.pins[0], Mode: OutputServo, Value: pulse},
		{Pin: s.pins[1], Mode: OutputDigital, Value: digital(idle && s.bit == 1)},
		{Pin: s.pins[2], Mode: OutputDigital, Value: digital(idle && s.bit == 0)},
	}
}

// State returns a short description of the servo state.
func (s *Servo) State() string {
	switch {
	case s.centerOverride:
		return fmt.Sprintf("centered %d°", s.angle/angleScale)
	case s.state == servoMoving:
		return fmt.Sprintf("moving to %d (%d°)", s.bit, s.angle/angleScale)
	default:
		return fmt.Sprintf("at %d (%d°)", s.bit, s.angle/angleScale)
	}
}

// Angle returns the current angle in degrees.
func (s *Servo) Angle() float64 {
	return float64(s.angle) / angleScale
}

// IsMoving returns true while the servo has not reached its target.
func (s *Servo) IsMoving() bool {
	return s.state == servoMoving
}

// PulseWidth returns the pulse width of the current angle.
func (s *Servo) PulseWidth() time.Duration {
	return minPulseWidth + time.Duration(int64(pulseWidthRange)*int64(s.angle)/(MaxAngle*angleScale))
}

// CommandedBit returns the last commanded position.
func (s *Servo) CommandedBit() uint8 {
	return s.bit
}

// Endpoint returns the end position of the given bit in degrees.
// A calibration override takes precedence over the stored value.
func (s *Servo) Endpoint(bit uint8) int {
	bit &= 0x01
	if v := s.endpointOverride[bit]; v >= 0 {
		return v
	}
	raw := s.cfg.Param1
	if bit == 1 {
		raw = s.cfg.Param2
	}
	return minInt(int(raw), MaxAngle)
}

// EndpointCV returns the CV number holding the end position of the given bit.
func (s *Servo) EndpointCV(bit uint8) int {
	if bit&0x01 == 1 {
		return cv.BlockCV(s.block, cv.Param2)
	}
	return cv.BlockCV(s.block, cv.Param1)
}

// SetEndpointOverride sets a live end position (degrees) for the given bit
// without touching the store.
func (s *Servo) SetEndpointOverride(bit uint8, degrees int) {
	s.endpointOverride[bit&0x01] = minInt(maxInt(degrees, 0), MaxAngle)
}

// SetCenterOverride forces the servo to its mid-position while on.
func (s *Servo) SetCenterOverride(on bool) {
	s.centerOverride = on
}

// IsCentered returns true while the center override is active.
func (s *Servo) IsCentered() bool {
	return s.centerOverride
}

func (s *Servo) autoOff() bool {
	return s.cfg.Mode&deployment.ServoAutoOff != 0
}

// targetAngle returns the target in 1/100 degree.
func (s *Servo) targetAngle() int {
	if s.centerOverride {
		return CenterAngle * angleScale
	}
	return s.Endpoint(s.bit) * angleScale
}
