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
	// Maximum ramp time of a soft static output.
	maxStaticFade = 200 * time.Millisecond
)

type staticPhase uint8

const (
	staticSteady staticPhase = iota
	staticDark
	staticFirst
	staticOn
	staticOff
)

var staticPhaseNames = map[staticPhase]string{
	staticSteady: "steady",
	staticDark:   "dark",
	staticFirst:  "first",
	staticOn:     "on",
	staticOff:    "off",
}

// Static drives lamps either steady or blinking.
// Channels: out1 and out2 in anti-phase, out3 follows out1.
type Static struct {
	base

	bit       uint8
	phase     staticPhase
	phaseLeft time.Duration
	out       [2]fader
}

var _ Function = &Static{}

// NewStatic creates a static function in the state restored from its
// runtime cell.
func NewStatic(log zerolog.Logger, store *cv.Store, block int, binding deployment.Function) *Static {
	s := &Static{
		base: newBase(log, store, block, binding),
	}
	s.bit = s.cfg.State & 0x01
	s.sync()
	a, b := s.targets()
	s.out[0].jump(a)
	s.out[1].jump(b)
	return s
}

// Kind returns deployment.KindStatic.
func (s *Static) Kind() deployment.Kind { return deployment.KindStatic }

// Blocks returns 1.
func (s *Static) Blocks() int { return 1 }

// Reload re-reads the configuration.
func (s *Static) Reload() {
	s.cfg = readConfig(s.store, s.block)
}

// SetCommandedState switches the output on (1) or off (0).
// Deactivate commands are ignored.
func (s *Static) SetCommandedState(member int, cmd Command) bool {
	if !cmd.Activate {
		return false
	}
	bit := cmd.Bit & 0x01
	if bit == s.bit {
		return false
	}
	s.bit = bit
	s.phase = staticSteady
	s.persistState(bit)
	return true
}

// OnTick advances the blink cycle and the faders.
func (s *Static) OnTick(delta time.Duration) {
	s.sync()
	switch s.phase {
	case staticFirst, staticOn, staticOff:
		s.phaseLeft -= delta
		if s.phaseLeft <= 0 {
			if s.phase == staticOff {
				s.phase = staticOn
				s.phaseLeft += s.onTime()
			} else {
				s.phase = staticOff
				s.phaseLeft += s.offTime()
			}
			if s.phaseLeft <= 0 {
				s.phaseLeft = 10 * time.Millisecond
			}
		}
	}
	a, b := s.targets()
	s.out[0].set(a)
	s.out[1].set(b)
	fade := s.fadeTime()
	s.out[0].step(delta, fade)
	s.out[1].step(delta, fade)
}

// Outputs returns the level of all 3 channels.
func (s *Static) Outputs() []ChannelOutput {
	mode := OutputDigital
	value := func(f *fader) int { return digital(f.duty() > 0) }
	if s.soft() {
		mode = OutputPWM
		value = func(f *fader) int { return f.duty() }
	}
	return []ChannelOutput{
		{Pin: s.pins[0], Mode: mode, Value: value(&s.out[0])},
		{Pin: s.pins[1], Mode: mode, Value: value(&s.out[1])},
		{Pin: s.pins[2], Mode: mode, Value: value(&s.out[0])},
	}
}

// State returns a short description of the static state.
func (s *Static) State() string {
	return fmt.Sprintf("%d %s", s.bit, staticPhaseNames[s.phase])
}

// sync makes the phase consistent with the mode and commanded bit.
func (s *Static) sync() {
	switch {
	case !s.blink():
		s.phase = staticSteady
	case s.bit == 0:
		s.phase = staticDark
	case s.phase == staticSteady || s.phase == staticDark:
		s.phase = staticFirst
		s.phaseLeft = tenMs(s.cfg.Param3)
		if s.cfg.Param3 == 0 {
			s.phaseLeft = s.onTime()
		}
	}
}

// targets returns the desired level of out1 and out2.
func (s *Static) targets() (bool, bool) {
	switch s.phase {
	case staticSteady:
		return s.bit == 1, s.bit == 0
	case staticFirst:
		return true, s.cfg.Mode&deployment.StaticBothOnStart != 0
	case staticOn:
		return true, false
	case staticOff:
		return false, true
	default:
		return false, false
	}
}

func (s *Static) blink() bool {
	return s.cfg.Mode&deployment.StaticBlink != 0
}

func (s *Static) soft() bool {
	return s.cfg.Mode&deployment.StaticSoft != 0
}

func (s *Static) onTime() time.Duration {
	return tenMs(byte(maxInt(int(s.cfg.Param1), 1)))
}

func (s *Static) offTime() time.Duration {
	return tenMs(byte(maxInt(int(s.cfg.Param2), 1)))
}

// fadeTime returns the ramp time of a full swing, 0 for hard switching.
func (s *Static) fadeTime() time.Duration {
	if !s.soft() {
		return 0
	}
	if !s.blink() {
		return maxStaticFade
	}
	shortest := s.onTime()
	if off := s.offTime(); off < shortest {
		shortest = off
	}
	if half := shortest / 2; half < maxStaticFade {
		return half
	}
	return maxStaticFade
}
