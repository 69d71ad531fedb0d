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

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
)

const (
	// A pattern byte drives at most 8 channels.
	maxSignalChannels = 8
	maxSignalMembers  = 3
)

// Signal drives the lamps of a signal spanning 2 or 3 sub-addresses.
// The commanded bits of the members form an aspect index that selects
// a channel bit pattern.
type Signal struct {
	base

	kind    deployment.Kind
	members int
	bits    [maxSignalMembers]uint8
	aspect  uint8
	// Flattened pins of all members
	channels []bridge.Pin
	// Block configuration of members 2 and 3
	ext [maxSignalMembers - 1]Config
	out [maxSignalChannels]fader
}

var _ Function = &Signal{}

// NewSignal creates a signal group from the bindings of its members.
// The first binding is the signal itself, the others are continuations.
func NewSignal(log zerolog.Logger, store *cv.Store, block int, bindings []deployment.Function) *Signal {
	s := &Signal{
		base:    newBase(log, store, block, bindings[0]),
		kind:    bindings[0].Kind,
		members: minInt(len(bindings), maxSignalMembers),
	}
	for _, b := range bindings[:s.members] {
		for i := 0; i < deployment.PinsPerFunction; i++ {
			s.channels = append(s.channels, b.Pin(i))
		}
	}
	s.readExtensions()
	s.aspect = s.cfg.State & s.aspectMask()
	for m := 0; m < s.members; m++ {
		s.bits[m] = (s.aspect >> (s.members - 1 - m)) & 0x01
	}
	pattern := s.Pattern(s.aspect)
	for i := range s.out {
		s.out[i].jump(pattern&(1<<i) != 0)
	}
	return s
}

// Kind returns deployment.KindSignal2 or deployment.KindSignal3.
func (s *Signal) Kind() deployment.Kind { return s.kind }

// Blocks returns the number of member sub-addresses.
func (s *Signal) Blocks() int { return s.members }

// Reload re-reads the configuration of all members.
func (s *Signal) Reload() {
	s.cfg = readConfig(s.store, s.block)
	s.readExtensions()
}

// SetCommandedState records the bit of the given member and updates the
// aspect. Deactivate commands are ignored.
func (s *Signal) SetCommandedState(member int, cmd Command) bool {
	if !cmd.Activate || member < 0 || member >= s.members {
		return false
	}
	s.bits[member] = cmd.Bit & 0x01
	// The first member is the most significant bit.
	aspect := uint8(0)
	for m := 0; m < s.members; m++ {
		aspect = aspect<<1 | s.bits[m]
	}
	if aspect == s.aspect {
		return false
	}
	s.aspect = aspect
	s.persistState(aspect)
	return true
}

// OnTick moves the channels toward the pattern of the current aspect.
func (s *Signal) OnTick(delta time.Duration) {
	pattern := s.Pattern(s.aspect)
	mask := s.HardMask()
	fade := tenMs(s.cfg.Param3)
	for i := range s.out {
		s.out[i].set(pattern&(1<<i) != 0)
		if mask&(1<<i) != 0 {
			s.out[i].step(delta, 0)
		} else {
			s.out[i].step(delta, fade)
		}
	}
}

// Outputs returns the level of every member channel.
func (s *Signal) Outputs() []ChannelOutput {
	mask := s.HardMask()
	result := make([]ChannelOutput, 0, len(s.channels))
	for i, pin := range s.channels {
		if i >= maxSignalChannels {
			result = append(result, ChannelOutput{Pin: pin, Mode: OutputDigital})
			continue
		}
		if mask&(1<<i) != 0 {
			result = append(result, ChannelOutput{Pin: pin, Mode: OutputDigital, Value: digital(s.out[i].duty() > 0)})
		} else {
			result = append(result, ChannelOutput{Pin: pin, Mode: OutputPWM, Value: s.out[i].duty()})
		}
	}
	return result
}

// State returns a short description of the aspect.
func (s *Signal) State() string {
	return fmt.Sprintf("aspect %0*b pattern %08b", s.members, s.aspect, s.Pattern(s.aspect))
}

// Aspect returns the current aspect index.
func (s *Signal) Aspect() uint8 {
	return s.aspect
}

// HardMask returns the channel mask of hard switched channels.
func (s *Signal) HardMask() byte {
	return s.ext[0].Mode
}

// Pattern returns the channel bit pattern of the given aspect.
// Aspects beyond the group size yield an empty pattern.
func (s *Signal) Pattern(aspect uint8) byte {
	if aspect > s.aspectMask() {
		return 0
	}
	var p byte
	switch aspect {
	case 0:
		p = s.cfg.Param1
	case 1:
		p = s.cfg.Param2
	case 2:
		p = s.ext[0].Param1
	case 3:
		p = s.ext[0].Param2
	case 4:
		p = s.ext[1].Mode
	case 5:
		p = s.ext[1].Param1
	case 6:
		p = s.ext[1].Param2
	case 7:
		p = s.ext[1].Param3
	}
	if n := len(s.channels); n < maxSignalChannels {
		p &= byte(1<<n) - 1
	}
	return p
}

func (s *Signal) aspectMask() uint8 {
	return uint8(1<<s.members) - 1
}

func (s *Signal) readExtensions() {
	for m := 1; m < s.members; m++ {
		s.ext[m-1] = readConfig(s.store, s.block+m)
	}
}
