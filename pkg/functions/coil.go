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

type coilState uint8

const (
	coilOff coilState = iota
	coilPulsing
)

// Coil drives a dual-coil solenoid with time limited pulses.
// Channels: out1 = coil for bit 0, out2 = coil for bit 1.
type Coil struct {
	base

	state     coilState
	channel   uint8
	pulseLeft time.Duration
	offTime   time.Duration // time since the last pulse ended
	pulses    int
}

var _ Function = &Coil{}

// NewCoil creates a coil function in the Off state.
func NewCoil(log zerolog.Logger, store *cv.Store, block int, binding deployment.Function) *Coil {
	c := &Coil{
		base: newBase(log, store, block, binding),
	}
	c.channel = c.cfg.State & 0x01
	c.offTime = c.minOffTime()
	return c
}

// Kind returns deployment.KindCoil.
func (c *Coil) Kind() deployment.Kind { return deployment.KindCoil }

// Blocks returns 1.
func (c *Coil) Blocks() int { return 1 }

// Reload re-reads the configuration.
func (c *Coil) Reload() {
	c.cfg = readConfig(c.store, c.block)
}

// SetCommandedState starts or ends a pulse.
func (c *Coil) SetCommandedState(member int, cmd Command) bool {
	if cmd.Activate {
		if c.state == coilPulsing || c.offTime < c.minOffTime() {
			// Busy or thermal protection
			return false
		}
		c.state = coilPulsing
		c.channel = cmd.Bit & 0x01
		c.pulseLeft = c.pulseTime()
		c.pulses++
		coilPulsesTotal.WithLabelValues(blockLabel(c.block)).Inc()
		c.persistState(c.channel)
		return true
	}
	if c.state == coilPulsing && !c.autoOff() {
		c.endPulse()
		return true
	}
	return false
}

// OnTick ends auto-off pulses and tracks the off time.
func (c *Coil) OnTick(delta time.Duration) {
	switch c.state {
	case coilPulsing:
		if !c.autoOff() {
			return
		}
		c.pulseLeft -= delta
		if c.pulseLeft <= 0 {
			c.endPulse()
		}
	case coilOff:
		if c.offTime < c.minOffTime() {
			c.offTime += delta
		}
	}
}

// Outputs returns the level of both coils.
func (c *Coil) Outputs() []ChannelOutput {
	pulsing := c.state == coilPulsing
	return []ChannelOutput{
		{Pin: c.pins[0], Mode: OutputDigital, Value: digital(pulsing && c.channel == 0)},
		{Pin: c.pins[1], Mode: OutputDigital, Value: digital(pulsing && c.channel == 1)},
	}
}

// State returns a short description of the coil state.
func (c *Coil) State() string {
	if c.state == coilPulsing {
		return fmt.Sprintf("pulsing %d", c.channel)
	}
	return fmt.Sprintf("off (last %d)", c.channel)
}

// Pulses returns the number of pulses started since creation.
func (c *Coil) Pulses() int {
	return c.pulses
}

// IsPulsing returns true while a coil is driven.
func (c *Coil) IsPulsing() bool {
	return c.state == coilPulsing
}

func (c *Coil) endPulse() {
	c.state = coilOff
	c.offTime = 0
}

func (c *Coil) autoOff() bool {
	return c.cfg.Mode&deployment.CoilAutoOff != 0
}

func (c *Coil) pulseTime() time.Duration {
	return tenMs(byte(maxInt(int(c.cfg.Param1), 1)))
}

func (c *Coil) minOffTime() time.Duration {
	return tenMs(c.cfg.Param2)
}
