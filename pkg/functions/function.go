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
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
)

// Command is a commanded state for a single sub-address.
type Command struct {
	// Output bit (0 or 1)
	Bit uint8
	// Activate is false for the "off" part of an accessory command.
	Activate bool
}

// OutputMode is the way a channel must be driven.
type OutputMode uint8

const (
	OutputDigital OutputMode = iota
	OutputPWM
	OutputServo
)

// String returns a short name of the mode.
func (m OutputMode) String() string {
	switch m {
	case OutputDigital:
		return "digital"
	case OutputPWM:
		return "pwm"
	case OutputServo:
		return "servo"
	default:
		return "unknown"
	}
}

// ChannelOutput is the physical output of one channel.
type ChannelOutput struct {
	Pin  bridge.Pin
	Mode OutputMode
	// Digital: 0/1, PWM: duty (0..255), Servo: pulse width in
	// microseconds (0 = no pulses).
	Value int
}

// Function is the state machine of one output function.
// None of the methods may block.
type Function interface {
	// Kind returns the kind of function.
	Kind() deployment.Kind
	// Block returns the index of the first parameter block (sub-address)
	// owned by the function.
	Block() int
	// Blocks returns the number of parameter blocks owned by the function.
	Blocks() int
	// Reload re-reads the configuration from the store.
	Reload()
	// SetCommandedState records the desired state received on the given
	// member sub-address (0 for single address functions).
	// Returns true if the command changed the commanded state.
	SetCommandedState(member int, cmd Command) bool
	// OnTick advances the state machine by the given time.
	OnTick(delta time.Duration)
	// Outputs returns the current physical outputs of all channels.
	Outputs() []ChannelOutput
	// State returns a short description of the state machine state.
	State() string
}

// Config is the parameter block of a single sub-address.
type Config struct {
	Mode   byte
	Param1 byte
	Param2 byte
	Param3 byte
	State  byte
}

// readConfig reads parameter block k from the store.
func readConfig(store *cv.Store, k int) Config {
	return Config{
		Mode:   store.MustGet(cv.BlockCV(k, cv.ParamMode)),
		Param1: store.MustGet(cv.BlockCV(k, cv.Param1)),
		Param2: store.MustGet(cv.BlockCV(k, cv.Param2)),
		Param3: store.MustGet(cv.BlockCV(k, cv.Param3)),
		State:  store.MustGet(cv.BlockCV(k, cv.ParamState)),
	}
}

// base holds the fields shared by all functions.
type base struct {
	log   zerolog.Logger
	store *cv.Store
	block int
	pins  [deployment.PinsPerFunction]bridge.Pin
	cfg   Config
}

func newBase(log zerolog.Logger, store *cv.Store, block int, binding deployment.Function) base {
	b := base{
		log:   log,
		store: store,
		block: block,
	}
	for i := range b.pins {
		b.pins[i] = binding.Pin(i)
	}
	b.cfg = readConfig(store, block)
	return b
}

// Block returns the index of the first parameter block.
func (b *base) Block() int { return b.block }

// persistState writes the runtime-state cell of the first block.
// Writing an unchanged value is a no-op.
func (b *base) persistState(value byte) {
	if b.cfg.State == value {
		return
	}
	if err := b.store.Set(cv.BlockCV(b.block, cv.ParamState), value); err != nil {
		b.log.Warn().Err(err).Msg("Failed to persist runtime state")
		return
	}
	b.cfg.State = value
	stateWritesTotal.WithLabelValues(blockLabel(b.block)).Inc()
}

// tenMs converts a CV value in 10ms units into a duration.
func tenMs(v byte) time.Duration {
	return time.Duration(v) * 10 * time.Millisecond
}

// digital returns the digital output value of the given level.
func digital(on bool) int {
	if on {
		return 1
	}
	return 0
}
