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

package calibration

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/functions"
)

const (
	// Idle time of the encoder after which a pending endpoint is written.
	CommitDelay = time.Second
)

// ConfigListener is informed about committed CV writes.
type ConfigListener interface {
	ConfigChanged(cv int)
}

// Config of the calibration controller.
type Config struct {
	// Enabled is false when no encoder is connected.
	Enabled bool
	// Number of quadrature steps per detent.
	StepsPerDetent int
	// Center all servos until the first encoder movement or
	// a new command to the servo.
	ForceCenter bool
}

// Status of a calibration session.
type Status struct {
	// Block of the selected servo, -1 when none is selected.
	Selected int `json:"selected"`
	// Endpoint bit and angle being adjusted.
	Bit     uint8 `json:"bit"`
	Angle   int   `json:"angle"`
	Pending bool  `json:"pending"`
	// Center override active on the selected servo.
	Centered bool `json:"centered"`
	// Number of servos still forced to center.
	ForcedCenter int `json:"forcedCenter"`
}

type pendingWrite struct {
	servo *functions.Servo
	bit   uint8
	angle int
}

// Controller adjusts the end positions of the most recently commanded
// servo with a rotary encoder.
type Controller struct {
	log      zerolog.Logger
	store    *cv.Store
	listener ConfigListener
	enabled  bool
	encoder  quadrature

	// Weak reference; the dispatcher owns the servo.
	selected   *functions.Servo
	forced     map[*functions.Servo]struct{}
	centerHeld bool
	pending    *pendingWrite
	idle       time.Duration
}

// New creates a calibration controller for the given servos.
func New(log zerolog.Logger, cfg Config, store *cv.Store, listener ConfigListener, servos []*functions.Servo) *Controller {
	c := &Controller{
		log:      log.With().Str("component", "calibration").Logger(),
		store:    store,
		listener: listener,
		enabled:  cfg.Enabled,
		encoder:  newQuadrature(cfg.StepsPerDetent),
		forced:   make(map[*functions.Servo]struct{}),
	}
	if cfg.ForceCenter {
		for _, s := range servos {
			s.SetCenterOverride(true)
			c.forced[s] = struct{}{}
		}
		c.log.Info().Int("servos", len(servos)).Msg("Centering all servos")
	}
	return c
}

// Select makes the given servo the target of calibration.
// Called for every command dispatched to a servo.
func (c *Controller) Select(s *functions.Servo) {
	if _, found := c.forced[s]; found {
		delete(c.forced, s)
		if !(c.centerHeld && c.selected == s) {
			s.SetCenterOverride(false)
		}
	}
	if c.selected == s {
		return
	}
	if err := c.commit(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to commit endpoint")
	}
	if c.selected != nil && c.centerHeld {
		c.selected.SetCenterOverride(false)
		if c.enabled {
			s.SetCenterOverride(true)
		}
	}
	c.selected = s
	c.log.Debug().Int("block", s.Block()).Msg("Selected servo")
}

// Sample processes the sampled encoder and reset inputs.
// resetHeld is true while the reset input is held low.
func (c *Controller) Sample(a, b, resetHeld bool) {
	if !c.enabled {
		return
	}
	if detents := c.encoder.update(a, b); detents != 0 {
		c.releaseForced()
		c.adjust(detents)
	}
	if resetHeld != c.centerHeld {
		c.centerHeld = resetHeld
		if c.selected != nil {
			if _, forced := c.forced[c.selected]; !forced {
				c.selected.SetCenterOverride(resetHeld)
			}
		}
	}
}

// Tick commits a pending endpoint once the encoder is idle long enough.
func (c *Controller) Tick(delta time.Duration) {
	if c.pending == nil {
		return
	}
	c.idle += delta
	if c.idle >= CommitDelay {
		if err := c.commit(); err != nil {
			c.log.Warn().Err(err).Msg("Failed to commit endpoint")
		}
	}
}

// Flush commits a pending endpoint immediately.
func (c *Controller) Flush() error {
	return c.commit()
}

// Status returns the state of the calibration session.
func (c *Controller) Status() Status {
	st := Status{
		Selected:     -1,
		Centered:     c.centerHeld,
		ForcedCenter: len(c.forced),
	}
	if s := c.selected; s != nil {
		st.Selected = s.Block()
		st.Bit = s.CommandedBit()
		st.Angle = s.Endpoint(st.Bit)
		st.Centered = s.IsCentered()
	}
	st.Pending = c.pending != nil
	return st
}

// releaseForced ends the boot time center override of all servos.
func (c *Controller) releaseForced() {
	if len(c.forced) == 0 {
		return
	}
	for s := range c.forced {
		if !(c.centerHeld && s == c.selected) {
			s.SetCenterOverride(false)
		}
	}
	c.forced = make(map[*functions.Servo]struct{})
	c.log.Info().Msg("Released center of all servos")
}

// adjust moves the endpoint of the selected servo by the given number of
// degrees.
func (c *Controller) adjust(detents int) {
	s := c.selected
	if s == nil {
		return
	}
	bit := s.CommandedBit()
	angle := s.Endpoint(bit) + detents
	if angle < 0 {
		angle = 0
	} else if angle > functions.MaxAngle {
		angle = functions.MaxAngle
	}
	s.SetEndpointOverride(bit, angle)
	if c.pending != nil && (c.pending.servo != s || c.pending.bit != bit) {
		if err := c.commit(); err != nil {
			c.log.Warn().Err(err).Msg("Failed to commit endpoint")
		}
	}
	c.pending = &pendingWrite{servo: s, bit: bit, angle: angle}
	c.idle = 0
	detentsTotal.Add(float64(abs(detents)))
	c.log.Debug().Int("block", s.Block()).Uint8("bit", bit).Int("angle", angle).Msg("Adjusted endpoint")
}

// commit writes a pending endpoint to the store.
func (c *Controller) commit() error {
	p := c.pending
	if p == nil {
		return nil
	}
	c.pending = nil
	n := p.servo.EndpointCV(p.bit)
	if err := c.store.Set(n, byte(p.angle)); err != nil {
		commitErrorsTotal.Inc()
		return errors.Wrapf(err, "failed to store endpoint of block %d", p.servo.Block())
	}
	commitsTotal.Inc()
	c.listener.ConfigChanged(n)
	c.log.Info().Int("cv", n).Int("angle", p.angle).Msg("Stored servo endpoint")
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
