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

package decoder

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/calibration"
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/decoder/identity"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
	"github.com/binkynet/AccessoryDecoder/pkg/functions"
	"github.com/binkynet/AccessoryDecoder/pkg/programming"
)

const (
	// DefaultTickInterval is the interval of the scheduler.
	DefaultTickInterval = 10 * time.Millisecond
	// Upper bound of the time advanced in a single tick.
	maxTickDelta = 100 * time.Millisecond
	// Capacity of the event queue.
	queueSize = 64
)

var maskAny = errors.WithStack

type Config struct {
	Deployment   deployment.Deployment
	TickInterval time.Duration
}

type Dependencies struct {
	Log     zerolog.Logger
	Bridge  bridge.API
	Storage cv.Storage
}

// Decoder owns all decoder state. All state is modified by the scheduler
// only; other goroutines submit events.
type Decoder struct {
	Config
	Dependencies

	store       *cv.Store
	resolver    *identity.Resolver
	dispatcher  *functions.Dispatcher
	gateway     *programming.Gateway
	calibration *calibration.Controller
	writer      *outputWriter
	led         modeLED
	events      chan event
	started     time.Time
	ticks       uint64

	statusMutex sync.RWMutex
	status      Status
}

// New boots a decoder: it loads the configuration table, samples the
// mode-select and reset inputs, resolves the identity and builds all
// functions.
func New(conf Config, deps Dependencies) (*Decoder, error) {
	deps.Log = deps.Log.With().Str("component", "decoder").Logger()
	if conf.TickInterval <= 0 {
		conf.TickInterval = DefaultTickInterval
	}
	dep := conf.Deployment
	store, err := cv.NewStore(deps.Storage, dep.Image(), deps.Log)
	if err != nil {
		return nil, maskAny(err)
	}
	d := &Decoder{
		Config:       conf,
		Dependencies: deps,
		store:        store,
		writer:       newOutputWriter(deps.Log, deps.Bridge),
		events:       make(chan event, queueSize),
		started:      time.Now(),
	}

	// Sample boot inputs
	inputs := identity.Inputs{ModeLevel: bridge.MaxAnalogValue}
	if pin := dep.ModeSelectPin; pin.Connected() {
		if level, err := deps.Bridge.AnalogRead(pin); err != nil {
			deps.Log.Warn().Err(err).Msg("Failed to read mode select input")
		} else {
			inputs.ModeLevel = level
		}
	}
	inputs.ResetAsserted = d.resetHeld()

	d.resolver, err = identity.Resolve(deps.Log, store, inputs)
	if err != nil {
		return nil, maskAny(err)
	}
	id := d.resolver.Identity()

	d.dispatcher, err = functions.NewDispatcher(deps.Log, dep, store)
	if err != nil {
		// Remaining functions are still served
		deps.Log.Error().Err(err).Msg("Failed to build all functions")
	}
	if id.AddressKnown {
		d.dispatcher.SetBaseAddress(id.BaseAddress)
	}
	d.gateway = programming.NewGateway(deps.Log, store, d.resolver, d.dispatcher)
	d.calibration = calibration.New(deps.Log, calibration.Config{
		Enabled:        dep.Encoder.Enabled,
		StepsPerDetent: dep.Encoder.StepsPerDetent,
		ForceCenter:    id.ResetRequested,
	}, store, d.dispatcher, d.dispatcher.Servos())
	d.dispatcher.OnServoCommand(d.calibration.Select)

	// Initial outputs
	d.writer.write(d.dispatcher.Outputs())
	d.publishStatus()
	return d, nil
}

// Identity returns the identity of the decoder.
func (d *Decoder) Identity() identity.Identity {
	return d.resolver.Identity()
}

// resetHeld returns true while the reset input is held low.
func (d *Decoder) resetHeld() bool {
	pin := d.Deployment.ResetPin
	if !pin.Connected() {
		return false
	}
	level, err := d.Bridge.DigitalRead(pin)
	if err != nil {
		return false
	}
	return !level
}

// sampleInputs reads the encoder and reset inputs.
func (d *Decoder) sampleInputs() {
	enc := d.Deployment.Encoder
	if !enc.Enabled {
		return
	}
	a, errA := d.Bridge.DigitalRead(enc.PinA)
	b, errB := d.Bridge.DigitalRead(enc.PinB)
	if errA != nil || errB != nil {
		return
	}
	d.calibration.Sample(a, b, d.resetHeld())
}
