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

package identity

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
)

const (
	// Roco command stations number accessory outputs 4 lower.
	rocoOffset = 4
)

// Identity of a running decoder.
type Identity struct {
	// Accessory address of sub-address 0. Only valid when AddressKnown is set.
	BaseAddress int
	// True once the base address is known.
	// Only false in full programming mode before the first command.
	AddressKnown bool
	Mode         Mode
	Band         Band
	// Service address for conditional program-on-main writes
	PomAddress int
	// Set when incoming accessory addresses must be shifted by +4.
	RocoAddress bool
	// Set when the configuration was reset during boot.
	WasReset bool
	// Set when the reset input was asserted at boot.
	ResetRequested bool
}

// TranslateAddress converts an accessory address received from the
// command station into the address space of the decoder.
func (id Identity) TranslateAddress(address int) int {
	if id.RocoAddress {
		return address + rocoOffset
	}
	return address
}

// AuthorizesPom returns true if a program-on-main write for the given
// service address is accepted in the current mode.
func (id Identity) AuthorizesPom(serviceAddress int) bool {
	switch id.Mode {
	case ModePomAlways, ModeFullProgramming:
		return true
	case ModePomConditional:
		return serviceAddress == id.PomAddress
	default:
		return false
	}
}

// Inputs are the hardware inputs sampled once at boot.
type Inputs struct {
	// Level of the mode-select input (0..1023)
	ModeLevel int
	// True when the reset input is held low
	ResetAsserted bool
}

// Resolver determines the identity of the decoder at boot and handles
// address learning in full programming mode.
type Resolver struct {
	log   zerolog.Logger
	store *cv.Store

	mutex sync.RWMutex
	id    Identity
}

// Resolve initializes the configuration table if needed and determines the
// operating mode and base address.
func Resolve(log zerolog.Logger, store *cv.Store, in Inputs) (*Resolver, error) {
	r := &Resolver{
		log:   log.With().Str("component", "identity").Logger(),
		store: store,
	}
	id := Identity{
		ResetRequested: in.ResetAsserted,
	}
	switch {
	case in.ResetAsserted:
		r.log.Warn().Msg("Reset input asserted at boot")
		id.WasReset = true
	case !store.IsInitialized():
		r.log.Warn().Msg("Configuration table is not initialized")
		id.WasReset = true
	}
	if id.WasReset {
		if err := store.ResetToDefaults(); err != nil {
			return nil, errors.Wrap(err, "failed to reset configuration")
		}
	}

	options := store.Options()
	id.Band = QuantizeBand(in.ModeLevel)
	id.RocoAddress = options&cv.OptionRocoAddress != 0
	id.PomAddress = store.PomAddress()
	stored := store.BaseAddress()
	switch id.Band {
	case BandMidLow:
		r.log.Warn().Int("level", in.ModeLevel).Msg("Mode select in reserved band, using normal mode")
		fallthrough
	case BandHigh:
		id.Mode = ModeNormal
		if options&cv.OptionPomEnabled != 0 {
			id.Mode = ModePomConditional
		}
		id.BaseAddress, id.AddressKnown = stored, true
	case BandMidHigh:
		defaults := store.Defaults()
		id.Mode = ModePomAlways
		id.BaseAddress = int(uint16(defaults.Get(cv.CVAddressLow))|uint16(defaults.Get(cv.CVAddressHigh))<<8) & cv.MaxAddress
		id.AddressKnown = true
	case BandLow:
		if options&cv.OptionAutoAddress != 0 {
			id.Mode = ModeFullProgramming
		} else {
			id.Mode = ModePomAlways
			id.BaseAddress, id.AddressKnown = stored, true
		}
	}
	r.id = id
	r.updateMetrics()
	r.log.Info().
		Str("mode", id.Mode.String()).
		Str("band", id.Band.String()).
		Int("base-address", id.BaseAddress).
		Bool("address-known", id.AddressKnown).
		Bool("roco", id.RocoAddress).
		Bool("reset", id.WasReset).
		Msg("Resolved decoder identity")
	return r, nil
}

// Identity returns the current identity.
func (r *Resolver) Identity() Identity {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.id
}

// Learn sets the base address from the first accessory command received in
// full programming mode and persists it.
// Returns true if the address was learned by this call.
func (r *Resolver) Learn(address int) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.id.Mode != ModeFullProgramming || r.id.AddressKnown {
		return false, nil
	}
	if address < 1 || address > cv.MaxAddress {
		return false, nil
	}
	r.id.BaseAddress = address
	r.id.AddressKnown = true
	addressLearnedTotal.Inc()
	r.updateMetrics()
	r.log.Info().Int("address", address).Msg("Learned base address")
	if err := r.store.SetBaseAddress(address); err != nil {
		return true, errors.Wrap(err, "failed to persist learned address")
	}
	return true, nil
}

func (r *Resolver) updateMetrics() {
	for _, m := range []Mode{ModeNormal, ModePomAlways, ModePomConditional, ModeFullProgramming} {
		v := 0.0
		if m == r.id.Mode {
			v = 1
		}
		modeGauge.WithLabelValues(m.String()).Set(v)
	}
	baseAddressGauge.Set(float64(r.id.BaseAddress))
}
