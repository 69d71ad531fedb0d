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

package programming

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/decoder/identity"
)

const (
	// Writing this value to CVManufacturer resets all CVs to defaults.
	CVManufacturer = 8
	factoryReset   = 8
)

// IdentitySource provides the decoder identity and address learning.
type IdentitySource interface {
	Identity() identity.Identity
	Learn(address int) (bool, error)
}

// FunctionSet is informed about configuration changes.
type FunctionSet interface {
	// ConfigChanged marks the function owning the CV for reload.
	ConfigChanged(cv int)
	// ReloadAll marks all functions for reload.
	ReloadAll()
	// SetBaseAddress sets the accessory address of sub-address 0.
	SetBaseAddress(addr int)
}

// Gateway applies programming requests to the configuration store.
type Gateway struct {
	log       zerolog.Logger
	store     *cv.Store
	identity  IdentitySource
	functions FunctionSet
}

// NewGateway creates a new programming gateway.
func NewGateway(log zerolog.Logger, store *cv.Store, ids IdentitySource, functions FunctionSet) *Gateway {
	return &Gateway{
		log:       log.With().Str("component", "programming").Logger(),
		store:     store,
		identity:  ids,
		functions: functions,
	}
}

// Handle applies the given request and returns the (resulting) CV value.
// Rejected requests return an error but leave the store untouched.
func (g *Gateway) Handle(req Request) (byte, error) {
	if req.Write {
		if err := g.Write(req); err != nil {
			return 0, err
		}
	}
	return g.Read(req)
}

// Read returns the value of the requested CV.
func (g *Gateway) Read(req Request) (byte, error) {
	if err := g.authorize(req); err != nil {
		return 0, err
	}
	v, err := g.store.Get(req.CV)
	if err != nil {
		countRequest(req, "invalid")
		return 0, maskAny(err)
	}
	if !req.Write {
		countRequest(req, "ok")
	}
	return v, nil
}

// Write applies the requested write.
func (g *Gateway) Write(req Request) error {
	if err := g.authorize(req); err != nil {
		return err
	}
	log := g.log.With().Str("request", req.String()).Logger()
	switch {
	case !cv.IsValidCV(req.CV):
		countRequest(req, "invalid")
		return maskAny(errors.Wrapf(cv.ErrOutOfRange, "cv %d", req.CV))
	case cv.IsRuntimeState(req.CV):
		countRequest(req, "read-only")
		log.Debug().Msg("Ignoring write to runtime state")
		return maskAny(ErrReadOnly)
	case req.CV == CVManufacturer:
		if req.Value != factoryReset {
			countRequest(req, "read-only")
			return maskAny(ErrReadOnly)
		}
		log.Info().Msg("Factory reset requested")
		if err := g.store.ResetToDefaults(); err != nil {
			countRequest(req, "failed")
			return maskAny(err)
		}
		g.functions.ReloadAll()
		countRequest(req, "ok")
		return nil
	}
	value := req.Value
	if req.CV == cv.CVOptions {
		// The initialization marker cannot be programmed away.
		value = cv.Marker | (value &^ 0xF0)
	}
	if err := g.store.Set(req.CV, value); err != nil {
		countRequest(req, "failed")
		log.Warn().Err(err).Msg("Failed to write CV")
		return maskAny(err)
	}
	g.functions.ConfigChanged(req.CV)
	countRequest(req, "ok")
	log.Debug().Msg("Wrote CV")
	return nil
}

// LearnAddress offers the address of an accessory command for address
// learning. Returns true if it became the base address.
func (g *Gateway) LearnAddress(address int) bool {
	learned, err := g.identity.Learn(address)
	if err != nil {
		g.log.Warn().Err(err).Msg("Failed to persist learned address")
	}
	if learned {
		g.functions.SetBaseAddress(address)
	}
	return learned
}

func (g *Gateway) authorize(req Request) error {
	if req.Addressing != PomService {
		return nil
	}
	if !g.identity.Identity().AuthorizesPom(req.ServiceAddress) {
		countRequest(req, "unauthorized")
		g.log.Debug().Str("request", req.String()).Msg("Ignoring unauthorized program-on-main request")
		return maskAny(ErrUnauthorized)
	}
	return nil
}
