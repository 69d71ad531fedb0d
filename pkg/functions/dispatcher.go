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

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
)

// binding of a sub-address to a function instance.
type binding struct {
	function Function
	member   int
}

// Dispatcher maps the sub-addresses of the decoder to function instances
// and routes accessory commands to them.
type Dispatcher struct {
	log         zerolog.Logger
	store       *cv.Store
	baseAddress int
	functions   []Function
	bindings    []binding
	dirty       map[Function]struct{}
	// Called after an activate command reached a servo.
	onServoCommand func(*Servo)
}

// NewDispatcher creates a function instance for every binding of the given
// deployment. Bindings that cannot be built are reported in the returned
// error, the remaining sub-addresses are still served.
func NewDispatcher(log zerolog.Logger, d deployment.Deployment, store *cv.Store) (*Dispatcher, error) {
	disp := &Dispatcher{
		log:      log.With().Str("component", "dispatcher").Logger(),
		store:    store,
		bindings: make([]binding, minInt(len(d.Functions), cv.MaxBlocks)),
		dirty:    make(map[Function]struct{}),
	}
	var ae aerr.AggregateError
	for k := 0; k < len(disp.bindings); k++ {
		f := d.Functions[k]
		flog := disp.log.With().Int("sub", k).Str("kind", string(f.Kind)).Logger()
		var fn Function
		switch f.Kind {
		case deployment.KindServo:
			fn = NewServo(flog, store, k, f)
		case deployment.KindCoil:
			fn = NewCoil(flog, store, k, f)
		case deployment.KindStatic:
			fn = NewStatic(flog, store, k, f)
		case deployment.KindSignal2, deployment.KindSignal3:
			members := []deployment.Function{f}
			for j := 1; j < f.Kind.GroupSize() && k+j < len(disp.bindings); j++ {
				if d.Functions[k+j].Kind != deployment.KindSignalContinuation {
					break
				}
				members = append(members, d.Functions[k+j])
			}
			if len(members) < f.Kind.GroupSize() {
				ae.Add(fmt.Errorf("sub-address %d: %s has %d of %d members", k, f.Kind, len(members), f.Kind.GroupSize()))
			}
			sig := NewSignal(flog, store, k, members)
			for j := 1; j < len(members); j++ {
				disp.bindings[k+j] = binding{function: sig, member: j}
			}
			fn = sig
		case deployment.KindSignalContinuation:
			if disp.bindings[k].function == nil {
				ae.Add(fmt.Errorf("sub-address %d: continuation without signal", k))
			}
			continue
		default:
			ae.Add(fmt.Errorf("sub-address %d: unknown kind '%s'", k, f.Kind))
			continue
		}
		disp.bindings[k] = binding{function: fn}
		disp.functions = append(disp.functions, fn)
		flog.Debug().Msg("Created function")
	}
	functionsCreatedTotal.Set(float64(len(disp.functions)))
	if err := ae.AsError(); err != nil {
		return disp, errors.Wrap(err, "failed to build some functions")
	}
	return disp, nil
}

// SetBaseAddress sets the accessory address of sub-address 0.
func (d *Dispatcher) SetBaseAddress(addr int) {
	d.baseAddress = addr
}

// BaseAddress returns the accessory address of sub-address 0.
func (d *Dispatcher) BaseAddress() int {
	return d.baseAddress
}

// SubAddresses returns the number of configured sub-addresses.
func (d *Dispatcher) SubAddresses() int {
	return len(d.bindings)
}

// OnServoCommand sets a callback that is invoked for every activate
// command dispatched to a servo.
func (d *Dispatcher) OnServoCommand(cb func(*Servo)) {
	d.onServoCommand = cb
}

// Dispatch routes an accessory command for the given absolute address to
// its function. Addresses outside the configured range are ignored.
// Returns true if the address is served by this decoder.
func (d *Dispatcher) Dispatch(address int, cmd Command) bool {
	sub := address - d.baseAddress
	if sub < 0 || sub >= len(d.bindings) || d.bindings[sub].function == nil {
		commandsIgnoredTotal.Inc()
		return false
	}
	b := d.bindings[sub]
	commandsTotal.WithLabelValues(blockLabel(sub)).Inc()
	changed := b.function.SetCommandedState(b.member, cmd)
	d.log.Debug().
		Int("sub", sub).
		Uint8("bit", cmd.Bit).
		Bool("activate", cmd.Activate).
		Bool("changed", changed).
		Msg("Dispatched command")
	if servo, ok := b.function.(*Servo); ok && cmd.Activate && d.onServoCommand != nil {
		d.onServoCommand(servo)
	}
	return true
}

// ConfigChanged marks the function owning the given CV for reload before
// its next tick.
func (d *Dispatcher) ConfigChanged(cvNum int) {
	k, _, ok := cv.BlockOf(cvNum)
	if !ok || k >= len(d.bindings) {
		return
	}
	if fn := d.bindings[k].function; fn != nil {
		d.dirty[fn] = struct{}{}
	}
}

// ReloadAll marks all functions for reload.
func (d *Dispatcher) ReloadAll() {
	for _, fn := range d.functions {
		d.dirty[fn] = struct{}{}
	}
}

// Tick reloads dirty functions, then advances all functions.
func (d *Dispatcher) Tick(delta time.Duration) {
	for _, fn := range d.functions {
		if _, found := d.dirty[fn]; found {
			fn.Reload()
			reloadsTotal.WithLabelValues(blockLabel(fn.Block())).Inc()
			delete(d.dirty, fn)
		}
	}
	for _, fn := range d.functions {
		fn.OnTick(delta)
	}
}

// Functions returns all function instances in sub-address order.
func (d *Dispatcher) Functions() []Function {
	return d.functions
}

// Servos returns all servo instances in sub-address order.
func (d *Dispatcher) Servos() []*Servo {
	var result []*Servo
	for _, fn := range d.functions {
		if s, ok := fn.(*Servo); ok {
			result = append(result, s)
		}
	}
	return result
}

// Outputs returns the outputs of all functions.
func (d *Dispatcher) Outputs() []ChannelOutput {
	var result []ChannelOutput
	for _, fn := range d.functions {
		result = append(result, fn.Outputs()...)
	}
	return result
}
