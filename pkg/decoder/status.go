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
	"time"

	"github.com/samber/lo"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/calibration"
	"github.com/binkynet/AccessoryDecoder/pkg/functions"
)

// Status is a snapshot of the decoder state.
type Status struct {
	Mode         string             `json:"mode"`
	Band         string             `json:"band"`
	BaseAddress  int                `json:"baseAddress"`
	AddressKnown bool               `json:"addressKnown"`
	PomAddress   int                `json:"pomAddress"`
	RocoAddress  bool               `json:"rocoAddress"`
	WasReset     bool               `json:"wasReset"`
	Started      time.Time          `json:"started"`
	Ticks        uint64             `json:"ticks"`
	ModeLED      bool               `json:"modeLed"`
	Functions    []FunctionStatus   `json:"functions"`
	Calibration  calibration.Status `json:"calibration"`
}

// FunctionStatus is a snapshot of a single function.
type FunctionStatus struct {
	SubAddress int            `json:"subAddress"`
	Address    int            `json:"address"`
	Kind       string         `json:"kind"`
	Blocks     int            `json:"blocks"`
	State      string         `json:"state"`
	Outputs    []OutputStatus `json:"outputs"`
}

// OutputStatus is the state of a single channel.
type OutputStatus struct {
	Pin   string `json:"pin"`
	Mode  string `json:"mode"`
	Value int    `json:"value"`
}

// Status returns the most recent status snapshot.
// Safe for concurrent use.
func (d *Decoder) Status() Status {
	d.statusMutex.RLock()
	defer d.statusMutex.RUnlock()
	return d.status
}

// publishStatus builds a new status snapshot.
func (d *Decoder) publishStatus() {
	id := d.resolver.Identity()
	st := Status{
		Mode:         id.Mode.String(),
		Band:         id.Band.String(),
		BaseAddress:  id.BaseAddress,
		AddressKnown: id.AddressKnown,
		PomAddress:   id.PomAddress,
		RocoAddress:  id.RocoAddress,
		WasReset:     id.WasReset,
		Started:      d.started,
		Ticks:        d.ticks,
		ModeLED:      d.led.on,
		Calibration:  d.calibration.Status(),
	}
	st.Functions = lo.Map(d.dispatcher.Functions(), func(fn functions.Function, _ int) FunctionStatus {
		return FunctionStatus{
			SubAddress: fn.Block(),
			Address:    id.BaseAddress + fn.Block(),
			Kind:       string(fn.Kind()),
			Blocks:     fn.Blocks(),
			State:      fn.State(),
			Outputs: lo.FilterMap(fn.Outputs(), func(o functions.ChannelOutput, _ int) (OutputStatus, bool) {
				return OutputStatus{Pin: o.Pin.String(), Mode: o.Mode.String(), Value: o.Value}, o.Pin.Connected()
			}),
		}
	})
	d.statusMutex.Lock()
	defer d.statusMutex.Unlock()
	d.status = st
}

func ledOutput(pin bridge.Pin, on bool) functions.ChannelOutput {
	v := 0
	if on {
		v = 1
	}
	return functions.ChannelOutput{Pin: pin, Mode: functions.OutputDigital, Value: v}
}
