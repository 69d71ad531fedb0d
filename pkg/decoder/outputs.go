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

	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/functions"
)

// outputWriter writes changed channel outputs to the bridge.
type outputWriter struct {
	log    zerolog.Logger
	bridge bridge.API
	last   map[bridge.Pin]functions.ChannelOutput
	// Pins for which a failure has been logged
	failed map[bridge.Pin]struct{}
}

func newOutputWriter(log zerolog.Logger, api bridge.API) *outputWriter {
	return &outputWriter{
		log:    log,
		bridge: api,
		last:   make(map[bridge.Pin]functions.ChannelOutput),
		failed: make(map[bridge.Pin]struct{}),
	}
}

// write all changed outputs. Returns the number of pin writes.
func (w *outputWriter) write(outputs []functions.ChannelOutput) int {
	writes := 0
	for _, o := range outputs {
		if !o.Pin.Connected() {
			continue
		}
		if prev, found := w.last[o.Pin]; found && prev == o {
			continue
		}
		w.last[o.Pin] = o
		writes++
		if err := w.apply(o); err != nil {
			outputErrorsTotal.WithLabelValues(o.Mode.String()).Inc()
			if _, found := w.failed[o.Pin]; !found {
				w.failed[o.Pin] = struct{}{}
				w.log.Warn().Err(err).
					Str("pin", o.Pin.String()).
					Str("mode", o.Mode.String()).
					Msg("Failed to write output")
			}
			continue
		}
		outputWritesTotal.WithLabelValues(o.Mode.String()).Inc()
	}
	return writes
}

func (w *outputWriter) apply(o functions.ChannelOutput) error {
	switch o.Mode {
	case functions.OutputPWM:
		duty := o.Value
		if duty < 0 {
			duty = 0
		} else if duty > bridge.MaxDuty {
			duty = bridge.MaxDuty
		}
		return w.bridge.PWMWrite(o.Pin, uint8(duty))
	case functions.OutputServo:
		return w.bridge.ServoWrite(o.Pin, time.Duration(o.Value)*time.Microsecond)
	default:
		return w.bridge.DigitalWrite(o.Pin, o.Value != 0)
	}
}
