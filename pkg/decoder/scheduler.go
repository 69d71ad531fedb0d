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
	"context"
	"time"
)

// Run the scheduler until the given context is canceled.
func (d *Decoder) Run(ctx context.Context) error {
	log := d.Log
	log.Info().
		Dur("interval", d.TickInterval).
		Msg("Decoder started")
	ticker := time.NewTicker(d.TickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			// Context canceled
			if err := d.calibration.Flush(); err != nil {
				log.Warn().Err(err).Msg("Failed to store pending calibration")
			}
			log.Info().Msg("Decoder stopped")
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if delta > maxTickDelta {
				delta = maxTickDelta
			}
			d.Step(delta)
		}
	}
}

// Step runs a single scheduler tick advancing time by delta.
// Not safe for concurrent use; Run calls it from its own goroutine.
func (d *Decoder) Step(delta time.Duration) {
	start := time.Now()

	// Inputs
	d.sampleInputs()

	// Events queued before this tick, commands first reach the functions
	// before they advance.
	for n := len(d.events); n > 0; n-- {
		ev := <-d.events
		ev.apply(d)
	}
	queueLength.Set(float64(len(d.events)))

	// Advance
	d.calibration.Tick(delta)
	d.dispatcher.Tick(delta)

	// Outputs
	outputs := d.dispatcher.Outputs()
	led := d.led.tick(delta, d.resolver.Identity())
	if pin := d.Deployment.ModeLEDPin; pin.Connected() {
		outputs = append(outputs, ledOutput(pin, led))
	}
	d.writer.write(outputs)

	d.ticks++
	ticksTotal.Inc()
	d.publishStatus()
	tickDuration.Observe(time.Since(start).Seconds())
}
