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
	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "decoder"
)

var (
	// Scheduler ticks
	ticksTotal = metrics.MustRegisterCounter(subSystem,
		"ticks_total",
		"Number of scheduler ticks")
	// Tick duration
	tickDuration = metrics.MustRegisterHistogram(subSystem,
		"tick_duration_seconds",
		"Time spent in a single scheduler tick",
		[]float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02})
	// Queued events
	queueLength = metrics.MustRegisterGauge(subSystem,
		"queue_length",
		"Number of events waiting for the next tick")
	// Processed events per kind
	eventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"events_total",
		"Number of processed events",
		"kind")
	// Dropped events
	droppedEventsTotal = metrics.MustRegisterCounter(subSystem,
		"dropped_events_total",
		"Number of events dropped because the queue was full")
	// Pin writes
	outputWritesTotal = metrics.MustRegisterCounterVec(subSystem,
		"output_writes_total",
		"Number of pin writes per output mode",
		"mode")
	// Failed pin writes
	outputErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"output_errors_total",
		"Number of failed pin writes per output mode",
		"mode")
)
