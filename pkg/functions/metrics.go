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
	"strconv"

	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "functions"
)

var (
	// Number of functions created
	functionsCreatedTotal = metrics.MustRegisterGauge(subSystem,
		"functions_created_total",
		"Number of created output functions")
	// Accessory commands per sub-address
	commandsTotal = metrics.MustRegisterCounterVec(subSystem,
		"commands_total",
		"Number of accessory commands dispatched per sub-address",
		"sub")
	// Accessory commands outside the configured range
	commandsIgnoredTotal = metrics.MustRegisterCounter(subSystem,
		"commands_ignored_total",
		"Number of accessory commands outside the configured address range")
	// Runtime state writes per block
	stateWritesTotal = metrics.MustRegisterCounterVec(subSystem,
		"state_writes_total",
		"Number of runtime state cell writes per block",
		"block")
	// Coil pulses per block
	coilPulsesTotal = metrics.MustRegisterCounterVec(subSystem,
		"coil_pulses_total",
		"Number of coil pulses per block",
		"block")
	// Configuration reloads per block
	reloadsTotal = metrics.MustRegisterCounterVec(subSystem,
		"reloads_total",
		"Number of configuration reloads per block",
		"block")
)

func blockLabel(block int) string {
	return strconv.Itoa(block)
}
