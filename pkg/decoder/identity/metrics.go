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
	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "identity"
)

var (
	// Operating mode resolved at boot
	modeGauge = metrics.MustRegisterGaugeVec(subSystem,
		"mode",
		"Operating mode resolved at boot (1 for the active mode)",
		"mode")
	// Base address
	baseAddressGauge = metrics.MustRegisterGauge(subSystem,
		"base_address",
		"Active base accessory address")
	// Address learned
	addressLearnedTotal = metrics.MustRegisterCounter(subSystem,
		"address_learned_total",
		"Number of learned base addresses")
)
