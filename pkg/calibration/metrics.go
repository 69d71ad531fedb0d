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

package calibration

import (
	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "calibration"
)

var (
	// Encoder detents
	detentsTotal = metrics.MustRegisterCounter(subSystem,
		"detents_total",
		"Number of encoder detents applied to a servo")
	// Committed endpoint writes
	commitsTotal = metrics.MustRegisterCounter(subSystem,
		"commits_total",
		"Number of committed servo endpoint writes")
	// Failed endpoint writes
	commitErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"commit_errors_total",
		"Number of failed servo endpoint writes")
)
