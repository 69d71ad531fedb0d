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

package cv

import (
	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "cv"
)

var (
	// Number of cell writes that reached storage
	cellWritesTotal = metrics.MustRegisterCounter(subSystem,
		"cell_writes_total",
		"Number of configuration cells written to storage")
	// Number of cell writes that failed
	cellWriteErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"cell_write_errors_total",
		"Number of failed configuration cell writes")
	// Number of resets to compiled defaults
	resetsTotal = metrics.MustRegisterCounter(subSystem,
		"resets_total",
		"Number of resets of the configuration table to defaults")
)
