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

package bridge

import (
	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Number of pin writes per bridge type
	pinWritesTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_writes_total",
		"Number of pin writes",
		"bridge")
	// Number of failed pin operations per bridge type
	pinErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_errors_total",
		"Number of failed pin operations",
		"bridge")
)
