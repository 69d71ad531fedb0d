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

package programming

import (
	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "programming"
)

var (
	// Requests per addressing, operation and result
	requestsTotal = metrics.MustRegisterCounterVec(subSystem,
		"requests_total",
		"Number of programming requests",
		"addressing", "op", "result")
)

func countRequest(req Request, result string) {
	op := "read"
	if req.Write {
		op = "write"
	}
	requestsTotal.WithLabelValues(req.Addressing.String(), op, result).Inc()
}
