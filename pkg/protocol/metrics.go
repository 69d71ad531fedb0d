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

package protocol

import (
	"github.com/binkynet/AccessoryDecoder/pkg/metrics"
)

const (
	subSystem = "protocol"
)

var (
	// Valid events per kind
	eventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"events_total",
		"Number of valid protocol events",
		"kind")
	// Invalid events per kind
	invalidEventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"invalid_events_total",
		"Number of protocol events that failed validation",
		"kind")
	// Messages per transport
	transportMessagesTotal = metrics.MustRegisterCounterVec(subSystem,
		"transport_messages_total",
		"Number of messages received per transport",
		"transport")
)
