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

	"github.com/binkynet/AccessoryDecoder/pkg/decoder/identity"
)

const (
	// Half period of the mode LED while waiting for an address.
	ledBlinkInterval = 250 * time.Millisecond
)

// modeLED shows the operating mode:
// off in normal mode, on in the program-on-main modes, blinking in full
// programming mode until an address has been learned.
type modeLED struct {
	on      bool
	elapsed time.Duration
}

// tick advances the blink cycle and returns the LED level.
func (l *modeLED) tick(delta time.Duration, id identity.Identity) bool {
	switch {
	case id.Mode == identity.ModeNormal:
		l.on = false
	case id.Mode == identity.ModeFullProgramming && !id.AddressKnown:
		l.elapsed += delta
		if l.elapsed >= ledBlinkInterval {
			l.elapsed -= ledBlinkInterval
			l.on = !l.on
		}
	default:
		l.on = true
	}
	return l.on
}
