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

// Mode is the operating mode of the decoder.
type Mode int

const (
	// ModeNormal serves accessory commands and direct programming only.
	ModeNormal Mode = iota
	// ModePomAlways accepts program-on-main writes for any service address.
	ModePomAlways
	// ModePomConditional accepts program-on-main writes for the configured
	// service address only.
	ModePomConditional
	// ModeFullProgramming learns the base address from the first accessory
	// command and accepts all programming.
	ModeFullProgramming
)

// String returns a human readable name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModePomAlways:
		return "pom-always"
	case ModePomConditional:
		return "pom-conditional"
	case ModeFullProgramming:
		return "full-programming"
	default:
		return "unknown"
	}
}

// Band is a quantized level of the mode-select input.
type Band int

const (
	BandLow Band = iota
	BandMidLow
	BandMidHigh
	BandHigh
)

// Lower bounds of the bands on the 0..1023 scale.
const (
	midLowLevel  = 200
	midHighLevel = 550
	highLevel    = 800
)

// QuantizeBand returns the band of the given analog level (0..1023).
func QuantizeBand(level int) Band {
	switch {
	case level >= highLevel:
		return BandHigh
	case level >= midHighLevel:
		return BandMidHigh
	case level >= midLowLevel:
		return BandMidLow
	default:
		return BandLow
	}
}

// String returns a human readable name of the band.
func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMidLow:
		return "mid-low"
	case BandMidHigh:
		return "mid-high"
	case BandHigh:
		return "high"
	default:
		return "unknown"
	}
}
