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

const (
	// Size is the number of cells in the configuration table.
	Size = 256

	// CVAddressLow holds bits 0..7 of the base accessory address.
	CVAddressLow = 1
	// CVAddressHigh holds bit 8 of the base accessory address.
	CVAddressHigh = 9
	// CVOptions holds the initialization marker and decoder wide option bits.
	CVOptions = 47
	// CVPomAddressLow / CVPomAddressHigh hold the program-on-main service address.
	CVPomAddressLow  = 48
	CVPomAddressHigh = 49
	// CVFirstBlock is the first cell of the parameter block of sub-address 0.
	CVFirstBlock = 50
	// BlockSize is the number of cells per parameter block.
	BlockSize = 5
	// MaxBlocks is the maximum number of sub-addresses of a decoder.
	MaxBlocks = 8

	// MaxAddress is the highest base address (9 bits).
	MaxAddress = 0x1FF

	markerMask = 0xF0
	// Marker is the pattern expected in the upper nibble of CVOptions.
	Marker = 0x50
)

// Option bits in CVOptions.
const (
	OptionAutoAddress = 0x01
	OptionRocoAddress = 0x02
	OptionPomEnabled  = 0x04
)

// Param identifies a cell within a parameter block.
type Param int

const (
	ParamMode Param = iota
	Param1
	Param2
	Param3
	ParamState
)

// String returns a short name of the parameter.
func (p Param) String() string {
	switch p {
	case ParamMode:
		return "mode"
	case Param1:
		return "param1"
	case Param2:
		return "param2"
	case Param3:
		return "param3"
	case ParamState:
		return "state"
	default:
		return "unknown"
	}
}

// BlockCV returns the CV number of the given parameter of block k.
func BlockCV(k int, p Param) int {
	return CVFirstBlock + BlockSize*k + int(p)
}

// BlockOf returns the block index and parameter of the given CV number.
// Returns false if the CV is not part of any parameter block.
func BlockOf(cv int) (int, Param, bool) {
	if cv < CVFirstBlock || cv >= CVFirstBlock+BlockSize*MaxBlocks {
		return 0, 0, false
	}
	offset := cv - CVFirstBlock
	return offset / BlockSize, Param(offset % BlockSize), true
}

// IsRuntimeState returns true if the given CV is the runtime-state cell
// of a parameter block.
func IsRuntimeState(cv int) bool {
	_, p, ok := BlockOf(cv)
	return ok && p == ParamState
}

// IsValidCV returns true if the given CV number is inside the table.
func IsValidCV(cv int) bool {
	return cv >= 1 && cv <= Size
}
