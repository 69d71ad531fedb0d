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

// Transition table of a quadrature encoder, indexed by
// (previous state << 2 | current state) where state = A<<1 | B.
// Invalid transitions (both inputs changed) count as 0.
var quadratureSteps = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// quadrature decodes the A/B inputs of a rotary encoder into detents.
type quadrature struct {
	stepsPerDetent int
	state          uint8
	steps          int
	initialized    bool
}

func newQuadrature(stepsPerDetent int) quadrature {
	if stepsPerDetent < 1 {
		stepsPerDetent = 1
	}
	return quadrature{stepsPerDetent: stepsPerDetent}
}

// update processes a sample of the A and B inputs and returns the number
// of completed detents (negative for counter clockwise).
func (q *quadrature) update(a, b bool) int {
	cur := uint8(0)
	if a {
		cur |= 0x02
	}
	if b {
		cur |= 0x01
	}
	if !q.initialized {
		q.state = cur
		q.initialized = true
		return 0
	}
	q.steps += int(quadratureSteps[q.state<<2|cur])
	q.state = cur
	detents := q.steps / q.stepsPerDetent
	q.steps -= detents * q.stepsPerDetent
	return detents
}
