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

package functions

import (
	"time"
)

const (
	// Fixed point scale of fader levels.
	faderScale = 256
	maxLevel   = 255
	faderMax   = maxLevel * faderScale
)

// fader ramps a level (0..255) toward a target.
type fader struct {
	level  int // fixed point
	target int // fixed point
}

// set the target level. The level follows in step.
func (f *fader) set(on bool) {
	if on {
		f.target = faderMax
	} else {
		f.target = 0
	}
}

// jump sets level and target immediately.
func (f *fader) jump(on bool) {
	f.set(on)
	f.level = f.target
}

// step moves the level toward the target. A full swing takes fadeTime.
func (f *fader) step(delta, fadeTime time.Duration) {
	if f.level == f.target {
		return
	}
	if fadeTime <= 0 {
		f.level = f.target
		return
	}
	step := int(int64(faderMax) * int64(delta) / int64(fadeTime))
	if step < 1 {
		step = 1
	}
	if f.level < f.target {
		f.level = minInt(f.level+step, f.target)
	} else {
		f.level = maxInt(f.level-step, f.target)
	}
}

// duty returns the current level (0..255).
func (f *fader) duty() int {
	return f.level / faderScale
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
