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

package deployment

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
)

// Load reads and validates a deployment from the YAML file at given path.
func Load(path string) (Deployment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Deployment{}, errors.Wrapf(err, "failed to read deployment '%s'", path)
	}
	return Parse(raw)
}

// Parse and validate a deployment from YAML.
func Parse(raw []byte) (Deployment, error) {
	d := Deployment{
		ModeSelectPin: bridge.NC,
		ResetPin:      bridge.NC,
		ModeLEDPin:    bridge.NC,
		Encoder: Encoder{
			PinA:           bridge.NC,
			PinB:           bridge.NC,
			StepsPerDetent: 2,
		},
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Deployment{}, errors.Wrap(err, "failed to parse deployment")
	}
	if err := d.Validate(); err != nil {
		return Deployment{}, errors.Wrap(err, "invalid deployment")
	}
	return d, nil
}
