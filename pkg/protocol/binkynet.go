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
	"strconv"

	"github.com/pkg/errors"

	model "github.com/binkynet/BinkyNet/apis/v1"
)

// FromSwitch converts a BinkyNet switch request into an accessory
// command. The local part of the switch address must be the numeric
// accessory address. Straight selects output 1, off selects output 0.
func FromSwitch(sw model.Switch) (AccessoryCommand, error) {
	_, id, err := model.SplitAddress(sw.GetAddress())
	if err != nil {
		return AccessoryCommand{}, errors.Wrapf(ErrInvalidEvent, "invalid switch address '%s'", sw.GetAddress())
	}
	address, err := strconv.Atoi(id)
	if err != nil {
		return AccessoryCommand{}, errors.Wrapf(ErrInvalidEvent, "switch address '%s' is not numeric", sw.GetAddress())
	}
	cmd := AccessoryCommand{Address: address, Activate: true}
	switch sw.GetRequest().GetDirection() {
	case model.SwitchDirection_STRAIGHT:
		cmd.Output = 1
	case model.SwitchDirection_OFF:
		cmd.Output = 0
	default:
		return AccessoryCommand{}, errors.Wrapf(ErrInvalidEvent, "unknown switch direction %d", sw.GetRequest().GetDirection())
	}
	return cmd, maskAny(cmd.Validate())
}

// PublishSwitch converts and publishes a BinkyNet switch request.
func (r *Requests) PublishSwitch(sw model.Switch) error {
	cmd, err := FromSwitch(sw)
	if err != nil {
		invalidEventsTotal.WithLabelValues("switch").Inc()
		return err
	}
	return r.PublishAccessory(cmd)
}
