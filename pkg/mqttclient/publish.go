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

package mqttclient

import (
	"fmt"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
)

// Publish sends payload to topic with QoS 0 and waits at most
// PublishTimeout for the delivery.
func Publish(client mqttapi.Client, topic string, retained bool, payload []byte) error {
	token := client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(PublishTimeout) {
		return fmt.Errorf("timeout publishing to '%s'", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", topic, err)
	}
	return nil
}
