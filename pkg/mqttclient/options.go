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
	"strings"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	// PublishTimeout is the time to wait for a publish to be delivered.
	PublishTimeout = time.Millisecond * 200
)

// DefaultOptions returns the client options used by all MQTT clients
// of the decoder.
func DefaultOptions(brokerAddress, clientID string) *mqttapi.ClientOptions {
	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + brokerAddress).
		SetClientID(clientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(func(c mqttapi.Client, m mqttapi.Message) {
		// Ignore messages when no subscription match
	})
	return opts
}

// Connect creates a client that (re)subscribes to the given topic
// every time it connects.
func Connect(log zerolog.Logger, brokerAddress, clientID, topic string, handler mqttapi.MessageHandler) (mqttapi.Client, error) {
	opts := DefaultOptions(brokerAddress, clientID)
	opts.SetOnConnectHandler(func(c mqttapi.Client) {
		log.Debug().Msg("Connected to MQTT")
		if token := c.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).
				Msgf("failed to subscribe to '%s'", topic)
			c.Disconnect(500)
		} else {
			log.Debug().Msgf("Subscribed to MQTT topic '%s'", topic)
		}
	})
	client := mqttapi.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt: %w", token.Error())
	}
	return client, nil
}

// NormalizePrefix ensures the given topic prefix ends with a single '/'.
func NormalizePrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/"
}

// ParseBool parses the payload of a boolean MQTT message.
func ParseBool(str string) (bool, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	switch str {
	case "1", "t", "true", "on", "yes":
		return true, nil
	case "0", "f", "false", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool value '%s'", str)
}

// FormatBool formats a bool as MQTT payload.
func FormatBool(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
