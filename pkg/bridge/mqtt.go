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

package bridge

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/mqttclient"
)

// mqttBridge publishes outputs to and reads inputs from MQTT topics:
//
//	<prefix>pin<N>/command  written by the decoder
//	<prefix>pin<N>/state    read by the decoder
type mqttBridge struct {
	log         zerolog.Logger
	mutex       sync.Mutex
	topicPrefix string
	states      map[string]string
	client      mqttapi.Client
}

// NewMQTTBridge implements the bridge on top of an MQTT broker.
func NewMQTTBridge(log zerolog.Logger, brokerAddress, clientID, topicPrefix string) (API, error) {
	b := &mqttBridge{
		log:         log.With().Str("component", "mqtt-bridge").Logger(),
		topicPrefix: mqttclient.NormalizePrefix(topicPrefix),
		states:      make(map[string]string),
	}
	client, err := mqttclient.Connect(b.log, brokerAddress, clientID, b.topicPrefix+"#", b.onMessage)
	if err != nil {
		return nil, err
	}
	b.client = client
	return b, nil
}

// Receive messages
func (b *mqttBridge) onMessage(client mqttapi.Client, msg mqttapi.Message) {
	topic := strings.TrimPrefix(msg.Topic(), b.topicPrefix)
	if !strings.HasSuffix(topic, "/state") {
		// Not a valid message
		return
	}
	topic = strings.TrimSuffix(topic, "/state")

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.states[topic] = string(msg.Payload())
}

func (b *mqttBridge) state(pin Pin) (string, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	s, ok := b.states[fmt.Sprintf("pin%d", pin)]
	return s, ok
}

// AnalogRead returns the last analog value published for the pin.
// Unknown pins read as open.
func (b *mqttBridge) AnalogRead(pin Pin) (int, error) {
	s, ok := b.state(pin)
	if !ok {
		return MaxAnalogValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		pinErrorsTotal.WithLabelValues("mqtt").Inc()
		return 0, fmt.Errorf("invalid analog value '%s' for pin %d", s, pin)
	}
	if v < 0 {
		v = 0
	} else if v > MaxAnalogValue {
		v = MaxAnalogValue
	}
	return v, nil
}

// DigitalRead returns the last level published for the pin.
// Unknown pins read as high (pulled up).
func (b *mqttBridge) DigitalRead(pin Pin) (bool, error) {
	s, ok := b.state(pin)
	if !ok {
		return true, nil
	}
	return mqttclient.ParseBool(s)
}

// DigitalWrite publishes the level of the output.
func (b *mqttBridge) DigitalWrite(pin Pin, level bool) error {
	return b.publish(pin, mqttclient.FormatBool(level))
}

// PWMWrite publishes the duty of the output.
func (b *mqttBridge) PWMWrite(pin Pin, duty uint8) error {
	return b.publish(pin, strconv.Itoa(int(duty)))
}

// ServoWrite publishes the pulse width (in microseconds) of the output.
func (b *mqttBridge) ServoWrite(pin Pin, pulse time.Duration) error {
	return b.publish(pin, strconv.Itoa(int(pulse/time.Microsecond)))
}

func (b *mqttBridge) publish(pin Pin, payload string) error {
	topic := fmt.Sprintf("%spin%d/command", b.topicPrefix, pin)
	retain := true
	token := b.client.Publish(topic, 0, retain, payload)
	if !token.WaitTimeout(mqttclient.PublishTimeout) {
		pinErrorsTotal.WithLabelValues("mqtt").Inc()
		b.log.Error().Err(token.Error()).
			Str("topic", topic).
			Str("payload", payload).
			Msg("failed to deliver MQTT command in time")
		return nil
	}
	pinWritesTotal.WithLabelValues("mqtt").Inc()
	return nil
}

// Close disconnects from the broker.
func (b *mqttBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.client != nil {
		b.client.Disconnect(250)
		b.client = nil
	}
	return nil
}
