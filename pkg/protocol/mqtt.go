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
	"context"
	"encoding/json"
	"strings"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	model "github.com/binkynet/BinkyNet/apis/v1"

	"github.com/binkynet/AccessoryDecoder/pkg/mqttclient"
)

// Topics (below the prefix) of the MQTT transport.
const (
	TopicAccessory = "accessory"
	TopicSwitch    = "switch"
	TopicCV        = "cv"
	TopicCVResult  = "cv/result"
)

// MQTTSource receives accessory commands and programming requests as JSON
// messages:
//
//	<prefix>accessory  {"address":6,"output":1,"activate":true}
//	<prefix>switch     a BinkyNet Switch with a local address and requested direction
//	<prefix>cv         {"cv":51,"value":60,"write":true,"pom":false}
//
// Programming results are published to <prefix>cv/result.
type MQTTSource struct {
	log         zerolog.Logger
	topicPrefix string
	requests    *Requests
	sink        Sink
	client      mqttapi.Client
	ctx         context.Context
}

// NewMQTTSource creates an MQTT transport. Call Run to connect.
func NewMQTTSource(log zerolog.Logger, topicPrefix string, requests *Requests, sink Sink) *MQTTSource {
	return &MQTTSource{
		log:         log.With().Str("component", "mqtt-source").Logger(),
		topicPrefix: mqttclient.NormalizePrefix(topicPrefix),
		requests:    requests,
		sink:        sink,
	}
}

// Run connects to the broker and serves messages until the given context
// is canceled.
func (s *MQTTSource) Run(ctx context.Context, brokerAddress, clientID string) error {
	s.ctx = ctx
	client, err := mqttclient.Connect(s.log, brokerAddress, clientID, s.topicPrefix+"+", s.onMessage)
	if err != nil {
		return maskAny(err)
	}
	s.client = client
	s.log.Info().Str("broker", brokerAddress).Msg("MQTT source connected")
	<-ctx.Done()
	client.Disconnect(250)
	return nil
}

// onMessage handles a single MQTT message.
func (s *MQTTSource) onMessage(client mqttapi.Client, msg mqttapi.Message) {
	transportMessagesTotal.WithLabelValues("mqtt").Inc()
	s.dispatch(client, strings.TrimPrefix(msg.Topic(), s.topicPrefix), msg.Payload())
}

// dispatch decodes the payload of a message by its topic below the prefix.
func (s *MQTTSource) dispatch(client mqttapi.Client, topic string, payload []byte) {
	switch topic {
	case TopicAccessory:
		var cmd AccessoryCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			s.log.Warn().Err(err).Msg("Invalid accessory message")
			return
		}
		if err := s.requests.PublishAccessory(cmd); err != nil {
			s.log.Warn().Err(err).Msg("Invalid accessory command")
		}
	case TopicSwitch:
		var sw model.Switch
		if err := json.Unmarshal(payload, &sw); err != nil {
			s.log.Warn().Err(err).Msg("Invalid switch message")
			return
		}
		if err := s.requests.PublishSwitch(sw); err != nil {
			s.log.Warn().Err(err).Str("address", string(sw.Address)).Msg("Invalid switch request")
		}
	case TopicCV:
		var req CvProgram
		if err := json.Unmarshal(payload, &req); err != nil {
			s.log.Warn().Err(err).Msg("Invalid cv message")
			return
		}
		// Do not block the MQTT client while the decoder handles the request.
		go s.handleCV(client, req)
	default:
		s.log.Debug().Str("topic", topic).Msg("Ignoring message")
	}
}

func (s *MQTTSource) handleCV(client mqttapi.Client, req CvProgram) {
	if err := req.Validate(); err != nil {
		invalidEventsTotal.WithLabelValues("cv").Inc()
		s.log.Warn().Err(err).Msg("Invalid cv request")
		return
	}
	eventsTotal.WithLabelValues("cv").Inc()
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	value, err := s.sink.SubmitCV(ctx, req)
	encoded, err := json.Marshal(NewCvResult(req, value, err))
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to encode cv result")
		return
	}
	if err := mqttclient.Publish(client, s.topicPrefix+TopicCVResult, false, encoded); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish cv result")
	}
}
