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

package logging

import (
	"context"
	"encoding/json"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/mqttclient"
)

const (
	// TopicLog (below the prefix) carries batches of new log lines.
	TopicLog = "log"
	// TopicStatus (below the prefix) carries the retained decoder status.
	TopicStatus = "status"

	defaultReportInterval = time.Second
)

// PublishFunc sends a payload to an MQTT topic.
type PublishFunc func(topic string, retained bool, payload []byte) error

// ClientPublisher returns a PublishFunc that publishes through the given client.
func ClientPublisher(client mqttapi.Client) PublishFunc {
	return func(topic string, retained bool, payload []byte) error {
		return mqttclient.Publish(client, topic, retained, payload)
	}
}

// MQTTReporter periodically publishes the log lines collected by a Recent
// buffer together with a snapshot of the decoder status.
type MQTTReporter struct {
	log         zerolog.Logger
	recent      *Recent
	status      func() interface{}
	publish     PublishFunc
	topicPrefix string
	interval    time.Duration
	next        uint64
}

type logBatch struct {
	Lines []string `json:"lines"`
	Lost  uint64   `json:"lost,omitempty"`
}

// NewMQTTReporter creates a reporter. The status function is optional.
func NewMQTTReporter(log zerolog.Logger, recent *Recent, status func() interface{}, publish PublishFunc, topicPrefix string) *MQTTReporter {
	_, next, _ := recent.Since(0)
	return &MQTTReporter{
		log:         log.With().Str("component", "mqtt-reporter").Logger(),
		recent:      recent,
		status:      status,
		publish:     publish,
		topicPrefix: mqttclient.NormalizePrefix(topicPrefix),
		interval:    defaultReportInterval,
		next:        next,
	}
}

// Run reports until the given context is canceled.
func (r *MQTTReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.report()
		case <-ctx.Done():
			return nil
		}
	}
}

// report publishes the lines written since the last report and the
// current status.
func (r *MQTTReporter) report() {
	lines, next, lost := r.recent.Since(r.next)
	r.next = next
	if len(lines) > 0 || lost > 0 {
		r.send(TopicLog, false, logBatch{Lines: lines, Lost: lost})
	}
	if r.status != nil {
		r.send(TopicStatus, true, r.status())
	}
}

func (r *MQTTReporter) send(topic string, retained bool, value interface{}) {
	encoded, err := json.Marshal(value)
	if err != nil {
		r.log.Warn().Err(err).Str("topic", topic).Msg("Failed to encode report")
		return
	}
	if err := r.publish(r.topicPrefix+topic, retained, encoded); err != nil {
		r.log.Debug().Err(err).Str("topic", topic).Msg("Failed to publish report")
	}
}
