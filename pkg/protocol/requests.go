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

	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"
)

// Requests fans out accessory commands from all transports to all
// interested receivers (the decoder, status views).
type Requests struct {
	log      zerolog.Logger
	commands *pubsub.PubSub
}

// NewRequests creates an empty request fan-out.
func NewRequests(log zerolog.Logger) *Requests {
	return &Requests{
		log:      log.With().Str("component", "requests").Logger(),
		commands: pubsub.New(),
	}
}

// PublishAccessory validates and publishes the given command.
func (r *Requests) PublishAccessory(cmd AccessoryCommand) error {
	if err := cmd.Validate(); err != nil {
		invalidEventsTotal.WithLabelValues("accessory").Inc()
		return maskAny(err)
	}
	eventsTotal.WithLabelValues("accessory").Inc()
	r.commands.Pub(cmd)
	return nil
}

// RegisterAccessoryReceiver registers a callback for every published
// command. Call the returned function to unregister.
func (r *Requests) RegisterAccessoryReceiver(cb func(AccessoryCommand) error) context.CancelFunc {
	wcb := func(x AccessoryCommand) {
		if err := cb(x); err != nil {
			r.log.Warn().Err(err).Str("command", x.String()).Msg("Accessory command processing error")
		}
	}
	r.commands.Sub(wcb)
	return func() {
		r.commands.Leave(wcb)
	}
}

// Forward registers the given sink as receiver of all commands.
func (r *Requests) Forward(sink Sink) context.CancelFunc {
	return r.RegisterAccessoryReceiver(sink.SubmitAccessory)
}
