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

package decoder

import (
	"context"

	"github.com/pkg/errors"

	"github.com/binkynet/AccessoryDecoder/pkg/functions"
	"github.com/binkynet/AccessoryDecoder/pkg/protocol"
)

var (
	// ErrQueueFull is returned when an event cannot be queued.
	ErrQueueFull = errors.New("event queue full")
)

// event is processed by the scheduler at the start of a tick.
type event interface {
	apply(d *Decoder)
}

type accessoryEvent struct {
	cmd protocol.AccessoryCommand
}

type cvEvent struct {
	req   protocol.CvProgram
	reply chan cvReply
}

type cvReply struct {
	value byte
	err   error
}

var _ protocol.Sink = &Decoder{}

// SubmitAccessory queues an accessory command for the next tick.
func (d *Decoder) SubmitAccessory(cmd protocol.AccessoryCommand) error {
	if err := cmd.Validate(); err != nil {
		return maskAny(err)
	}
	select {
	case d.events <- accessoryEvent{cmd: cmd}:
		return nil
	default:
		droppedEventsTotal.Inc()
		return maskAny(ErrQueueFull)
	}
}

// SubmitCV queues a programming request and waits for its result.
func (d *Decoder) SubmitCV(ctx context.Context, req protocol.CvProgram) (byte, error) {
	if err := req.Validate(); err != nil {
		return 0, maskAny(err)
	}
	ev := cvEvent{req: req, reply: make(chan cvReply, 1)}
	select {
	case d.events <- ev:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-ev.reply:
		return r.value, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ReadCV reads a CV through the programming gateway.
func (d *Decoder) ReadCV(ctx context.Context, cvNum int) (byte, error) {
	return d.SubmitCV(ctx, protocol.CvProgram{CV: cvNum})
}

func (e accessoryEvent) apply(d *Decoder) {
	eventsTotal.WithLabelValues("accessory").Inc()
	id := d.resolver.Identity()
	address := id.TranslateAddress(e.cmd.Address)
	if !id.AddressKnown && !d.gateway.LearnAddress(address) {
		return
	}
	d.dispatcher.Dispatch(address, functions.Command{Bit: e.cmd.Output, Activate: e.cmd.Activate})
}

func (e cvEvent) apply(d *Decoder) {
	eventsTotal.WithLabelValues("cv").Inc()
	value, err := d.gateway.Handle(e.req.Request())
	e.reply <- cvReply{value: value, err: err}
}
