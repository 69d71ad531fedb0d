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
	"fmt"

	"github.com/pkg/errors"

	"github.com/binkynet/AccessoryDecoder/pkg/programming"
)

const (
	// MaxAccessoryAddress is the highest accessory address of the
	// command protocol.
	MaxAccessoryAddress = 2047
	maxCV               = 256
)

var (
	// ErrInvalidEvent is returned for events that fail validation.
	ErrInvalidEvent = errors.New("invalid event")
	maskAny         = errors.WithStack
)

// IsInvalidEvent returns true if the cause of the given error is ErrInvalidEvent.
func IsInvalidEvent(err error) bool {
	return errors.Cause(err) == ErrInvalidEvent
}

// AccessoryCommand is a parsed accessory command telegram.
type AccessoryCommand struct {
	// Accessory address
	Address int `json:"address"`
	// Output bit (0 or 1)
	Output uint8 `json:"output"`
	// Activate is false for the "off" telegram of an output.
	Activate bool `json:"activate"`
}

// Validate the command.
func (c AccessoryCommand) Validate() error {
	if c.Address < 0 || c.Address > MaxAccessoryAddress {
		return errors.Wrapf(ErrInvalidEvent, "address %d out of range", c.Address)
	}
	if c.Output > 1 {
		return errors.Wrapf(ErrInvalidEvent, "output %d out of range", c.Output)
	}
	return nil
}

// String returns a description of the command for logging.
func (c AccessoryCommand) String() string {
	return fmt.Sprintf("accessory %d output %d activate %v", c.Address, c.Output, c.Activate)
}

// CvProgram is a parsed CV programming request.
type CvProgram struct {
	CV    int  `json:"cv"`
	Value byte `json:"value"`
	// Write is false for a read request.
	Write bool `json:"write"`
	// Pom is set for program-on-main requests.
	Pom bool `json:"pom,omitempty"`
	// Service address of a program-on-main request
	ServiceAddress int `json:"serviceAddress,omitempty"`
}

// Validate the request.
func (p CvProgram) Validate() error {
	if p.CV < 1 || p.CV > maxCV {
		return errors.Wrapf(ErrInvalidEvent, "cv %d out of range", p.CV)
	}
	if p.Pom && (p.ServiceAddress < 0 || p.ServiceAddress > 0x3FFF) {
		return errors.Wrapf(ErrInvalidEvent, "service address %d out of range", p.ServiceAddress)
	}
	return nil
}

// Request converts the request into a programming request.
func (p CvProgram) Request() programming.Request {
	req := programming.Request{
		Addressing: programming.Direct,
		CV:         p.CV,
		Value:      p.Value,
		Write:      p.Write,
	}
	if p.Pom {
		req.Addressing = programming.PomService
		req.ServiceAddress = p.ServiceAddress
	}
	return req
}

// CvResult is the reply to a CvProgram request.
type CvResult struct {
	CV    int    `json:"cv"`
	Value byte   `json:"value"`
	Error string `json:"error,omitempty"`
}

// Sink consumes validated protocol events.
type Sink interface {
	// SubmitAccessory queues an accessory command. It does not block.
	SubmitAccessory(cmd AccessoryCommand) error
	// SubmitCV queues a programming request and waits for its result.
	SubmitCV(ctx context.Context, req CvProgram) (byte, error)
}

// NewCvResult builds the reply of a programming request.
func NewCvResult(req CvProgram, value byte, err error) CvResult {
	r := CvResult{CV: req.CV, Value: value}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
