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
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// SerialSource reads telegrams from a command station receiver attached
// to a serial port. Each line holds one event:
//
//	A <address> <output> <0|1>        accessory command
//	R <cv>                            direct read
//	P <cv> <value>                    direct write
//	M <service address> <cv> <value>  program-on-main write
//
// Programming requests are answered with "OK <cv> <value>" or "ERR <message>".
type SerialSource struct {
	log      zerolog.Logger
	requests *Requests
	sink     Sink
}

// NewSerialSource creates a serial transport. Call Run to open the port.
func NewSerialSource(log zerolog.Logger, requests *Requests, sink Sink) *SerialSource {
	return &SerialSource{
		log:      log.With().Str("component", "serial-source").Logger(),
		requests: requests,
		sink:     sink,
	}
}

// Run opens the given port and serves lines until the given context is
// canceled.
func (s *SerialSource) Run(ctx context.Context, portName string, baudRate int) error {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", portName)
	}
	go func() {
		<-ctx.Done()
		port.Close()
	}()
	s.log.Info().Str("port", portName).Int("baud", baudRate).Msg("Serial source opened")
	if err := s.Serve(ctx, port, port); err != nil && ctx.Err() == nil {
		return maskAny(err)
	}
	return nil
}

// Serve reads lines from r and writes replies to w until r is exhausted
// or the context is canceled.
func (s *SerialSource) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		transportMessagesTotal.WithLabelValues("serial").Inc()
		cmd, req, err := ParseLine(line)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("line", line).Msg("Invalid serial line")
			fmt.Fprintf(w, "ERR %s\n", err)
		case cmd != nil:
			if err := s.requests.PublishAccessory(*cmd); err != nil {
				s.log.Warn().Err(err).Str("line", line).Msg("Invalid accessory command")
			}
		case req != nil:
			eventsTotal.WithLabelValues("cv").Inc()
			value, err := s.sink.SubmitCV(ctx, *req)
			if err != nil {
				fmt.Fprintf(w, "ERR %s\n", err)
			} else {
				fmt.Fprintf(w, "OK %d %d\n", req.CV, value)
			}
		}
	}
	return maskAny(scanner.Err())
}

// ParseLine parses a single line of the serial protocol.
// Exactly one of the returned events is non-nil when err is nil.
func ParseLine(line string) (*AccessoryCommand, *CvProgram, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil, errors.Wrap(ErrInvalidEvent, "empty line")
	}
	args := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrInvalidEvent, "invalid number '%s'", f)
		}
		args = append(args, v)
	}
	expect := func(n int) error {
		if len(args) != n {
			return errors.Wrapf(ErrInvalidEvent, "'%s' expects %d arguments, got %d", fields[0], n, len(args))
		}
		return nil
	}
	var cmd *AccessoryCommand
	var req *CvProgram
	switch strings.ToUpper(fields[0]) {
	case "A":
		if err := expect(3); err != nil {
			return nil, nil, err
		}
		if args[1] < 0 || args[1] > 1 {
			return nil, nil, errors.Wrapf(ErrInvalidEvent, "output %d out of range", args[1])
		}
		cmd = &AccessoryCommand{Address: args[0], Output: uint8(args[1]), Activate: args[2] != 0}
	case "R":
		if err := expect(1); err != nil {
			return nil, nil, err
		}
		req = &CvProgram{CV: args[0]}
	case "P":
		if err := expect(2); err != nil {
			return nil, nil, err
		}
		req = &CvProgram{CV: args[0], Value: byte(args[1]), Write: true}
		if args[1] < 0 || args[1] > 255 {
			return nil, nil, errors.Wrapf(ErrInvalidEvent, "value %d out of range", args[1])
		}
	case "M":
		if err := expect(3); err != nil {
			return nil, nil, err
		}
		req = &CvProgram{Pom: true, ServiceAddress: args[0], CV: args[1], Value: byte(args[2]), Write: true}
		if args[2] < 0 || args[2] > 255 {
			return nil, nil, errors.Wrapf(ErrInvalidEvent, "value %d out of range", args[2])
		}
	default:
		return nil, nil, errors.Wrapf(ErrInvalidEvent, "unknown command '%s'", fields[0])
	}
	if cmd != nil {
		if err := cmd.Validate(); err != nil {
			return nil, nil, err
		}
	}
	if req != nil {
		if err := req.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return cmd, req, nil
}
