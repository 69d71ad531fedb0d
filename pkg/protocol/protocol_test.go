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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	model "github.com/binkynet/BinkyNet/apis/v1"

	"github.com/binkynet/AccessoryDecoder/pkg/programming"
)

type fakeSink struct {
	mutex    sync.Mutex
	commands []AccessoryCommand
	cvs      []CvProgram
	values   map[int]byte
}

func newFakeSink() *fakeSink {
	return &fakeSink{values: make(map[int]byte)}
}

func (s *fakeSink) SubmitAccessory(cmd AccessoryCommand) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.commands = append(s.commands, cmd)
	return nil
}

func (s *fakeSink) SubmitCV(ctx context.Context, req CvProgram) (byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cvs = append(s.cvs, req)
	if req.Write {
		s.values[req.CV] = req.Value
	}
	return s.values[req.CV], nil
}

func (s *fakeSink) waitCommands(t *testing.T, n int) []AccessoryCommand {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mutex.Lock()
		result := append([]AccessoryCommand(nil), s.commands...)
		s.mutex.Unlock()
		if len(result) >= n {
			return result
		}
		time.Sleep(time.Millisecond * 5)
	}
	t.Fatalf("Expected %d commands", n)
	return nil
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		cmd  *AccessoryCommand
		req  *CvProgram
		err  bool
	}{
		{"A 6 1 1", &AccessoryCommand{Address: 6, Output: 1, Activate: true}, nil, false},
		{"a 17 0 0", &AccessoryCommand{Address: 17}, nil, false},
		{"R 51", nil, &CvProgram{CV: 51}, false},
		{"P 51 60", nil, &CvProgram{CV: 51, Value: 60, Write: true}, false},
		{"M 4 52 99", nil, &CvProgram{CV: 52, Value: 99, Write: true, Pom: true, ServiceAddress: 4}, false},
		{"A 6 2 1", nil, nil, true},
		{"A 6 1", nil, nil, true},
		{"A 3000 1 1", nil, nil, true},
		{"P 0 1", nil, nil, true},
		{"P 51 300", nil, nil, true},
		{"X 1", nil, nil, true},
		{"P five 1", nil, nil, true},
	}
	for _, test := range tests {
		cmd, req, err := ParseLine(test.line)
		if test.err {
			if !IsInvalidEvent(err) {
				t.Errorf("'%s': expected invalid event, got %v", test.line, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("'%s': unexpected error %v", test.line, err)
			continue
		}
		if (cmd == nil) != (test.cmd == nil) || (cmd != nil && *cmd != *test.cmd) {
			t.Errorf("'%s': expected command %v, got %v", test.line, test.cmd, cmd)
		}
		if (req == nil) != (test.req == nil) || (req != nil && *req != *test.req) {
			t.Errorf("'%s': expected request %v, got %v", test.line, test.req, req)
		}
	}
}

func TestCvProgramRequest(t *testing.T) {
	req := CvProgram{CV: 51, Value: 3, Write: true, Pom: true, ServiceAddress: 4}.Request()
	if req.Addressing != programming.PomService || req.ServiceAddress != 4 || req.CV != 51 || !req.Write {
		t.Errorf("Unexpected request %+v", req)
	}
	if req := (CvProgram{CV: 1}).Request(); req.Addressing != programming.Direct || req.Write {
		t.Errorf("Unexpected request %+v", req)
	}
}

func TestSerialServe(t *testing.T) {
	sink := newFakeSink()
	requests := NewRequests(zerolog.Nop())
	cancel := requests.Forward(sink)
	defer cancel()
	src := NewSerialSource(zerolog.Nop(), requests, sink)
	in := strings.NewReader("A 6 1 1\n\nP 51 60\nR 51\nbogus\n")
	var out bytes.Buffer
	if err := src.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || lines[0] != "OK 51 60" || lines[1] != "OK 51 60" || !strings.HasPrefix(lines[2], "ERR") {
		t.Errorf("Unexpected replies %q", lines)
	}
	cmds := sink.waitCommands(t, 1)
	if cmds[0] != (AccessoryCommand{Address: 6, Output: 1, Activate: true}) {
		t.Errorf("Unexpected command %v", cmds[0])
	}
}

func TestRequestsRejectInvalid(t *testing.T) {
	requests := NewRequests(zerolog.Nop())
	if err := requests.PublishAccessory(AccessoryCommand{Address: -1}); !IsInvalidEvent(err) {
		t.Errorf("Expected invalid event, got %v", err)
	}
}

func TestFromSwitch(t *testing.T) {
	sw := model.Switch{
		Address: model.JoinModuleLocal(model.GlobalModuleID, "6"),
		Request: &model.SwitchState{Direction: model.SwitchDirection_STRAIGHT},
	}
	cmd, err := FromSwitch(sw)
	if err != nil {
		t.Fatalf("FromSwitch failed: %v", err)
	}
	if cmd != (AccessoryCommand{Address: 6, Output: 1, Activate: true}) {
		t.Errorf("Unexpected command %v", cmd)
	}
	sw.Request.Direction = model.SwitchDirection_OFF
	if cmd, _ := FromSwitch(sw); cmd.Output != 0 {
		t.Errorf("Expected output 0 for off, got %d", cmd.Output)
	}
	sw.Address = model.JoinModuleLocal(model.GlobalModuleID, "left")
	if _, err := FromSwitch(sw); !IsInvalidEvent(err) {
		t.Errorf("Expected invalid event, got %v", err)
	}
}

func TestMQTTDispatchSwitch(t *testing.T) {
	sink := newFakeSink()
	requests := NewRequests(zerolog.Nop())
	cancel := requests.Forward(sink)
	defer cancel()
	src := NewMQTTSource(zerolog.Nop(), "test", requests, sink)

	straight, err := json.Marshal(model.Switch{
		Address: model.JoinModuleLocal(model.GlobalModuleID, "6"),
		Request: &model.SwitchState{Direction: model.SwitchDirection_STRAIGHT},
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	bad, _ := json.Marshal(model.Switch{
		Address: model.JoinModuleLocal(model.GlobalModuleID, "left"),
		Request: &model.SwitchState{Direction: model.SwitchDirection_STRAIGHT},
	})
	src.dispatch(nil, TopicSwitch, []byte("{not json"))
	src.dispatch(nil, TopicSwitch, bad)
	src.dispatch(nil, TopicSwitch, straight)
	src.dispatch(nil, TopicAccessory, []byte(`{"address":7,"output":0,"activate":true}`))

	cmds := sink.waitCommands(t, 2)
	if len(cmds) != 2 {
		t.Fatalf("Expected 2 commands, got %v", cmds)
	}
	seen := map[AccessoryCommand]bool{cmds[0]: true, cmds[1]: true}
	if !seen[AccessoryCommand{Address: 6, Output: 1, Activate: true}] {
		t.Errorf("Switch request not forwarded, got %v", cmds)
	}
	if !seen[AccessoryCommand{Address: 7, Output: 0, Activate: true}] {
		t.Errorf("Accessory command not forwarded, got %v", cmds)
	}
}
