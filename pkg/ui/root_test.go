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

package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/binkynet/AccessoryDecoder/pkg/calibration"
	"github.com/binkynet/AccessoryDecoder/pkg/decoder"
)

type fixedStatus decoder.Status

func (s fixedStatus) Status() decoder.Status { return decoder.Status(s) }

type fixedLogs []string

func (l fixedLogs) Lines() []string { return l }

func testStatus() decoder.Status {
	return decoder.Status{
		Mode:         "Normal",
		Band:         "High",
		BaseAddress:  17,
		AddressKnown: true,
		Started:      time.Now().Add(-time.Minute),
		Ticks:        12345,
		Functions: []decoder.FunctionStatus{
			{SubAddress: 0, Address: 17, Kind: "servo", Blocks: 1, State: "0",
				Outputs: []decoder.OutputStatus{{Pin: "13", Mode: "servo", Value: 1500}}},
		},
		Calibration: calibration.Status{Selected: -1},
	}
}

func press(r tea.Model, key string) (tea.Model, tea.Cmd) {
	return r.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

func TestRootShowsStatus(t *testing.T) {
	st := testStatus()
	r := NewRoot(fixedStatus(st), fixedLogs{"first line"}, "xterm")
	msg := r.Init()()
	m, cmd := r.Update(msg)
	if cmd == nil {
		t.Error("Expected a refresh command after a status update")
	}
	view := m.View()
	for _, expected := range []string{"Normal", "17", "servo", "12,345", "no servo selected"} {
		if !strings.Contains(view, expected) {
			t.Errorf("Expected view to contain '%s', got:\n%s", expected, view)
		}
	}
}

func TestRootToggleLogs(t *testing.T) {
	r := NewRoot(fixedStatus(testStatus()), fixedLogs{"first line", "second line"}, "xterm")
	m, _ := press(r, "l")
	if view := m.View(); !strings.Contains(view, "second line") {
		t.Errorf("Expected log lines in view, got:\n%s", view)
	}
	m, _ = press(m, "l")
	if view := m.View(); strings.Contains(view, "second line") {
		t.Errorf("Expected log lines to be hidden, got:\n%s", view)
	}
}

func TestRootQuit(t *testing.T) {
	r := NewRoot(fixedStatus(testStatus()), nil, "xterm")
	if _, cmd := press(r, "q"); cmd == nil {
		t.Error("Expected quit command")
	}
}
