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
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/binkynet/AccessoryDecoder/pkg/decoder"
	"github.com/binkynet/AccessoryDecoder/pkg/functions"
)

const (
	refreshInterval = time.Second
	maxLogLines     = 20
	reservedLines   = 10
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tableStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

// StatusSource provides decoder status snapshots.
type StatusSource interface {
	Status() decoder.Status
}

// LogSource provides recent log lines.
type LogSource interface {
	Lines() []string
}

// Root is the top level model of the status UI.
type Root struct {
	source   StatusSource
	logs     LogSource
	term     string
	width    int
	height   int
	status   decoder.Status
	table    table.Model
	showLogs bool
}

var _ tea.Model = Root{}

// NewRoot creates the status model.
func NewRoot(source StatusSource, logs LogSource, term string) Root {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Sub", Width: 4},
			{Title: "Addr", Width: 5},
			{Title: "Kind", Width: 8},
			{Title: "State", Width: 10},
			{Title: "Outputs", Width: 36},
		}),
		table.WithFocused(true),
		table.WithHeight(9),
	)
	return Root{
		source: source,
		logs:   logs,
		term:   term,
		table:  t,
	}
}

type statusMsg decoder.Status

// Init is the first function that will be called.
func (r Root) Init() tea.Cmd {
	source := r.source
	return func() tea.Msg {
		return statusMsg(source.Status())
	}
}

// Update is called when a message is received.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case statusMsg:
		r.status = decoder.Status(msg)
		r.table.SetRows(functionRows(r.status.Functions))
		return r, doRefresh(r.source)
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
		if h := r.height - reservedLines; h > 3 {
			r.table.SetHeight(h)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "l":
			r.showLogs = !r.showLogs
			return r, nil
		}
	}

	var cmd tea.Cmd
	r.table, cmd = r.table.Update(msg)
	cmds = append(cmds, cmd)
	return r, tea.Batch(cmds...)
}

// View renders the UI.
func (r Root) View() string {
	var sb strings.Builder
	sb.WriteString(r.headerView())
	sb.WriteString("\n")
	if r.showLogs {
		sb.WriteString(r.logView())
	} else {
		sb.WriteString(tableStyle.Render(r.table.View()))
		sb.WriteString("\n")
		sb.WriteString(r.calibrationView())
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("l - toggle log   q - disconnect"))
	sb.WriteString("\n")
	return sb.String()
}

func (r Root) headerView() string {
	st := r.status
	address := "unknown"
	if st.AddressKnown {
		address = fmt.Sprintf("%d", st.BaseAddress)
	}
	uptime := "-"
	if !st.Started.IsZero() {
		uptime = humanize.RelTime(st.Started, time.Now(), "", "")
	}
	led := "off"
	if st.ModeLED {
		led = "on"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("BinkyNet accessory decoder"),
		fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
			labelStyle.Render("mode"), st.Mode,
			labelStyle.Render("band"), st.Band,
			labelStyle.Render("address"), address,
			labelStyle.Render("led"), led),
		fmt.Sprintf("%s %s  %s %s",
			labelStyle.Render("up"), uptime,
			labelStyle.Render("ticks"), humanize.Comma(int64(st.Ticks))),
	)
}

func (r Root) calibrationView() string {
	c := r.status.Calibration
	if c.Selected < 0 {
		return labelStyle.Render("calibration") + " no servo selected"
	}
	s := fmt.Sprintf("%s servo %d endpoint %d at %d°",
		labelStyle.Render("calibration"), c.Selected, c.Bit, c.Angle)
	if c.Pending {
		s += " (pending)"
	}
	if c.Centered {
		s += " (centered)"
	}
	return s
}

func (r Root) logView() string {
	if r.logs == nil {
		return ""
	}
	lines := r.logs.Lines()
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return strings.Join(lines, "\n") + "\n"
}

func functionRows(list []decoder.FunctionStatus) []table.Row {
	return lo.Map(list, func(fs decoder.FunctionStatus, _ int) table.Row {
		outputs := lo.Map(fs.Outputs, func(o decoder.OutputStatus, _ int) string {
			if o.Mode == functions.OutputDigital.String() {
				return fmt.Sprintf("%s=%d", o.Pin, o.Value)
			}
			return fmt.Sprintf("%s=%d/%s", o.Pin, o.Value, o.Mode)
		})
		return table.Row{
			fmt.Sprintf("%d", fs.SubAddress),
			fmt.Sprintf("%d", fs.Address),
			fs.Kind,
			fs.State,
			strings.Join(outputs, " "),
		}
	})
}

func doRefresh(source StatusSource) tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return statusMsg(source.Status())
	})
}
