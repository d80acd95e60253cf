// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spectrum/internal/audio"
)

// screen defines which picker screen is active.
type screen int

const (
	deviceScreen screen = iota
	rateScreen
)

var sampleRates = []float64{44100, 48000, 88200, 96000}

// Selection is the outcome of the device picker.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// DevicePickerModel lets the user choose a capture device and sample rate
// before the visualizer starts.
type DevicePickerModel struct {
	fetch    func() ([]audio.Device, error)
	devices  []audio.Device // input-capable only
	cursor   int
	viewport viewport.Model
	ready    bool
	err      error
	active   screen

	rateIndex int
	selection *Selection

	up, down, enter, back, quit key.Binding
}

// NewDevicePickerModel returns a picker that lists devices from fetch.
func NewDevicePickerModel(fetch func() ([]audio.Device, error)) DevicePickerModel {
	return DevicePickerModel{
		fetch: fetch,
		up:    key.NewBinding(key.WithKeys("up", "k")),
		down:  key.NewBinding(key.WithKeys("down", "j")),
		enter: key.NewBinding(key.WithKeys("enter")),
		back:  key.NewBinding(key.WithKeys("esc")),
		quit:  key.NewBinding(key.WithKeys("q", "ctrl+c")),
	}
}

// Selection returns the confirmed choice, if any.
func (m DevicePickerModel) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

// Init implements tea.Model.
func (m DevicePickerModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Update implements tea.Model.
func (m DevicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = m.devices[:0]
		for _, d := range msg.devices {
			if d.MaxInputChannels > 0 {
				m.devices = append(m.devices, d)
			}
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			return m, tea.Quit
		}
		if m.active == deviceScreen {
			switch {
			case key.Matches(msg, m.up):
				m.cursor = max(0, m.cursor-1)
			case key.Matches(msg, m.down):
				m.cursor = max(0, min(len(m.devices)-1, m.cursor+1))
			case key.Matches(msg, m.enter):
				if len(m.devices) > 0 {
					m.active = rateScreen
					m.rateIndex = nearestRate(m.devices[m.cursor].DefaultSampleRate)
				}
			}
		} else {
			switch {
			case key.Matches(msg, m.back):
				m.active = deviceScreen
			case key.Matches(msg, m.up):
				m.rateIndex = max(0, m.rateIndex-1)
			case key.Matches(msg, m.down):
				m.rateIndex = min(len(sampleRates)-1, m.rateIndex+1)
			case key.Matches(msg, m.enter):
				m.selection = &Selection{
					Device:     m.devices[m.cursor],
					SampleRate: sampleRates[m.rateIndex],
				}
				return m, tea.Quit
			}
		}
	}

	if m.ready {
		m.viewport.SetContent(m.content())
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m DevicePickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.active == deviceScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Choose • q: Quit")
	} else {
		title = titleStyle.Render("Sample Rate")
		help = infoStyle.Render("↑/↓: Change • Enter: Start • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePickerModel) content() string {
	if m.active == rateScreen {
		return m.renderRates()
	}
	return m.renderDevices()
}

func (m DevicePickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}
	var sb strings.Builder
	for i, d := range m.devices {
		entry := fmt.Sprintf("[%d] %s\n    %d input channels, %.0f Hz default\n",
			d.ID, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
		if i == m.cursor {
			entry = highlightStyle.Render(entry)
		}
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePickerModel) renderRates() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Capture from: %s\n\n", m.devices[m.cursor].Name)
	for i, rate := range sampleRates {
		marker := " "
		if i == m.rateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.rateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func nearestRate(rate float64) int {
	best := 0
	for i, r := range sampleRates {
		if math.Abs(r-rate) < math.Abs(sampleRates[best]-rate) {
			best = i
		}
	}
	return best
}

// PickDevice runs the picker and returns the user's choice. ok is false
// when the user quit without choosing.
func PickDevice(fetch func() ([]audio.Device, error)) (sel Selection, ok bool, err error) {
	final, err := tea.NewProgram(NewDevicePickerModel(fetch), tea.WithAltScreen()).Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok = final.(DevicePickerModel).Selection()
	return sel, ok, nil
}
