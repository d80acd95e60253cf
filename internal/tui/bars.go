// SPDX-License-Identifier: MIT

// Package tui draws the visualizer's bars in the terminal and maps key
// presses onto its lifecycle.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Controller is the part of the visualizer the keys drive.
type Controller interface {
	Active() bool
	SetActive(active bool)
	Reset()
}

// HeightsMsg carries one frame of bar heights into the program.
type HeightsMsg []float64

// chromeLines is the number of rows used by the title and help.
const chromeLines = 4

// BarsModel is the Bubble Tea model for the live bars screen.
type BarsModel struct {
	ctrl      Controller
	title     string
	maxHeight float64

	heights []float64
	frames  uint64
	width   int
	height  int

	keys keyMap
	help help.Model
}

// NewBarsModel returns a model that scales heights against maxHeight.
func NewBarsModel(ctrl Controller, title string, maxHeight float64) BarsModel {
	return BarsModel{
		ctrl:      ctrl,
		title:     title,
		maxHeight: maxHeight,
		width:     80,
		height:    24,
		keys:      defaultKeys(),
		help:      help.New(),
	}
}

// Init implements tea.Model.
func (m BarsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BarsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case HeightsMsg:
		m.heights = msg
		m.frames++

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			return m, m.control(func(c Controller) { c.SetActive(!c.Active()) })
		case key.Matches(msg, m.keys.Reset):
			return m, m.control(Controller.Reset)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

// control runs fn off the event loop. The visualizer delivers the
// collapsed bars synchronously, and that delivery sends back into this
// program.
func (m BarsModel) control(fn func(Controller)) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		fn(ctrl)
		return nil
	}
}

// View implements tea.Model.
func (m BarsModel) View() string {
	var sb strings.Builder

	status := fmt.Sprintf("%d bars • frame %d", len(m.heights), m.frames)
	if m.ctrl != nil && !m.ctrl.Active() {
		status = pausedStyle.Render("paused")
	}
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString(" ")
	sb.WriteString(infoStyle.Render(status))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderBars())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// renderBars draws the bars bottom-aligned, one text row per cell.
func (m BarsModel) renderBars() string {
	rows := max(1, m.height-chromeLines)
	cols := columns(m.heights, max(1, m.width))
	if len(cols) == 0 {
		return strings.Repeat("\n", rows-1)
	}
	barWidth := max(1, m.width/len(cols))

	levels := make([]float64, len(cols))
	for i, h := range cols {
		if m.maxHeight > 0 {
			levels[i] = math.Max(0, math.Min(1, h/m.maxHeight)) * float64(rows)
		}
	}

	lines := make([]string, 0, rows)
	var line strings.Builder
	for r := rows - 1; r >= 0; r-- {
		line.Reset()
		for _, level := range levels {
			line.WriteString(strings.Repeat(cell(level-float64(r)), barWidth))
		}
		lines = append(lines, rowStyle(float64(r)/float64(rows)).Render(line.String()))
	}
	return strings.Join(lines, "\n")
}

// cell returns the glyph for a row that is fill rows below the bar top.
func cell(fill float64) string {
	switch {
	case fill >= 1:
		return barBlocks[len(barBlocks)-1]
	case fill <= 0:
		return barBlocks[0]
	default:
		return barBlocks[int(fill*float64(len(barBlocks)-1))]
	}
}

// columns fits heights into at most width columns, keeping the tallest
// bar of every group.
func columns(heights []float64, width int) []float64 {
	n := len(heights)
	if n <= width {
		return heights
	}
	out := make([]float64, width)
	for i := range out {
		lo, hi := i*n/width, (i+1)*n/width
		peak := 0.0
		for _, h := range heights[lo:hi] {
			peak = math.Max(peak, h)
		}
		out[i] = peak
	}
	return out
}
