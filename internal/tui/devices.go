// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"waveviz/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// SampleRates offered on the configuration screen.
var SampleRates = []float64{44100, 48000, 88200, 96000}

type keyMap struct {
	Up, Down, Enter, Back, Inputs, Quit key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Enter:  key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Inputs: key.NewBinding(key.WithKeys("i")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// Selection is the device and rate chosen in the picker.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

// DevicePicker is the Bubble Tea model for browsing audio devices and
// choosing a microphone.
type DevicePicker struct {
	fetch         func() ([]audio.Device, error)
	pick          bool // Enter on the config screen confirms a selection
	inputsOnly    bool
	all           []audio.Device
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	sampleRateIndex int
	selection       *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDevicePicker returns a picker listing the devices returned by fetch.
// With pick set, confirming a device on the configuration screen ends the
// program with a Selection.
func NewDevicePicker(fetch func() ([]audio.Device, error), pick bool) DevicePicker {
	return DevicePicker{
		fetch:        fetch,
		pick:         pick,
		inputsOnly:   pick,
		activeScreen: ListScreen,
	}
}

// Init fetches the device list.
func (m DevicePicker) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Selection returns the confirmed choice, if any.
func (m DevicePicker) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

func (m *DevicePicker) filter() {
	m.devices = make([]audio.Device, 0, len(m.all))
	for _, d := range m.all {
		if !m.inputsOnly || d.MaxInputChannels > 0 {
			m.devices = append(m.devices, d)
		}
	}
	m.selectedIndex = min(m.selectedIndex, max(len(m.devices)-1, 0))
}

func (m DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

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
		m.refresh()

	case devicesMsg:
		m.all = msg.devices
		m.filter()
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, keys.Up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, keys.Down):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, keys.Inputs):
				m.inputsOnly = !m.inputsOnly
				m.filter()
			case key.Matches(msg, keys.Enter):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
					m.sampleRateIndex = rateIndex(m.devices[m.selectedIndex].DefaultSampleRate)
				}
			}
		} else {
			switch {
			case key.Matches(msg, keys.Back):
				m.activeScreen = ListScreen
			case key.Matches(msg, keys.Up):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
				}
			case key.Matches(msg, keys.Down):
				if m.sampleRateIndex < len(SampleRates)-1 {
					m.sampleRateIndex++
				}
			case key.Matches(msg, keys.Enter):
				if m.pick {
					m.selection = &Selection{
						Device:     m.devices[m.selectedIndex],
						SampleRate: SampleRates[m.sampleRateIndex],
					}
					return m, tea.Quit
				}
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DevicePicker) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ListScreen {
		m.viewport.SetContent(m.renderDevices())
	} else {
		m.viewport.SetContent(m.renderDeviceConfig())
	}
}

// rateIndex returns the offered rate closest to rate.
func rateIndex(rate float64) int {
	best := 0
	for i, r := range SampleRates {
		if abs(r-rate) < abs(SampleRates[best]-rate) {
			best = i
		}
	}
	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// View renders the UI
func (m DevicePicker) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • i: Inputs only • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		if m.pick {
			help = infoStyle.Render("↑/↓: Sample rate • Enter: Use device • Esc: Back • q: Quit")
		} else {
			help = infoStyle.Render("↑/↓: Sample rate • Esc: Back • q: Quit")
		}
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePicker) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			deviceInfo = highlightStyle.Render(deviceInfo)
		case device.MaxInputChannels == 0:
			deviceInfo = dimStyle.Render(deviceInfo)
		}
		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePicker) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	fmt.Fprintf(&sb, "Input latency: %.1f ms low, %.1f ms high\n\n", device.LowInputLatency, device.HighInputLatency)
	sb.WriteString("Sample Rate:\n")
	for i, rate := range SampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// RunDevicePicker runs the picker full screen and returns the final model.
func RunDevicePicker(fetch func() ([]audio.Device, error), pick bool) (DevicePicker, error) {
	p := tea.NewProgram(NewDevicePicker(fetch, pick), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return DevicePicker{}, err
	}
	return final.(DevicePicker), nil
}
