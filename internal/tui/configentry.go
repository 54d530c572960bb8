package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/fveres/dstui/internal/config"
	"github.com/fveres/dstui/internal/discovery"
)

// form rows, in navigation order
const (
	fieldHost = iota
	fieldPort
	fieldScheme
	fieldUsername
	fieldPassword
	fieldVerify
	fieldCount
)

// ConfigModel is the connection form shown when no saved credentials
// exist or the saved ones were rejected. Submitting a valid form hands a
// populated config back to the app, which saves it and connects.
type ConfigModel struct {
	inputs  [4]textinput.Model // host, port, username, password
	focused int

	scheme      string // "http" or "https"
	verifyCerts bool

	// carried over from an existing config so re-entering the form after
	// rejected credentials does not reset a tuned interval
	pollIntervalSecs int

	ErrMsg string

	Scanning bool
	Stations []*discovery.Station
	spinner  spinner.Model

	Width  int
	Height int
}

// inputIndex maps a form row to its textinput slot, or -1 for toggles
func inputIndex(field int) int {
	switch field {
	case fieldHost:
		return 0
	case fieldPort:
		return 1
	case fieldUsername:
		return 2
	case fieldPassword:
		return 3
	default:
		return -1
	}
}

// NewConfigModel creates the form, pre-filled from an existing config
// when one is available (the re-entry after rejected credentials).
func NewConfigModel(existing *config.Config) ConfigModel {
	m := ConfigModel{
		scheme:      "http",
		verifyCerts: true,
	}

	host := textinput.New()
	host.Placeholder = "192.168.1.20 or diskstation.local"
	host.CharLimit = 253
	host.Focus()

	port := textinput.New()
	port.Placeholder = "5000"
	port.CharLimit = 5

	username := textinput.New()
	username.Placeholder = "admin"
	username.CharLimit = 64

	password := textinput.New()
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	if existing != nil {
		host.SetValue(existing.Host)
		if existing.Port > 0 {
			port.SetValue(strconv.Itoa(existing.Port))
		}
		username.SetValue(existing.Username)
		password.SetValue(existing.Password)
		if existing.Scheme != "" {
			m.scheme = existing.Scheme
		}
		m.verifyCerts = existing.VerifyCertificates
		m.pollIntervalSecs = existing.PollIntervalSecs
	}

	m.inputs = [4]textinput.Model{host, port, username, password}

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = SpinnerStyle

	return m
}

// Next moves focus to the following form row
func (m *ConfigModel) Next() {
	m.setFocus((m.focused + 1) % fieldCount)
}

// Prev moves focus to the preceding form row
func (m *ConfigModel) Prev() {
	m.setFocus((m.focused + fieldCount - 1) % fieldCount)
}

func (m *ConfigModel) setFocus(field int) {
	m.focused = field
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	if idx := inputIndex(field); idx >= 0 {
		m.inputs[idx].Focus()
	}
}

// Toggle flips the value of the focused toggle row, if any
func (m *ConfigModel) Toggle() {
	switch m.focused {
	case fieldScheme:
		if m.scheme == "http" {
			m.scheme = "https"
		} else {
			m.scheme = "http"
		}
	case fieldVerify:
		m.verifyCerts = !m.verifyCerts
	}
}

// FocusedInput returns a pointer to the focused textinput, or nil when a
// toggle row has focus.
func (m *ConfigModel) FocusedInput() *textinput.Model {
	if idx := inputIndex(m.focused); idx >= 0 {
		return &m.inputs[idx]
	}
	return nil
}

// ApplyStation pre-fills the form from a discovered DiskStation
func (m *ConfigModel) ApplyStation(station *discovery.Station) {
	m.inputs[0].SetValue(station.IP)
	if station.SecurePort > 0 {
		m.scheme = "https"
		m.inputs[1].SetValue(strconv.Itoa(station.SecurePort))
	} else {
		m.scheme = "http"
		m.inputs[1].SetValue(strconv.Itoa(station.Port))
	}
}

// BuildConfig assembles and validates a Config from the form state. Fields
// the form does not expose (port when left empty, poll interval) take the
// same defaults a loaded config file would.
func (m *ConfigModel) BuildConfig() (*config.Config, error) {
	port := 0
	if v := strings.TrimSpace(m.inputs[1].Value()); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("port must be a number")
		}
		port = parsed
	}

	cfg := &config.Config{
		Host:               strings.TrimSpace(m.inputs[0].Value()),
		Scheme:             m.scheme,
		Port:               port,
		Username:           strings.TrimSpace(m.inputs[2].Value()),
		Password:           m.inputs[3].Value(),
		PollIntervalSecs:   m.pollIntervalSecs,
		VerifyCertificates: m.verifyCerts,
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Spinner exposes the scan spinner for tick routing
func (m *ConfigModel) Spinner() *spinner.Model {
	return &m.spinner
}

// View renders the connection form
func (m ConfigModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Connect to Download Station"))
	b.WriteString("\n\n")

	rows := []struct {
		field int
		label string
	}{
		{fieldHost, "Host"},
		{fieldPort, "Port"},
		{fieldScheme, "Scheme"},
		{fieldUsername, "Username"},
		{fieldPassword, "Password"},
		{fieldVerify, "Verify certificates"},
	}

	for _, row := range rows {
		label := fmt.Sprintf("  %-22s", row.label)
		if row.field == m.focused {
			b.WriteString(FocusedInputStyle.Render("→" + label[1:]))
		} else {
			b.WriteString(BlurredInputStyle.Render(label))
		}

		switch row.field {
		case fieldScheme:
			b.WriteString(renderToggle(m.scheme, row.field == m.focused))
		case fieldVerify:
			value := "yes"
			if !m.verifyCerts {
				value = "no (accept self-signed)"
			}
			b.WriteString(renderToggle(value, row.field == m.focused))
		default:
			b.WriteString(m.inputs[inputIndex(row.field)].View())
		}
		b.WriteString("\n")
	}

	if m.scheme == "https" && !m.verifyCerts {
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render("  ⚠ certificate validation disabled; the connection can be intercepted"))
		b.WriteString("\n")
	}

	if m.Scanning {
		b.WriteString("\n")
		b.WriteString("  " + m.spinner.View() + " scanning the local network for DiskStations...")
		b.WriteString("\n")
	} else if len(m.Stations) > 0 {
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("  found %d station(s); first result applied", len(m.Stations))))
		b.WriteString("\n")
	}

	if m.ErrMsg != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("  " + m.ErrMsg))
		b.WriteString("\n")
	}

	return b.String()
}

func renderToggle(value string, focused bool) string {
	text := "< " + value + " >"
	if focused {
		return FocusedInputStyle.Render(text)
	}
	return BlurredInputStyle.Render(text)
}
