package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// Color is a terminal color that can be loaded from TOML as either a single
// hex string or a [light, dark] pair.
type Color struct {
	lipgloss.TerminalColor
}

// UnmarshalTOML implements toml.Unmarshaler.
func (c *Color) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		c.TerminalColor = lipgloss.Color(v)
		return nil
	case []any:
		if len(v) != 2 {
			return fmt.Errorf("adaptive color needs exactly 2 values, got %d", len(v))
		}
		light, ok1 := v[0].(string)
		dark, ok2 := v[1].(string)
		if !ok1 || !ok2 {
			return errors.New("adaptive color values must be strings")
		}
		c.TerminalColor = lipgloss.AdaptiveColor{Light: light, Dark: dark}
		return nil
	}
	return fmt.Errorf("unsupported color value %v", v)
}

// hex picks the concrete hex value for the current terminal background.
func (c Color) hex() string {
	switch tc := c.TerminalColor.(type) {
	case lipgloss.AdaptiveColor:
		if lipgloss.HasDarkBackground() {
			return tc.Dark
		}
		return tc.Light
	case lipgloss.Color:
		return string(tc)
	}
	return ""
}

// Theme contains the colors for terminal output.
type Theme struct {
	Primary    Color `toml:"Primary"`
	Subtle     Color `toml:"Subtle"`
	Success    Color `toml:"Success"`
	Error      Color `toml:"Error"`
	SignalHigh Color `toml:"SignalHigh"`
	SignalLow  Color `toml:"SignalLow"`
}

// CurrentTheme is the active theme for the application.
var CurrentTheme = NewDefaultTheme()

// NewDefaultTheme creates a new default theme.
func NewDefaultTheme() Theme {
	return Theme{
		Primary:    Color{lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#D359E3"}}, // Purple/Pink
		Subtle:     Color{lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}}, // Gray
		Success:    Color{lipgloss.AdaptiveColor{Light: "#388E3C", Dark: "#81C784"}}, // Green
		Error:      Color{lipgloss.AdaptiveColor{Light: "#D32F2F", Dark: "#E57373"}}, // Red
		SignalHigh: Color{lipgloss.AdaptiveColor{Light: "#00B300", Dark: "#00FF00"}},
		SignalLow:  Color{lipgloss.AdaptiveColor{Light: "#D05F00", Dark: "#BC3C00"}},
	}
}

// LoadTheme reads a TOML theme. Colors missing from the file keep their
// default values.
func LoadTheme(r io.Reader) (Theme, error) {
	if r == nil {
		return Theme{}, errors.New("no theme reader")
	}
	theme := NewDefaultTheme()
	if _, err := toml.NewDecoder(r).Decode(&theme); err != nil {
		return Theme{}, fmt.Errorf("failed to decode theme: %w", err)
	}
	return theme, nil
}
