// Package render formats command results for a terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/shazow/wifiwizard/internal/wizard"
	"github.com/shazow/wifiwizard/wifi"
)

// Options controls how a result is written.
type Options struct {
	// Pretty selects styled text instead of JSON.
	Pretty bool
	// NumLevels is the bucket count used for scan levels, or 0 for raw RSSI.
	NumLevels int
}

type jsonResult struct {
	Status  string `json:"status"`
	Payload any    `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
}

// Write writes a result to w.
func Write(w io.Writer, res wizard.Result, opts Options) error {
	if !opts.Pretty {
		out := jsonResult{Status: "success", Payload: res.Payload}
		if !res.OK {
			out = jsonResult{Status: "error", Message: res.Message}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	theme := CurrentTheme
	if !res.OK {
		_, err := fmt.Fprintln(w, lipgloss.NewStyle().Foreground(theme.Error).Render("✗ "+res.Message))
		return err
	}

	ok := lipgloss.NewStyle().Foreground(theme.Success)
	switch p := res.Payload.(type) {
	case nil:
		_, err := fmt.Fprintln(w, ok.Render("✓ ok"))
		return err
	case string:
		_, err := fmt.Fprintln(w, ok.Render("✓ ")+p)
		return err
	case []string:
		for _, s := range p {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	case []wizard.ScanRecord:
		return writeScan(w, p, theme, opts.NumLevels)
	}
	_, err := fmt.Fprintf(w, "%v\n", res.Payload)
	return err
}

func writeScan(w io.Writer, records []wizard.ScanRecord, theme Theme, numLevels int) error {
	subtle := lipgloss.NewStyle().Foreground(theme.Subtle)
	for _, r := range sortScan(records) {
		level := lipgloss.NewStyle().Foreground(signalColor(theme, signalFraction(r.Level, numLevels)))
		ssid := r.SSID
		if ssid == "" {
			ssid = subtle.Render("(hidden)")
		}
		_, err := fmt.Fprintf(w, "%s  %s  %s\n",
			level.Render(fmt.Sprintf("%4d", r.Level)),
			subtle.Render(fmt.Sprintf("%-17s", r.BSSID)),
			ssid,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// signalFraction maps a level to 0..1 for coloring.
func signalFraction(level int, numLevels int) float64 {
	if numLevels > 1 {
		return float64(level) / float64(numLevels-1)
	}
	return float64(wifi.RSSIToStrength(level)) / 100.0
}

// signalColor blends between the low and high signal colors.
func signalColor(theme Theme, p float64) lipgloss.Color {
	start, err := colorful.Hex(theme.SignalLow.hex())
	if err != nil {
		return lipgloss.Color(theme.SignalLow.hex())
	}
	end, err := colorful.Hex(theme.SignalHigh.hex())
	if err != nil {
		return lipgloss.Color(theme.SignalHigh.hex())
	}
	return lipgloss.Color(start.BlendRgb(end, p).Hex())
}
