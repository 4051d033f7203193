package main

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/shazow/wifiwizard/wifi"
)

// EscapeWifiString handles the special character escaping for SSID and Password.
func EscapeWifiString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`,`, `\,`,
		`:`, `\:`,
		`"`, `\"`,
	)
	return r.Replace(s)
}

// WifiQRPayload builds the WIFI: join string understood by phone cameras.
// The SSID may use the quoted profile convention.
func WifiQRPayload(ssid, credential string, auth wifi.AuthType, isHidden bool) (string, error) {
	var b strings.Builder

	b.WriteString("WIFI:S:")
	b.WriteString(EscapeWifiString(wifi.UnquoteSSID(ssid)))
	b.WriteString(";")

	switch auth {
	case wifi.AuthWPA:
		b.WriteString("T:WPA;P:")
		b.WriteString(EscapeWifiString(credential))
		b.WriteString(";")
	case wifi.AuthWEP:
		b.WriteString("T:WEP;P:")
		b.WriteString(EscapeWifiString(credential))
		b.WriteString(";")
	case wifi.AuthNone:
		b.WriteString("T:nopass;")
	default:
		return "", fmt.Errorf("auth type %s: %w", auth, wifi.ErrNotSupported)
	}

	if isHidden {
		b.WriteString("H:true;")
	}
	b.WriteString(";")

	return b.String(), nil
}

// GenerateWifiQRCode returns the join code for a network rendered for a terminal.
func GenerateWifiQRCode(ssid, credential string, auth wifi.AuthType, isHidden bool) (string, error) {
	payload, err := WifiQRPayload(ssid, credential, auth, isHidden)
	if err != nil {
		return "", err
	}
	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
