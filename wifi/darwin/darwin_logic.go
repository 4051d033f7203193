package darwin

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shazow/wifiwizard/wifi"
)

type scannedNetwork struct {
	ssid      string
	auth      wifi.AuthType
	rssi      int
	frequency uint
	isActive  bool
}

var (
	signalRe         = regexp.MustCompile(`Signal / Noise:\s*(-?\d+)\s*dBm`)
	securityRe       = regexp.MustCompile(`Security:\s*(.+)`)
	channelRe        = regexp.MustCompile(`Channel:\s*(\d+)\s*\((\d+)GHz`)
	currentNetworkRe = regexp.MustCompile(`Current Wi-Fi Network: (.+)`)
)

// parseSystemProfilerOutput parses the output of `system_profiler SPAirPortDataType`
// to extract visible Wi-Fi networks with their signal strength and security.
func parseSystemProfilerOutput(output string) []scannedNetwork {
	var networks []scannedNetwork
	seen := make(map[string]int)

	add := func(n *scannedNetwork) {
		if n == nil || n.ssid == "" {
			return
		}
		i, ok := seen[n.ssid]
		if !ok {
			seen[n.ssid] = len(networks)
			networks = append(networks, *n)
			return
		}
		// Keep the first entry but fill in a missing signal reading.
		if networks[i].rssi == 0 && n.rssi != 0 {
			networks[i].rssi = n.rssi
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))

	inCurrentNetwork := false
	inOtherNetworks := false
	var currentNetwork *scannedNetwork

	for scanner.Scan() {
		line := scanner.Text()

		// Detect section headers
		if strings.Contains(line, "Current Network Information:") {
			inCurrentNetwork = true
			inOtherNetworks = false
			continue
		}
		if strings.Contains(line, "Other Local Wi-Fi Networks:") {
			inCurrentNetwork = false
			inOtherNetworks = true
			continue
		}

		// Stop parsing if we hit another interface (like awdl0)
		if strings.HasPrefix(strings.TrimSpace(line), "awdl") {
			break
		}

		if !inCurrentNetwork && !inOtherNetworks {
			continue
		}

		trimmed := strings.TrimSpace(line)

		// Network names are at 12-space indent (under Current/Other sections)
		leadingSpaces := len(line) - len(strings.TrimLeft(line, " "))
		if leadingSpaces == 12 && strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, ": ") {
			add(currentNetwork)
			currentNetwork = &scannedNetwork{
				ssid:     strings.TrimSuffix(trimmed, ":"),
				isActive: inCurrentNetwork,
				auth:     wifi.AuthNone,
			}
			continue
		}

		if currentNetwork == nil {
			continue
		}
		if matches := signalRe.FindStringSubmatch(line); len(matches) > 1 {
			currentNetwork.rssi, _ = strconv.Atoi(matches[1])
		}
		if matches := securityRe.FindStringSubmatch(line); len(matches) > 1 {
			currentNetwork.auth = parseSecurityType(strings.TrimSpace(matches[1]))
		}
		if matches := channelRe.FindStringSubmatch(line); len(matches) > 2 {
			channel, _ := strconv.Atoi(matches[1])
			currentNetwork.frequency = channelFrequency(channel, matches[2])
		}
	}
	add(currentNetwork)

	return networks
}

func parseSecurityType(s string) wifi.AuthType {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "enterprise"), strings.Contains(s, "802.1x"):
		return wifi.AuthEAP
	case strings.Contains(s, "wpa"):
		return wifi.AuthWPA
	case strings.Contains(s, "wep"):
		return wifi.AuthWEP
	}
	return wifi.AuthNone
}

// channelFrequency returns the center frequency in MHz of a channel in the
// given band, or 0 if unknown.
func channelFrequency(channel int, band string) uint {
	if channel <= 0 {
		return 0
	}
	switch band {
	case "2":
		if channel == 14 {
			return 2484
		}
		return uint(2407 + 5*channel)
	case "5":
		return uint(5000 + 5*channel)
	case "6":
		return uint(5950 + 5*channel)
	}
	return 0
}

// parsePreferredNetworks parses `networksetup -listpreferredwirelessnetworks`
// into SSIDs in preference order.
func parsePreferredNetworks(output string) []string {
	var ssids []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "Preferred") {
			ssids = append(ssids, line)
		}
	}
	return ssids
}

// parseCurrentNetwork parses `networksetup -getairportnetwork`. It returns
// "" when not associated.
func parseCurrentNetwork(output string) string {
	matches := currentNetworkRe.FindStringSubmatch(output)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// securityTypeArg maps an auth type to the networksetup security name.
func securityTypeArg(auth wifi.AuthType) (string, error) {
	switch auth {
	case wifi.AuthNone:
		return "OPEN", nil
	case wifi.AuthWEP:
		return "WEP", nil
	case wifi.AuthWPA:
		return "WPA2", nil
	}
	return "", fmt.Errorf("auth type %s: %w", auth, wifi.ErrNotSupported)
}

// credential returns the secret networksetup stores in the keychain.
func credential(p wifi.Profile) string {
	switch p.Auth {
	case wifi.AuthWPA:
		return p.PreSharedKey
	case wifi.AuthWEP:
		i := p.WEPTxKeyIndex
		if i < 0 || i >= len(p.WEPKeys) {
			i = 0
		}
		return wifi.UnquoteKey(p.WEPKeys[i])
	}
	return ""
}

// addPreferredArgs builds the networksetup arguments that insert p into the
// preferred list at index.
func addPreferredArgs(iface string, p wifi.Profile, index int) ([]string, error) {
	if err := wifi.CheckQuotedSSID(p.SSID); err != nil {
		return nil, err
	}
	security, err := securityTypeArg(p.Auth)
	if err != nil {
		return nil, err
	}
	args := []string{"-addpreferredwirelessnetworkatindex", iface, wifi.UnquoteSSID(p.SSID), strconv.Itoa(index), security}
	if secret := credential(p); secret != "" {
		args = append(args, secret)
	}
	return args, nil
}

// replacePreferred removes oldSSID and inserts the entry described by add
// in its place. If the insert fails the old name is put back at the same
// index; its secret is still in the keychain.
func replacePreferred(run func(args ...string) error, iface, oldSSID string, add []string) error {
	if err := run("-removepreferredwirelessnetwork", iface, oldSSID); err != nil {
		return err
	}
	err := run(add...)
	if err == nil {
		return nil
	}
	// add is: flag, iface, ssid, index, security[, secret]
	restore := []string{add[0], iface, oldSSID, add[3], add[4]}
	if rerr := run(restore...); rerr != nil {
		return fmt.Errorf("%w (restoring %s also failed: %v)", err, oldSSID, rerr)
	}
	return err
}

// findWifiDevice parses the output of `networksetup -listallhardwareports` to find the Wi-Fi device.
func findWifiDevice(output string) (string, error) {
	// The output is a series of stanzas, separated by blank lines.
	// Each stanza describes a hardware port.
	stanzas := strings.Split(output, "\n\n")
	for _, stanza := range stanzas {
		var hardwarePort, device string
		isWifiPort := false
		lines := strings.Split(stanza, "\n")
		for _, line := range lines {
			if strings.HasPrefix(line, "Hardware Port: ") {
				hardwarePort = strings.TrimPrefix(line, "Hardware Port: ")
				if strings.Contains(hardwarePort, "Wi-Fi") || strings.Contains(hardwarePort, "AirPort") {
					isWifiPort = true
				}
			}
			if strings.HasPrefix(line, "Device: ") {
				device = strings.TrimPrefix(line, "Device: ")
			}
		}
		if isWifiPort && device != "" {
			return device, nil
		}
	}
	return "", fmt.Errorf("no Wi-Fi interface found: %w", wifi.ErrNotFound)
}
