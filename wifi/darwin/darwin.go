//go:build darwin

// Package darwin implements wifi.Manager for macOS using networksetup and
// system_profiler.
//
// Network ids are positions in the preferred network list, so they shift
// when a network before them is removed.
package darwin

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/shazow/wifiwizard/wifi"
)

// runWithOutput wraps exec.Command to capture stderr and wrap errors.
func runWithOutput(c *exec.Cmd) ([]byte, error) {
	var stderr strings.Builder
	c.Stderr = &stderr
	out, err := c.Output()
	if err != nil {
		return out, fmt.Errorf("failed to run command: %s: %w: %s", c.String(), err, stderr.String())
	}
	return out, nil
}

// runOnly wraps exec.Command for commands where we don't care about stdout.
func runOnly(c *exec.Cmd) error {
	var stderr strings.Builder
	c.Stderr = &stderr
	err := c.Run()
	if err != nil {
		return fmt.Errorf("failed to run command: %s: %w: %s", c.String(), err, stderr.String())
	}
	return nil
}

// Manager implements wifi.Manager for macOS.
type Manager struct {
	WifiInterface string
	logger        *slog.Logger

	mu       sync.Mutex
	lastScan []scannedNetwork
}

// New finds the Wi-Fi interface and returns a Manager for it.
func New(logger *slog.Logger) (wifi.Manager, error) {
	// Find the Wi-Fi interface name (e.g., en0)
	cmd := exec.Command("networksetup", "-listallhardwareports")
	out, err := runWithOutput(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to list hardware ports: %w", wifi.ErrOperationFailed)
	}

	device, err := findWifiDevice(string(out))
	if err != nil {
		return nil, err
	}

	return &Manager{
		WifiInterface: device,
		logger:        logger.With("backend", "darwin", "interface", device),
	}, nil
}

func (m *Manager) preferred() ([]string, error) {
	cmd := exec.Command("networksetup", "-listpreferredwirelessnetworks", m.WifiInterface)
	out, err := runWithOutput(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferred networks: %w: %s", wifi.ErrOperationFailed, err)
	}
	return parsePreferredNetworks(string(out)), nil
}

func (m *Manager) ssidAt(id wifi.NetworkID) (string, error) {
	ssids, err := m.preferred()
	if err != nil {
		return "", err
	}
	if id < 0 || int(id) >= len(ssids) {
		return "", fmt.Errorf("network %d: %w", id, wifi.ErrNotFound)
	}
	return ssids[id], nil
}

// ConfiguredNetworks returns the preferred network list. The keychain holds
// the credentials, so only SSIDs are reported.
func (m *Manager) ConfiguredNetworks() ([]wifi.Profile, error) {
	ssids, err := m.preferred()
	if err != nil {
		return nil, err
	}
	profiles := make([]wifi.Profile, len(ssids))
	for i, ssid := range ssids {
		profiles[i] = wifi.Profile{
			ID:      wifi.NetworkID(i),
			SSID:    wifi.QuoteSSID(ssid),
			Auth:    wifi.AuthNone,
			KeyMgmt: wifi.KeyMgmtNone,
		}
	}
	return profiles, nil
}

func (m *Manager) networksetup(args ...string) error {
	return runOnly(exec.Command("networksetup", args...))
}

// AddNetwork appends the profile to the end of the preferred list.
func (m *Manager) AddNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	ssids, err := m.preferred()
	if err != nil {
		return wifi.NoNetworkID, err
	}
	args, err := addPreferredArgs(m.WifiInterface, p, len(ssids))
	if err != nil {
		return wifi.NoNetworkID, err
	}
	if err := m.networksetup(args...); err != nil {
		return wifi.NoNetworkID, err
	}
	return wifi.NetworkID(len(ssids)), nil
}

// UpdateNetwork replaces the profile in place.
func (m *Manager) UpdateNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	ssid, err := m.ssidAt(p.ID)
	if err != nil {
		return wifi.NoNetworkID, err
	}
	args, err := addPreferredArgs(m.WifiInterface, p, int(p.ID))
	if err != nil {
		return wifi.NoNetworkID, err
	}
	if err := replacePreferred(m.networksetup, m.WifiInterface, ssid, args); err != nil {
		return wifi.NoNetworkID, err
	}
	return p.ID, nil
}

func (m *Manager) RemoveNetwork(id wifi.NetworkID) error {
	ssid, err := m.ssidAt(id)
	if err != nil {
		return err
	}
	cmd := exec.Command("networksetup", "-removepreferredwirelessnetwork", m.WifiInterface, ssid)
	return runOnly(cmd)
}

// EnableNetwork joins the network when disableOthers is set. Preferred
// networks are always eligible for auto-join, so otherwise it does nothing.
func (m *Manager) EnableNetwork(id wifi.NetworkID, disableOthers bool) error {
	ssid, err := m.ssidAt(id)
	if err != nil {
		return err
	}
	if !disableOthers {
		return nil
	}
	// For known networks, networksetup uses stored credentials from the keychain
	// automatically - no need to fetch the password ourselves.
	cmd := exec.Command("networksetup", "-setairportnetwork", m.WifiInterface, ssid)
	return runOnly(cmd)
}

// DisableNetwork is not available: macOS has no per-network enable flag.
func (m *Manager) DisableNetwork(id wifi.NetworkID) error {
	if _, err := m.ssidAt(id); err != nil {
		return err
	}
	return fmt.Errorf("disable network: %w", wifi.ErrNotSupported)
}

// SaveConfiguration is a no-op; networksetup persists every change.
func (m *Manager) SaveConfiguration() error {
	return nil
}

// IsWifiEnabled checks if the wireless radio is enabled.
func (m *Manager) IsWifiEnabled() (bool, error) {
	cmd := exec.Command("networksetup", "-getairportpower", m.WifiInterface)
	out, err := runWithOutput(cmd)
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), ": On"), nil
}

// SetWifiEnabled enables or disables the wireless radio.
func (m *Manager) SetWifiEnabled(enabled bool) error {
	state := "off"
	if enabled {
		state = "on"
	}
	cmd := exec.Command("networksetup", "-setairportpower", m.WifiInterface, state)
	return runOnly(cmd)
}

// Disconnect power cycles the radio, which drops the association and lets
// auto-join pick again.
func (m *Manager) Disconnect() error {
	if err := m.SetWifiEnabled(false); err != nil {
		return err
	}
	return m.SetWifiEnabled(true)
}

// StartScan runs a scan synchronously and keeps the results for ScanResults.
func (m *Manager) StartScan() error {
	enabled, err := m.IsWifiEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return wifi.ErrWirelessDisabled
	}
	_, err = m.scan()
	return err
}

func (m *Manager) scan() ([]scannedNetwork, error) {
	// airport is deprecated, system_profiler is the remaining way to scan.
	cmd := exec.Command("system_profiler", "SPAirPortDataType")
	out, err := runWithOutput(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for networks: %w", wifi.ErrOperationFailed)
	}
	networks := parseSystemProfilerOutput(string(out))
	m.logger.Debug("scan complete", "networks", len(networks))

	m.mu.Lock()
	m.lastScan = networks
	m.mu.Unlock()
	return networks, nil
}

// cachedScan returns the last scan, scanning if there is none.
func (m *Manager) cachedScan() ([]scannedNetwork, error) {
	m.mu.Lock()
	networks := m.lastScan
	m.mu.Unlock()
	if networks != nil {
		return networks, nil
	}
	return m.scan()
}

func (m *Manager) ScanResults() ([]wifi.ScanResult, error) {
	networks, err := m.cachedScan()
	if err != nil {
		return nil, err
	}
	results := make([]wifi.ScanResult, 0, len(networks))
	for _, n := range networks {
		results = append(results, wifi.ScanResult{
			SSID:      n.ssid,
			Level:     n.rssi,
			Frequency: n.frequency,
		})
	}
	return results, nil
}

// ConnectionInfo reports the current network. system_profiler does not
// expose BSSIDs, so BSSID is always empty.
func (m *Manager) ConnectionInfo() (*wifi.ConnectionInfo, error) {
	cmd := exec.Command("networksetup", "-getairportnetwork", m.WifiInterface)
	out, err := runWithOutput(cmd)
	if err != nil {
		return nil, err
	}
	info := &wifi.ConnectionInfo{RSSI: wifi.InvalidRSSI}
	ssid := parseCurrentNetwork(string(out))
	if ssid == "" {
		return info, nil
	}
	info.SSID = wifi.QuoteSSID(ssid)

	networks, err := m.scan()
	if err != nil {
		m.logger.Debug("no signal reading", "error", err)
		return info, nil
	}
	for _, n := range networks {
		if n.isActive && n.ssid == ssid && n.rssi != 0 {
			info.RSSI = n.rssi
			break
		}
	}
	return info, nil
}

func (m *Manager) CalculateSignalLevel(rssi int, numLevels int) int {
	return wifi.CalculateSignalLevel(rssi, numLevels)
}
