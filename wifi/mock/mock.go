package mock

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shazow/wifiwizard/wifi"
)

var DefaultActionSleep = 200 * time.Millisecond

// MockManager is an in-memory implementation of wifi.Manager.
type MockManager struct {
	Networks []wifi.Profile
	Scan     []wifi.ScanResult
	// ActiveID is the profile currently associated, or wifi.NoNetworkID.
	ActiveID        wifi.NetworkID
	WirelessEnabled bool
	// Saved is the number of profiles at the last SaveConfiguration.
	Saved int

	ConfiguredNetworksError error
	AddError                error
	UpdateError             error
	RemoveError             error
	EnableError             error
	DisableError            error
	SaveError               error
	IsWirelessEnabledError  error
	SetWirelessError        error
	DisconnectError         error
	StartScanError          error
	ScanResultsError        error
	ConnectionInfoError     error

	// Calls records every capability call in order, e.g. "EnableNetwork(2, true)".
	Calls []string

	// ActionSleep is a delay before every action, to better emulate a real-world backend. Set to 0 during testing.
	ActionSleep time.Duration

	nextID wifi.NetworkID
}

// New creates a new mock.MockManager with a list of fun wifi networks.
func New() (wifi.Manager, error) {
	m := &MockManager{
		ActiveID:        wifi.NoNetworkID,
		WirelessEnabled: true,
		ActionSleep:     DefaultActionSleep,
		Scan: []wifi.ScanResult{
			{SSID: "TacoBoutAGoodSignal", BSSID: "10:20:30:40:50:60", Level: -48, Frequency: 5180},
			{SSID: "Password is password", BSSID: "10:20:30:40:50:61", Level: -61, Frequency: 2437},
			{SSID: "Multi-AP Network", BSSID: "00:11:22:33:44:55", Level: -60, Frequency: 2412},
			{SSID: "Multi-AP Network", BSSID: "AA:BB:CC:DD:EE:FF", Level: -70, Frequency: 5180},
			{SSID: "Unencrypted_Honeypot", BSSID: "de:ad:be:ef:00:01", Level: -82, Frequency: 2462},
			{SSID: "NeverGonnaGiveYouIP", BSSID: "de:ad:be:ef:00:02", Level: -91, Frequency: 2412},
		},
	}
	for _, p := range []wifi.Profile{
		{SSID: `"HideYoKidsHideYoWiFi"`, Auth: wifi.AuthWPA, PreSharedKey: "hidden", Hidden: true},
		{SSID: `"GET off my LAN"`, Auth: wifi.AuthWPA, PreSharedKey: "getoff"},
		{SSID: `"Password is password"`, Auth: wifi.AuthWPA, PreSharedKey: "password"},
		// For testing duplicate SSIDs
		{SSID: `"HideYoKidsHideYoWiFi"`, Auth: wifi.AuthWPA, PreSharedKey: "different_secret"},
	} {
		m.insert(p)
	}
	m.Saved = len(m.Networks)
	return m, nil
}

func (m *MockManager) call(format string, a ...any) {
	time.Sleep(m.ActionSleep)
	m.Calls = append(m.Calls, fmt.Sprintf(format, a...))
}

func (m *MockManager) insert(p wifi.Profile) wifi.NetworkID {
	p.ID = m.nextID
	m.nextID++
	m.Networks = append(m.Networks, p)
	return p.ID
}

func (m *MockManager) index(id wifi.NetworkID) int {
	for i, n := range m.Networks {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (m *MockManager) ConfiguredNetworks() ([]wifi.Profile, error) {
	m.call("ConfiguredNetworks()")
	if m.ConfiguredNetworksError != nil {
		return nil, m.ConfiguredNetworksError
	}
	networks := make([]wifi.Profile, len(m.Networks))
	copy(networks, m.Networks)
	return networks, nil
}

func (m *MockManager) AddNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	m.call("AddNetwork(%s)", p.SSID)
	if m.AddError != nil {
		return wifi.NoNetworkID, m.AddError
	}
	if err := wifi.CheckQuotedSSID(p.SSID); err != nil {
		return wifi.NoNetworkID, err
	}
	return m.insert(p), nil
}

func (m *MockManager) UpdateNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	m.call("UpdateNetwork(%d, %s)", p.ID, p.SSID)
	if m.UpdateError != nil {
		return wifi.NoNetworkID, m.UpdateError
	}
	if err := wifi.CheckQuotedSSID(p.SSID); err != nil {
		return wifi.NoNetworkID, err
	}
	i := m.index(p.ID)
	if i < 0 {
		return wifi.NoNetworkID, fmt.Errorf("cannot update unknown network %d: %w", p.ID, wifi.ErrNotFound)
	}
	m.Networks[i] = p
	return p.ID, nil
}

func (m *MockManager) RemoveNetwork(id wifi.NetworkID) error {
	m.call("RemoveNetwork(%d)", id)
	if m.RemoveError != nil {
		return m.RemoveError
	}
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("network not found: %d: %w", id, wifi.ErrNotFound)
	}
	m.Networks = append(m.Networks[:i], m.Networks[i+1:]...)
	if m.ActiveID == id {
		m.ActiveID = wifi.NoNetworkID
	}
	return nil
}

func (m *MockManager) EnableNetwork(id wifi.NetworkID, disableOthers bool) error {
	m.call("EnableNetwork(%d, %t)", id, disableOthers)
	if m.EnableError != nil {
		return m.EnableError
	}
	if m.index(id) < 0 {
		return fmt.Errorf("cannot enable unknown network %d: %w", id, wifi.ErrNotFound)
	}
	if disableOthers {
		m.ActiveID = id
	}
	return nil
}

func (m *MockManager) DisableNetwork(id wifi.NetworkID) error {
	m.call("DisableNetwork(%d)", id)
	if m.DisableError != nil {
		return m.DisableError
	}
	if m.index(id) < 0 {
		return fmt.Errorf("cannot disable unknown network %d: %w", id, wifi.ErrNotFound)
	}
	if m.ActiveID == id {
		m.ActiveID = wifi.NoNetworkID
	}
	return nil
}

func (m *MockManager) SaveConfiguration() error {
	m.call("SaveConfiguration()")
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Saved = len(m.Networks)
	return nil
}

func (m *MockManager) IsWifiEnabled() (bool, error) {
	m.call("IsWifiEnabled()")
	if m.IsWirelessEnabledError != nil {
		return false, m.IsWirelessEnabledError
	}
	return m.WirelessEnabled, nil
}

func (m *MockManager) SetWifiEnabled(enabled bool) error {
	m.call("SetWifiEnabled(%t)", enabled)
	if m.SetWirelessError != nil {
		return m.SetWirelessError
	}
	m.WirelessEnabled = enabled
	if !enabled {
		m.ActiveID = wifi.NoNetworkID
	}
	return nil
}

func (m *MockManager) Disconnect() error {
	m.call("Disconnect()")
	if m.DisconnectError != nil {
		return m.DisconnectError
	}
	m.ActiveID = wifi.NoNetworkID
	return nil
}

func (m *MockManager) StartScan() error {
	m.call("StartScan()")
	if m.StartScanError != nil {
		return m.StartScanError
	}
	if !m.WirelessEnabled {
		return wifi.ErrWirelessDisabled
	}
	// For mock, we can re-randomize levels on each scan
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range m.Scan {
		m.Scan[i].Level = -40 - r.Intn(55)
	}
	return nil
}

func (m *MockManager) ScanResults() ([]wifi.ScanResult, error) {
	m.call("ScanResults()")
	if m.ScanResultsError != nil {
		return nil, m.ScanResultsError
	}
	results := make([]wifi.ScanResult, len(m.Scan))
	copy(results, m.Scan)
	return results, nil
}

func (m *MockManager) ConnectionInfo() (*wifi.ConnectionInfo, error) {
	m.call("ConnectionInfo()")
	if m.ConnectionInfoError != nil {
		return nil, m.ConnectionInfoError
	}
	info := &wifi.ConnectionInfo{RSSI: wifi.InvalidRSSI}
	i := m.index(m.ActiveID)
	if i < 0 {
		return info, nil
	}
	info.SSID = m.Networks[i].SSID
	// Associate with the strongest visible AP for the network.
	name := wifi.UnquoteSSID(info.SSID)
	for _, s := range m.Scan {
		if s.SSID == name && (info.BSSID == "" || s.Level > info.RSSI) {
			info.BSSID = s.BSSID
			info.RSSI = s.Level
		}
	}
	return info, nil
}

func (m *MockManager) CalculateSignalLevel(rssi int, numLevels int) int {
	return wifi.CalculateSignalLevel(rssi, numLevels)
}
