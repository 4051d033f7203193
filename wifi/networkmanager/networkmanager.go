//go:build linux

// Package networkmanager implements wifi.Manager on top of NetworkManager's
// D-Bus API.
//
// NetworkManager identifies profiles by object path. Paths are mapped to
// small integer ids in the order they are first seen, so ids are stable for
// the life of a Manager.
package networkmanager

import (
	"fmt"
	"log/slog"
	"sync"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/shazow/wifiwizard/wifi"
)

const (
	settingConnection = "connection"
	settingWireless   = "802-11-wireless"
	settingSecurity   = "802-11-wireless-security"
)

// Manager implements wifi.Manager using D-Bus to communicate with NetworkManager.
type Manager struct {
	NM       gonetworkmanager.NetworkManager
	Settings gonetworkmanager.Settings
	logger   *slog.Logger

	mu     sync.Mutex
	device gonetworkmanager.DeviceWireless
	ids    map[dbus.ObjectPath]wifi.NetworkID
	conns  map[wifi.NetworkID]gonetworkmanager.Connection
	nextID wifi.NetworkID
}

// New connects to NetworkManager on the system bus.
func New(logger *slog.Logger) (wifi.Manager, error) {
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create network manager client: %w", wifi.ErrNotAvailable)
	}

	settings, err := gonetworkmanager.NewSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", wifi.ErrOperationFailed)
	}

	return newManager(nm, settings, logger), nil
}

func newManager(nm gonetworkmanager.NetworkManager, settings gonetworkmanager.Settings, logger *slog.Logger) *Manager {
	return &Manager{
		NM:       nm,
		Settings: settings,
		logger:   logger.With("backend", "networkmanager"),
		ids:      make(map[dbus.ObjectPath]wifi.NetworkID),
		conns:    make(map[wifi.NetworkID]gonetworkmanager.Connection),
	}
}

// getWirelessDevice returns the first wifi device. The result is cached.
func (m *Manager) getWirelessDevice() (gonetworkmanager.DeviceWireless, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return m.device, nil
	}

	devices, err := m.NM.GetDevices()
	if err != nil {
		return nil, err
	}
	for _, device := range devices {
		if dev, ok := device.(gonetworkmanager.DeviceWireless); ok {
			m.device = dev
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no wireless device found: %w", wifi.ErrNotFound)
}

// register returns the id for a connection, assigning a new one if the path
// has not been seen before.
func (m *Manager) register(conn gonetworkmanager.Connection) wifi.NetworkID {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := conn.GetPath()
	id, ok := m.ids[path]
	if !ok {
		id = m.nextID
		m.nextID++
		m.ids[path] = id
	}
	m.conns[id] = conn
	return id
}

func (m *Manager) forget(id wifi.NetworkID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.conns[id]; ok {
		delete(m.ids, conn.GetPath())
		delete(m.conns, id)
	}
}

// connection looks up a profile by id, listing connections once if the id
// is not known yet.
func (m *Manager) connection(id wifi.NetworkID) (gonetworkmanager.Connection, error) {
	m.mu.Lock()
	conn, ok := m.conns[id]
	m.mu.Unlock()
	if ok {
		return conn, nil
	}
	if _, err := m.ConfiguredNetworks(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.conns[id]; ok {
		return conn, nil
	}
	return nil, fmt.Errorf("network %d: %w", id, wifi.ErrNotFound)
}

func (m *Manager) ConfiguredNetworks() ([]wifi.Profile, error) {
	conns, err := m.Settings.ListConnections()
	if err != nil {
		return nil, err
	}
	var profiles []wifi.Profile
	for _, conn := range conns {
		s, err := conn.GetSettings()
		if err != nil {
			m.logger.Debug("skipping unreadable connection", "path", conn.GetPath(), "error", err)
			continue
		}
		if t, _ := s[settingConnection]["type"].(string); t != settingWireless {
			continue
		}
		p := profileFromSettings(s)
		p.ID = m.register(conn)
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (m *Manager) AddNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	if err := wifi.CheckQuotedSSID(p.SSID); err != nil {
		return wifi.NoNetworkID, err
	}
	settings := settingsFromProfile(p)
	settings[settingConnection]["uuid"] = uuid.New().String()
	if dev, err := m.getWirelessDevice(); err == nil {
		if iface, err := dev.GetPropertyInterface(); err == nil {
			settings[settingConnection]["interface-name"] = iface
		}
	}

	conn, err := m.Settings.AddConnectionUnsaved(settings)
	if err != nil {
		return wifi.NoNetworkID, fmt.Errorf("failed to add connection: %w", err)
	}
	id := m.register(conn)
	m.logger.Debug("added connection", "id", id, "path", conn.GetPath())
	return id, nil
}

func (m *Manager) UpdateNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	if err := wifi.CheckQuotedSSID(p.SSID); err != nil {
		return wifi.NoNetworkID, err
	}
	conn, err := m.connection(p.ID)
	if err != nil {
		return wifi.NoNetworkID, err
	}
	current, err := conn.GetSettings()
	if err != nil {
		return wifi.NoNetworkID, err
	}

	next := settingsFromProfile(p)
	if current[settingConnection] == nil {
		current[settingConnection] = make(map[string]interface{})
	}
	for k, v := range next[settingConnection] {
		current[settingConnection][k] = v
	}
	current[settingWireless] = next[settingWireless]
	if sec, ok := next[settingSecurity]; ok {
		current[settingSecurity] = sec
	} else {
		delete(current, settingSecurity)
	}

	applyUpdateWorkaround(current)
	if err := conn.UpdateUnsaved(current); err != nil {
		return wifi.NoNetworkID, fmt.Errorf("failed to update connection: %w", err)
	}
	return p.ID, nil
}

func (m *Manager) RemoveNetwork(id wifi.NetworkID) error {
	conn, err := m.connection(id)
	if err != nil {
		return err
	}
	if err := conn.Delete(); err != nil {
		return err
	}
	m.forget(id)
	return nil
}

func (m *Manager) EnableNetwork(id wifi.NetworkID, disableOthers bool) error {
	conn, err := m.connection(id)
	if err != nil {
		return err
	}
	if err := m.setAutoConnect(conn, true); err != nil {
		return err
	}
	if !disableOthers {
		return nil
	}

	dev, err := m.getWirelessDevice()
	if err != nil {
		return err
	}
	// Activation is asynchronous; the caller polls ConnectionInfo for the result.
	_, err = m.NM.ActivateConnection(conn, dev, nil)
	return err
}

func (m *Manager) DisableNetwork(id wifi.NetworkID) error {
	conn, err := m.connection(id)
	if err != nil {
		return err
	}

	active, err := m.NM.GetPropertyActiveConnections()
	if err != nil {
		return err
	}
	for _, ac := range active {
		c, err := ac.GetPropertyConnection()
		if err != nil || c == nil || c.GetPath() != conn.GetPath() {
			continue
		}
		if err := m.NM.DeactivateConnection(ac); err != nil {
			return err
		}
	}
	return m.setAutoConnect(conn, false)
}

func (m *Manager) setAutoConnect(conn gonetworkmanager.Connection, autoConnect bool) error {
	settings, err := conn.GetSettings()
	if err != nil {
		return err
	}
	if _, ok := settings[settingConnection]; !ok {
		settings[settingConnection] = make(map[string]interface{})
	}
	settings[settingConnection]["autoconnect"] = autoConnect

	applyUpdateWorkaround(settings)
	return conn.UpdateUnsaved(settings)
}

// SaveConfiguration writes every unsaved wireless profile to disk.
func (m *Manager) SaveConfiguration() error {
	m.mu.Lock()
	conns := make([]gonetworkmanager.Connection, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		unsaved, err := conn.GetPropertyUnsaved()
		if err != nil || !unsaved {
			continue
		}
		if err := conn.Save(); err != nil {
			return fmt.Errorf("failed to save %s: %w", conn.GetPath(), err)
		}
	}
	return nil
}

func (m *Manager) IsWifiEnabled() (bool, error) {
	return m.NM.GetPropertyWirelessEnabled()
}

// SetWifiEnabled enables or disables the wireless radio.
func (m *Manager) SetWifiEnabled(enabled bool) error {
	// Not all versions of NetworkManager support subscribing to signals, so we
	// can't rely on it. We'll just have to assume the change was successful.
	// See: https://github.com/Wifx/gonetworkmanager/pull/14
	return m.NM.SetPropertyWirelessEnabled(enabled)
}

func (m *Manager) Disconnect() error {
	dev, err := m.getWirelessDevice()
	if err != nil {
		return err
	}
	return dev.Disconnect()
}

func (m *Manager) StartScan() error {
	enabled, err := m.IsWifiEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return wifi.ErrWirelessDisabled
	}
	dev, err := m.getWirelessDevice()
	if err != nil {
		return err
	}
	return dev.RequestScan()
}

func (m *Manager) ScanResults() ([]wifi.ScanResult, error) {
	dev, err := m.getWirelessDevice()
	if err != nil {
		return nil, err
	}
	aps, err := dev.GetAccessPoints()
	if err != nil {
		return nil, err
	}

	results := make([]wifi.ScanResult, 0, len(aps))
	for _, ap := range aps {
		r, err := scanResult(ap)
		if err != nil {
			m.logger.Debug("skipping access point", "path", ap.GetPath(), "error", err)
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func scanResult(ap gonetworkmanager.AccessPoint) (wifi.ScanResult, error) {
	ssid, err := ap.GetPropertySSID()
	if err != nil {
		return wifi.ScanResult{}, err
	}
	bssid, err := ap.GetPropertyHWAddress()
	if err != nil {
		return wifi.ScanResult{}, err
	}
	strength, _ := ap.GetPropertyStrength()
	freq, _ := ap.GetPropertyFrequency()
	return wifi.ScanResult{
		SSID:      ssid,
		BSSID:     bssid,
		Level:     wifi.StrengthToRSSI(strength),
		Frequency: uint(freq),
	}, nil
}

func (m *Manager) ConnectionInfo() (*wifi.ConnectionInfo, error) {
	dev, err := m.getWirelessDevice()
	if err != nil {
		return nil, err
	}
	ap, err := dev.GetPropertyActiveAccessPoint()
	if err != nil {
		return nil, err
	}
	if ap == nil {
		return &wifi.ConnectionInfo{RSSI: wifi.InvalidRSSI}, nil
	}
	r, err := scanResult(ap)
	if err != nil {
		return nil, err
	}
	return &wifi.ConnectionInfo{
		SSID:  wifi.QuoteSSID(r.SSID),
		BSSID: r.BSSID,
		RSSI:  r.Level,
	}, nil
}

func (m *Manager) CalculateSignalLevel(rssi int, numLevels int) int {
	return wifi.CalculateSignalLevel(rssi, numLevels)
}

// settingsFromProfile builds the NetworkManager settings for a profile,
// without a uuid.
func settingsFromProfile(p wifi.Profile) gonetworkmanager.ConnectionSettings {
	ssid := wifi.UnquoteSSID(p.SSID)
	settings := gonetworkmanager.ConnectionSettings{
		settingConnection: {
			"id":   ssid,
			"type": settingWireless,
		},
		settingWireless: {
			"mode": "infrastructure",
			"ssid": []byte(ssid),
		},
		"ipv4": {"method": "auto"},
		"ipv6": {"method": "auto"},
	}
	if p.Hidden {
		settings[settingWireless]["hidden"] = true
	}

	switch p.Auth {
	case wifi.AuthWEP:
		settings[settingWireless]["security"] = settingSecurity
		settings[settingSecurity] = map[string]interface{}{
			"key-mgmt":      "none",
			"wep-key0":      wifi.UnquoteKey(p.WEPKeys[0]),
			"wep-tx-keyidx": uint32(p.WEPTxKeyIndex),
		}
	case wifi.AuthWPA:
		settings[settingWireless]["security"] = settingSecurity
		settings[settingSecurity] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      p.PreSharedKey,
		}
	}
	return settings
}

// profileFromSettings reads the parts of a connection that wifi.Profile
// carries. Secrets are not included in plain settings.
func profileFromSettings(s gonetworkmanager.ConnectionSettings) wifi.Profile {
	p := wifi.Profile{ID: wifi.NoNetworkID, Auth: wifi.AuthNone, KeyMgmt: wifi.KeyMgmtNone}
	if w, ok := s[settingWireless]; ok {
		if ssid, ok := w["ssid"].([]byte); ok {
			p.SSID = wifi.QuoteSSID(string(ssid))
		}
		p.Hidden, _ = w["hidden"].(bool)
	}

	sec, ok := s[settingSecurity]
	if !ok {
		return p
	}
	switch km, _ := sec["key-mgmt"].(string); km {
	case "wpa-psk", "sae":
		p.Auth = wifi.AuthWPA
		p.KeyMgmt = wifi.KeyMgmtWPAPSK
	case "wpa-eap":
		p.Auth = wifi.AuthEAP
		p.KeyMgmt = wifi.KeyMgmtWPAEAP
	case "ieee8021x":
		p.Auth = wifi.AuthEAP
		p.KeyMgmt = wifi.KeyMgmtIEEE8021X
	case "none":
		p.Auth = wifi.AuthWEP
		p.GroupCiphers = wifi.GroupWEP40 | wifi.GroupWEP104
	}
	return p
}

// applyUpdateWorkaround modifies the settings map to workaround D-Bus type errors.
//
// NetworkManager's D-Bus API can return ipv6.addresses and ipv6.routes as an
// array of array of variants ('aav'), but expects them as an array of structs
// on update ('a(ayuay)' for addresses and 'a(ayuayu)' for routes).
//
// See: https://github.com/Wifx/gonetworkmanager/issues/13 and https://github.com/godbus/dbus/issues/400
func applyUpdateWorkaround(settings gonetworkmanager.ConnectionSettings) {
	if ipv6Settings, ok := settings["ipv6"]; ok {
		delete(ipv6Settings, "addresses")
		delete(ipv6Settings, "routes")
	}
}
