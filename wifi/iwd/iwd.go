//go:build linux

// Package iwd implements wifi.Manager for iwd over D-Bus.
//
// iwd has no call that creates a known network. Profiles are provisioned as
// files in StateDir, which iwd watches, and the resulting KnownNetwork
// object is picked up from the bus.
package iwd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifiwizard/wifi"
)

const propertyChangeTimeout = 5 * time.Second

// DefaultStateDir is where iwd reads provisioned network files.
const DefaultStateDir = "/var/lib/iwd"

// Manager implements wifi.Manager using iwd.
type Manager struct {
	StateDir string

	conn   *dbus.Conn
	logger *slog.Logger
	// listObjects returns iwd's managed objects.
	listObjects func() (objects, error)

	mu     sync.Mutex
	ids    map[dbus.ObjectPath]wifi.NetworkID
	paths  map[wifi.NetworkID]dbus.ObjectPath
	nextID wifi.NetworkID
}

// New connects to iwd on the system bus.
func New(logger *slog.Logger) (wifi.Manager, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", wifi.ErrNotAvailable)
	}

	m := &Manager{
		StateDir: DefaultStateDir,
		conn:     conn,
		logger:   logger.With("backend", "iwd"),
		ids:      make(map[dbus.ObjectPath]wifi.NetworkID),
		paths:    make(map[wifi.NetworkID]dbus.ObjectPath),
	}
	m.listObjects = m.managedObjects
	// Listing objects doubles as an availability check.
	if _, err := m.snapshot(); err != nil {
		return nil, fmt.Errorf("iwd is not available: %w", wifi.ErrNotAvailable)
	}
	return m, nil
}

func (m *Manager) managedObjects() (objects, error) {
	var objs objects
	err := m.conn.Object(iwdDest, iwdPath).Call(objectManagerIface+".GetManagedObjects", 0).Store(&objs)
	return objs, err
}

func (m *Manager) snapshot() (*snapshot, error) {
	objs, err := m.listObjects()
	if err != nil {
		return nil, fmt.Errorf("failed to list iwd objects: %w", err)
	}
	return parseObjects(objs), nil
}

func (m *Manager) device() (*snapshot, error) {
	s, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	if s.device == "" {
		return nil, fmt.Errorf("no station device found: %w", wifi.ErrNotFound)
	}
	return s, nil
}

// station is like device but also requires the Station interface, which is
// gone while the radio is off.
func (m *Manager) station() (*snapshot, error) {
	s, err := m.device()
	if err != nil {
		return nil, err
	}
	if s.station == "" {
		return nil, wifi.ErrWirelessDisabled
	}
	return s, nil
}

func (m *Manager) register(path dbus.ObjectPath) wifi.NetworkID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[path]
	if !ok {
		id = m.nextID
		m.nextID++
		m.ids[path] = id
		m.paths[id] = path
	}
	return id
}

func (m *Manager) forget(id wifi.NetworkID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, m.paths[id])
	delete(m.paths, id)
}

// known returns the known network for an id from a fresh snapshot.
func (m *Manager) known(id wifi.NetworkID) (*snapshot, knownNetwork, error) {
	s, err := m.snapshot()
	if err != nil {
		return nil, knownNetwork{}, err
	}
	for _, k := range s.known {
		m.register(k.path)
	}
	m.mu.Lock()
	path, ok := m.paths[id]
	m.mu.Unlock()
	if ok {
		for _, k := range s.known {
			if k.path == path {
				return s, k, nil
			}
		}
	}
	return nil, knownNetwork{}, fmt.Errorf("network %d: %w", id, wifi.ErrNotFound)
}

func (m *Manager) ConfiguredNetworks() ([]wifi.Profile, error) {
	s, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	profiles := make([]wifi.Profile, 0, len(s.known))
	for _, k := range s.known {
		p := k.profile()
		p.ID = m.register(k.path)
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// AddNetwork provisions a network file and waits for iwd to load it.
func (m *Manager) AddNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	name, kind, err := m.provision(p)
	if err != nil {
		return wifi.NoNetworkID, err
	}
	path, err := m.waitForKnown(name, kind)
	if err != nil {
		return wifi.NoNetworkID, err
	}
	return m.register(path), nil
}

// UpdateNetwork rewrites the network file. Changing the security type
// replaces the known network, which gives it a new id.
func (m *Manager) UpdateNetwork(p wifi.Profile) (wifi.NetworkID, error) {
	_, k, err := m.known(p.ID)
	if err != nil {
		return wifi.NoNetworkID, err
	}
	name, kind, err := m.provision(p)
	if err != nil {
		return wifi.NoNetworkID, err
	}
	if kind == k.kind {
		return p.ID, nil
	}
	if err := m.RemoveNetwork(p.ID); err != nil {
		return wifi.NoNetworkID, err
	}
	path, err := m.waitForKnown(name, kind)
	if err != nil {
		return wifi.NoNetworkID, err
	}
	return m.register(path), nil
}

func (m *Manager) provision(p wifi.Profile) (name string, kind string, err error) {
	if err := wifi.CheckQuotedSSID(p.SSID); err != nil {
		return "", "", err
	}
	name = wifi.UnquoteSSID(p.SSID)
	file, contents, err := provisioningFile(name, p)
	if err != nil {
		return "", "", err
	}
	path := filepath.Join(m.StateDir, file)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return "", "", fmt.Errorf("failed to provision network: %w", err)
	}
	m.logger.Debug("provisioned network", "file", path)
	return name, filepath.Ext(file)[1:], nil
}

func (m *Manager) waitForKnown(name, kind string) (dbus.ObjectPath, error) {
	timeout := time.After(propertyChangeTimeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		s, err := m.snapshot()
		if err != nil {
			return "", err
		}
		for _, k := range s.known {
			if k.name == name && k.kind == kind {
				return k.path, nil
			}
		}
		select {
		case <-timeout:
			return "", fmt.Errorf("timed out waiting for iwd to load %s: %w", name, wifi.ErrOperationFailed)
		case <-ticker.C:
		}
	}
}

func (m *Manager) RemoveNetwork(id wifi.NetworkID) error {
	_, k, err := m.known(id)
	if err != nil {
		return err
	}
	if err := m.conn.Object(iwdDest, k.path).Call(iwdKnownNetworkIface+".Forget", 0).Err; err != nil {
		return err
	}
	m.forget(id)
	return nil
}

func (m *Manager) setProperty(path dbus.ObjectPath, iface, name string, value any) error {
	return m.conn.Object(iwdDest, path).Call(propertiesIface+".Set", 0, iface, name, dbus.MakeVariant(value)).Err
}

// EnableNetwork turns on auto-connect. With disableOthers it also connects
// the station to the network.
func (m *Manager) EnableNetwork(id wifi.NetworkID, disableOthers bool) error {
	s, k, err := m.known(id)
	if err != nil {
		return err
	}
	if err := m.setProperty(k.path, iwdKnownNetworkIface, "AutoConnect", true); err != nil {
		return err
	}
	if !disableOthers {
		return nil
	}
	if s.station == "" {
		return wifi.ErrWirelessDisabled
	}

	if n, ok := s.networkFor(k.path); ok {
		return m.conn.Object(iwdDest, n.path).Call(iwdNetworkIface+".Connect", 0).Err
	}
	if k.hidden {
		return m.conn.Object(iwdDest, s.station).Call(iwdStationIface+".ConnectHiddenNetwork", 0, k.name).Err
	}
	return fmt.Errorf("network %s is not in range: %w", k.name, wifi.ErrNotFound)
}

// DisableNetwork turns off auto-connect and disconnects if the network is
// the current one.
func (m *Manager) DisableNetwork(id wifi.NetworkID) error {
	s, k, err := m.known(id)
	if err != nil {
		return err
	}
	if err := m.setProperty(k.path, iwdKnownNetworkIface, "AutoConnect", false); err != nil {
		return err
	}
	if n, ok := s.networks[s.connected]; ok && n.known == k.path {
		return m.conn.Object(iwdDest, s.station).Call(iwdStationIface+".Disconnect", 0).Err
	}
	return nil
}

// SaveConfiguration is a no-op; iwd persists known networks itself.
func (m *Manager) SaveConfiguration() error {
	return nil
}

func (m *Manager) IsWifiEnabled() (bool, error) {
	s, err := m.device()
	if err != nil {
		return false, err
	}
	return s.powered, nil
}

// SetWifiEnabled powers the station device and waits for iwd to report the
// new state.
func (m *Manager) SetWifiEnabled(enabled bool) error {
	s, err := m.device()
	if err != nil {
		return err
	}
	// iwd sends no PropertiesChanged for a no-op set.
	if s.powered == enabled {
		return nil
	}

	signals := make(chan *dbus.Signal, 10)
	matchPath := dbus.WithMatchObjectPath(s.device)
	matchInterface := dbus.WithMatchInterface(propertiesIface)
	m.conn.Signal(signals)
	defer m.conn.RemoveSignal(signals)
	if err := m.conn.AddMatchSignal(matchInterface, matchPath); err != nil {
		return err
	}
	defer m.conn.RemoveMatchSignal(matchInterface, matchPath)

	if err := m.setProperty(s.device, iwdDeviceIface, "Powered", enabled); err != nil {
		return err
	}

	timeout := time.After(propertyChangeTimeout)
	for {
		select {
		case signal := <-signals:
			if poweredChanged(signal, enabled) {
				return nil
			}
		case <-timeout:
			return fmt.Errorf("timed out waiting for wireless state change: %w", wifi.ErrOperationFailed)
		}
	}
}

func (m *Manager) Disconnect() error {
	s, err := m.station()
	if err != nil {
		return err
	}
	return m.conn.Object(iwdDest, s.station).Call(iwdStationIface+".Disconnect", 0).Err
}

func (m *Manager) StartScan() error {
	s, err := m.station()
	if err != nil {
		return err
	}
	err = m.conn.Object(iwdDest, s.station).Call(iwdStationIface+".Scan", 0).Err
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == "net.connman.iwd.Busy" {
		// A scan is already running; its results are what the caller wants.
		return nil
	}
	return err
}

func (m *Manager) orderedNetworks(station dbus.ObjectPath) ([]orderedNetwork, error) {
	var ordered []orderedNetwork
	err := m.conn.Object(iwdDest, station).Call(iwdStationIface+".GetOrderedNetworks", 0).Store(&ordered)
	return ordered, err
}

func (m *Manager) ScanResults() ([]wifi.ScanResult, error) {
	s, err := m.station()
	if err != nil {
		return nil, err
	}
	ordered, err := m.orderedNetworks(s.station)
	if err != nil {
		return nil, err
	}
	return s.scanResults(ordered), nil
}

func (m *Manager) ConnectionInfo() (*wifi.ConnectionInfo, error) {
	s, err := m.device()
	if err != nil {
		return nil, err
	}
	info := &wifi.ConnectionInfo{RSSI: wifi.InvalidRSSI}
	n, ok := s.networks[s.connected]
	if !ok || s.station == "" {
		return info, nil
	}
	info.SSID = wifi.QuoteSSID(n.name)
	info.BSSID = s.bssAddress[s.connectedBSS]

	ordered, err := m.orderedNetworks(s.station)
	if err != nil {
		m.logger.Debug("no signal reading", "error", err)
		return info, nil
	}
	for _, o := range ordered {
		if o.Path == n.path {
			info.RSSI = o.rssi()
			break
		}
	}
	return info, nil
}

func (m *Manager) CalculateSignalLevel(rssi int, numLevels int) int {
	return wifi.CalculateSignalLevel(rssi, numLevels)
}
