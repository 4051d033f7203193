//go:build linux

package iwd

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifiwizard/wifi"
)

// newTestManager returns a Manager without a bus connection. Any D-Bus call
// panics on the nil conn, so tests only reach code paths that stay local.
func newTestManager(t *testing.T, objs objects) *Manager {
	t.Helper()
	return &Manager{
		StateDir:    t.TempDir(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		listObjects: func() (objects, error) { return objs, nil },
		ids:         make(map[dbus.ObjectPath]wifi.NetworkID),
		paths:       make(map[wifi.NetworkID]dbus.ObjectPath),
	}
}

func poweredOff() objects {
	return objects{
		"/net/connman/iwd/0/4": {
			iwdDeviceIface: {"Powered": v(false), "Mode": v("station")},
		},
	}
}

func TestRadioStatePoweredOff(t *testing.T) {
	m := newTestManager(t, poweredOff())

	enabled, err := m.IsWifiEnabled()
	if err != nil || enabled {
		t.Errorf("IsWifiEnabled() = %v, %v, want false, nil", enabled, err)
	}
	if err := m.SetWifiEnabled(false); err != nil {
		t.Errorf("SetWifiEnabled(false) on a powered-off device should be a no-op, got %v", err)
	}
	if err := m.StartScan(); !errors.Is(err, wifi.ErrWirelessDisabled) {
		t.Errorf("StartScan() = %v, want ErrWirelessDisabled", err)
	}
	info, err := m.ConnectionInfo()
	if err != nil || info.RSSI != wifi.InvalidRSSI || info.SSID != "" {
		t.Errorf("ConnectionInfo() = %+v, %v", info, err)
	}
}

func TestSetWifiEnabledNoChange(t *testing.T) {
	m := newTestManager(t, testObjects())
	if err := m.SetWifiEnabled(true); err != nil {
		t.Errorf("SetWifiEnabled(true) on a powered device should be a no-op, got %v", err)
	}
}

func TestProvisionRejectsRawSSID(t *testing.T) {
	m := newTestManager(t, testObjects())

	raw, _ := wifi.NewProfile("Home", wifi.AuthWPA, "secret", false)
	if _, err := m.AddNetwork(raw); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("AddNetwork(raw SSID) = %v, want ErrNotSupported", err)
	}
	entries, _ := os.ReadDir(m.StateDir)
	if len(entries) != 0 {
		t.Errorf("no file should be provisioned, found %d", len(entries))
	}

	quoted, _ := wifi.NewProfile(`"Home"`, wifi.AuthWPA, "secret", false)
	name, kind, err := m.provision(quoted)
	if err != nil {
		t.Fatalf("provision() failed: %v", err)
	}
	if name != "Home" || kind != "psk" {
		t.Errorf("provision() = %q, %q", name, kind)
	}
	if _, err := os.Stat(filepath.Join(m.StateDir, "Home.psk")); err != nil {
		t.Errorf("expected Home.psk to be written: %v", err)
	}
}
