package mock

import (
	"errors"
	"testing"

	"github.com/shazow/wifiwizard/wifi"
)

func newTestManager(t *testing.T) *MockManager {
	t.Helper()
	m, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	mock := m.(*MockManager)
	mock.ActionSleep = 0
	return mock
}

func TestNew(t *testing.T) {
	mock := newTestManager(t)
	if len(mock.Networks) == 0 {
		t.Fatal("New() returned no configured networks")
	}
	if mock.ActiveID != wifi.NoNetworkID {
		t.Errorf("expected ActiveID to be %d, got %d", wifi.NoNetworkID, mock.ActiveID)
	}
	for i, n := range mock.Networks {
		if n.ID != wifi.NetworkID(i) {
			t.Errorf("network %d has id %d", i, n.ID)
		}
	}
}

func TestAddUpdateRemove(t *testing.T) {
	mock := newTestManager(t)
	p, err := wifi.NewProfile(`"net1"`, wifi.AuthWPA, "secret123", false)
	if err != nil {
		t.Fatalf("NewProfile() failed: %v", err)
	}

	id, err := mock.AddNetwork(p)
	if err != nil {
		t.Fatalf("AddNetwork() failed: %v", err)
	}
	networks, _ := mock.ConfiguredNetworks()
	if got := wifi.ResolveNetworkID(networks, `"net1"`); got != id {
		t.Fatalf("expected resolved id %d, got %d", id, got)
	}

	p.ID = id
	p.PreSharedKey = "changed"
	if _, err := mock.UpdateNetwork(p); err != nil {
		t.Fatalf("UpdateNetwork() failed: %v", err)
	}
	if got := mock.Networks[mock.index(id)].PreSharedKey; got != "changed" {
		t.Errorf("expected updated key, got %q", got)
	}

	if err := mock.RemoveNetwork(id); err != nil {
		t.Fatalf("RemoveNetwork() failed: %v", err)
	}
	if err := mock.RemoveNetwork(id); !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound removing twice, got %v", err)
	}

	p.ID = 999
	if _, err := mock.UpdateNetwork(p); !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating unknown id, got %v", err)
	}
}

func TestAddRawSSID(t *testing.T) {
	mock := newTestManager(t)
	before := len(mock.Networks)

	p, _ := wifi.NewProfile("net1", wifi.AuthWPA, "secret123", false)
	if _, err := mock.AddNetwork(p); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	p.ID = 0
	if _, err := mock.UpdateNetwork(p); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if len(mock.Networks) != before {
		t.Errorf("expected %d networks, got %d", before, len(mock.Networks))
	}
}

func TestEnableDisable(t *testing.T) {
	mock := newTestManager(t)

	if err := mock.EnableNetwork(2, true); err != nil {
		t.Fatalf("EnableNetwork() failed: %v", err)
	}
	if mock.ActiveID != 2 {
		t.Fatalf("expected network 2 active, got %d", mock.ActiveID)
	}

	info, err := mock.ConnectionInfo()
	if err != nil {
		t.Fatalf("ConnectionInfo() failed: %v", err)
	}
	if info.SSID != `"Password is password"` {
		t.Errorf("unexpected SSID %q", info.SSID)
	}
	if info.BSSID != "10:20:30:40:50:61" {
		t.Errorf("unexpected BSSID %q", info.BSSID)
	}

	if err := mock.DisableNetwork(2); err != nil {
		t.Fatalf("DisableNetwork() failed: %v", err)
	}
	if mock.ActiveID != wifi.NoNetworkID {
		t.Errorf("expected no active network, got %d", mock.ActiveID)
	}
	info, _ = mock.ConnectionInfo()
	if info.SSID != "" || info.RSSI != wifi.InvalidRSSI {
		t.Errorf("expected empty connection info, got %+v", info)
	}

	if err := mock.EnableNetwork(42, false); !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWireless(t *testing.T) {
	mock := newTestManager(t)
	if err := mock.EnableNetwork(0, true); err != nil {
		t.Fatalf("EnableNetwork() failed: %v", err)
	}
	if err := mock.SetWifiEnabled(false); err != nil {
		t.Fatalf("SetWifiEnabled() failed: %v", err)
	}
	enabled, _ := mock.IsWifiEnabled()
	if enabled {
		t.Error("expected wireless to be disabled")
	}
	if mock.ActiveID != wifi.NoNetworkID {
		t.Error("expected disabling the radio to drop the active network")
	}
	if err := mock.StartScan(); !errors.Is(err, wifi.ErrWirelessDisabled) {
		t.Errorf("expected ErrWirelessDisabled, got %v", err)
	}

	mock.SetWirelessError = errors.New("rfkill")
	if err := mock.SetWifiEnabled(true); err == nil {
		t.Error("expected SetWifiEnabled() to fail")
	}
}

func TestCallsAreRecorded(t *testing.T) {
	mock := newTestManager(t)
	_ = mock.DisableNetwork(1)
	_ = mock.EnableNetwork(1, true)
	_ = mock.SaveConfiguration()

	want := []string{"DisableNetwork(1)", "EnableNetwork(1, true)", "SaveConfiguration()"}
	if len(mock.Calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), mock.Calls)
	}
	for i := range want {
		if mock.Calls[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, mock.Calls[i], want[i])
		}
	}
}
