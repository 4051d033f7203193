package iwd

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifiwizard/wifi"
)

func v(value any) dbus.Variant { return dbus.MakeVariant(value) }

func testObjects() objects {
	return objects{
		"/net/connman/iwd/0/4": {
			iwdDeviceIface: {"Powered": v(true), "Name": v("wlan0")},
			iwdStationIface: {
				"State":                v("connected"),
				"ConnectedNetwork":     v(dbus.ObjectPath("/net/connman/iwd/0/4/486f6d65_psk")),
				"ConnectedAccessPoint": v(dbus.ObjectPath("/net/connman/iwd/0/4/486f6d65_psk/aabbccddeeff")),
			},
		},
		"/net/connman/iwd/0/4/486f6d65_psk": {
			iwdNetworkIface: {
				"Name":               v("Home"),
				"Type":               v("psk"),
				"KnownNetwork":       v(dbus.ObjectPath("/net/connman/iwd/486f6d65_psk")),
				"ExtendedServiceSet": v([]dbus.ObjectPath{"/net/connman/iwd/0/4/486f6d65_psk/aabbccddeeff"}),
			},
		},
		"/net/connman/iwd/0/4/486f6d65_psk/aabbccddeeff": {
			iwdBSSIface: {"Address": v("aa:bb:cc:dd:ee:ff")},
		},
		"/net/connman/iwd/0/4/43616665_open": {
			iwdNetworkIface: {"Name": v("Cafe"), "Type": v("open")},
		},
		"/net/connman/iwd/486f6d65_psk": {
			iwdKnownNetworkIface: {"Name": v("Home"), "Type": v("psk"), "AutoConnect": v(true)},
		},
		"/net/connman/iwd/4869646465_psk": {
			iwdKnownNetworkIface: {"Name": v("Hidden"), "Type": v("psk"), "Hidden": v(true)},
		},
	}
}

func TestParseObjects(t *testing.T) {
	s := parseObjects(testObjects())

	if s.device != "/net/connman/iwd/0/4" || s.station != s.device || !s.powered {
		t.Errorf("unexpected device %q station %q powered=%v", s.device, s.station, s.powered)
	}
	if s.connected != "/net/connman/iwd/0/4/486f6d65_psk" {
		t.Errorf("unexpected connected network %q", s.connected)
	}
	if got := s.bssAddress[s.connectedBSS]; got != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("unexpected connected BSSID %q", got)
	}

	if len(s.known) != 2 {
		t.Fatalf("expected 2 known networks, got %d", len(s.known))
	}
	// Sorted by object path.
	if s.known[0].name != "Hidden" || !s.known[0].hidden || s.known[1].name != "Home" || !s.known[1].autoConnect {
		t.Errorf("unexpected known networks %+v", s.known)
	}

	n, ok := s.networkFor("/net/connman/iwd/486f6d65_psk")
	if !ok || n.name != "Home" {
		t.Errorf("networkFor(Home) = %+v, %v", n, ok)
	}
	if _, ok := s.networkFor("/net/connman/iwd/4869646465_psk"); ok {
		t.Errorf("hidden network should not be visible")
	}
}

func TestParseObjects_PoweredOff(t *testing.T) {
	s := parseObjects(objects{
		"/net/connman/iwd/0/4": {
			iwdDeviceIface: {"Powered": v(false), "Mode": v("station")},
		},
		"/net/connman/iwd/0/5": {
			iwdDeviceIface: {"Powered": v(true), "Mode": v("ap")},
		},
	})
	if s.device != "/net/connman/iwd/0/4" {
		t.Errorf("expected the station-mode device, got %q", s.device)
	}
	if s.powered || s.station != "" || s.connected != "" {
		t.Errorf("unexpected powered-off snapshot %+v", s)
	}
}

func TestParseObjects_NoStation(t *testing.T) {
	s := parseObjects(objects{})
	if s.device != "" || s.station != "" || s.powered || len(s.known) != 0 {
		t.Errorf("expected an empty snapshot, got %+v", s)
	}
}

func TestKnownNetworkProfile(t *testing.T) {
	p := knownNetwork{name: "Home", kind: "psk", hidden: true}.profile()
	if p.SSID != `"Home"` || p.Auth != wifi.AuthWPA || !p.Hidden || !p.KeyMgmt.Has(wifi.KeyMgmtWPAPSK) {
		t.Errorf("unexpected profile %+v", p)
	}
	if p := (knownNetwork{name: "Corp", kind: "8021x"}).profile(); p.Auth != wifi.AuthEAP {
		t.Errorf("8021x should map to EAP, got %v", p.Auth)
	}
	if p := (knownNetwork{name: "Cafe", kind: "open"}).profile(); p.Auth != wifi.AuthNone {
		t.Errorf("open should map to None, got %v", p.Auth)
	}
}

func TestScanResults(t *testing.T) {
	s := parseObjects(testObjects())
	results := s.scanResults([]orderedNetwork{
		{Path: "/net/connman/iwd/0/4/486f6d65_psk", Signal: -5500},
		{Path: "/net/connman/iwd/0/4/43616665_open", Signal: -7820},
		{Path: "/net/connman/iwd/0/4/gone", Signal: -4000},
	})

	want := []wifi.ScanResult{
		{SSID: "Home", BSSID: "aa:bb:cc:dd:ee:ff", Level: -55},
		{SSID: "Cafe", Level: -78},
	}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %+v", len(want), results)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result %d: got %+v, want %+v", i, results[i], want[i])
		}
	}
}

func TestProvisioningFile(t *testing.T) {
	wpa, _ := wifi.NewProfile(`"Home"`, wifi.AuthWPA, "hunter22", true)
	name, contents, err := provisioningFile("Home", wpa)
	if err != nil {
		t.Fatalf("provisioningFile() failed: %v", err)
	}
	if name != "Home.psk" {
		t.Errorf("name = %q, want Home.psk", name)
	}
	if contents != "[Security]\nPassphrase=hunter22\n[Settings]\nHidden=true\n" {
		t.Errorf("unexpected contents %q", contents)
	}

	open, _ := wifi.NewProfile(`"Café!"`, wifi.AuthNone, "", false)
	name, contents, err = provisioningFile("Café!", open)
	if err != nil {
		t.Fatalf("provisioningFile() failed: %v", err)
	}
	if name != "=436166c3a921.open" || contents != "" {
		t.Errorf("unexpected open file %q %q", name, contents)
	}

	wep, _ := wifi.NewProfile(`"Old"`, wifi.AuthWEP, "abcde", false)
	if _, _, err := provisioningFile("Old", wep); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for WEP, got %v", err)
	}

	bad, _ := wifi.NewProfile(`"x"`, wifi.AuthWPA, "a\nb", false)
	if _, _, err := provisioningFile("x", bad); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for a multi-line passphrase, got %v", err)
	}
}

func TestPoweredChanged(t *testing.T) {
	signal := &dbus.Signal{
		Name: propertiesIface + ".PropertiesChanged",
		Body: []any{iwdDeviceIface, map[string]dbus.Variant{"Powered": v(false)}, []string{}},
	}
	if !poweredChanged(signal, false) {
		t.Errorf("expected a power-off change")
	}
	if poweredChanged(signal, true) {
		t.Errorf("power-off should not match enabled")
	}
	signal.Body[0] = iwdStationIface
	if poweredChanged(signal, false) {
		t.Errorf("station properties should not match")
	}
}
