package iwd

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifiwizard/wifi"
)

// IWD constants
const (
	iwdDest              = "net.connman.iwd"
	iwdPath              = "/"
	iwdDeviceIface       = "net.connman.iwd.Device"
	iwdNetworkIface      = "net.connman.iwd.Network"
	iwdStationIface      = "net.connman.iwd.Station"
	iwdKnownNetworkIface = "net.connman.iwd.KnownNetwork"
	iwdBSSIface          = "net.connman.iwd.BasicServiceSet"

	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
	propertiesIface    = "org.freedesktop.DBus.Properties"
)

// objects is the reply of ObjectManager.GetManagedObjects.
type objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

type knownNetwork struct {
	path        dbus.ObjectPath
	name        string
	kind        string // psk, open or 8021x
	hidden      bool
	autoConnect bool
}

func (k knownNetwork) profile() wifi.Profile {
	p := wifi.Profile{
		SSID:    wifi.QuoteSSID(k.name),
		Auth:    authFromKind(k.kind),
		Hidden:  k.hidden,
		KeyMgmt: wifi.KeyMgmtNone,
	}
	switch p.Auth {
	case wifi.AuthWPA:
		p.KeyMgmt = wifi.KeyMgmtWPAPSK
	case wifi.AuthEAP:
		p.KeyMgmt = wifi.KeyMgmtWPAEAP
	}
	return p
}

type network struct {
	path  dbus.ObjectPath
	name  string
	kind  string
	known dbus.ObjectPath
	bss   []dbus.ObjectPath
}

// orderedNetwork is one entry of Station.GetOrderedNetworks.
type orderedNetwork struct {
	Path   dbus.ObjectPath
	Signal int16 // 100 * dBm
}

func (o orderedNetwork) rssi() int {
	return int(o.Signal) / 100
}

// snapshot is the state of the first station-mode device and the networks
// iwd knows about.
type snapshot struct {
	device dbus.ObjectPath
	// station is empty while the device is powered off; iwd only exports
	// the Station interface on a powered device.
	station      dbus.ObjectPath
	powered      bool
	connected    dbus.ObjectPath
	connectedBSS dbus.ObjectPath

	known      []knownNetwork
	networks   map[dbus.ObjectPath]network
	bssAddress map[dbus.ObjectPath]string
}

func parseObjects(objs objects) *snapshot {
	s := &snapshot{
		networks:   make(map[dbus.ObjectPath]network),
		bssAddress: make(map[dbus.ObjectPath]string),
	}

	// Map iteration is random; pick the lowest device path for stable results.
	var devices []dbus.ObjectPath
	for path, ifaces := range objs {
		if props, ok := ifaces[iwdKnownNetworkIface]; ok {
			s.known = append(s.known, knownNetwork{
				path:        path,
				name:        str(props, "Name"),
				kind:        str(props, "Type"),
				hidden:      boolean(props, "Hidden"),
				autoConnect: boolean(props, "AutoConnect"),
			})
		}
		if props, ok := ifaces[iwdNetworkIface]; ok {
			s.networks[path] = network{
				path:  path,
				name:  str(props, "Name"),
				kind:  str(props, "Type"),
				known: objectPath(props, "KnownNetwork"),
				bss:   objectPaths(props, "ExtendedServiceSet"),
			}
		}
		if props, ok := ifaces[iwdBSSIface]; ok {
			s.bssAddress[path] = str(props, "Address")
		}
		if props, ok := ifaces[iwdDeviceIface]; ok && isStationDevice(props, ifaces) {
			devices = append(devices, path)
		}
	}

	sort.Slice(s.known, func(i, j int) bool { return s.known[i].path < s.known[j].path })
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })

	if len(devices) > 0 {
		s.device = devices[0]
		ifaces := objs[s.device]
		s.powered = boolean(ifaces[iwdDeviceIface], "Powered")
		if station, ok := ifaces[iwdStationIface]; ok {
			s.station = s.device
			if str(station, "State") == "connected" {
				s.connected = objectPath(station, "ConnectedNetwork")
				s.connectedBSS = objectPath(station, "ConnectedAccessPoint")
			}
		}
	}
	return s
}

// isStationDevice matches devices in station mode. Older iwd releases do
// not report Mode, so a Station interface counts too.
func isStationDevice(device map[string]dbus.Variant, ifaces map[string]map[string]dbus.Variant) bool {
	if mode := str(device, "Mode"); mode != "" {
		return mode == "station"
	}
	_, ok := ifaces[iwdStationIface]
	return ok
}

// networkFor returns the visible network backed by a known network.
func (s *snapshot) networkFor(known dbus.ObjectPath) (network, bool) {
	for _, n := range s.networks {
		if n.known == known {
			return n, true
		}
	}
	return network{}, false
}

// scanResults emits one result per BSS of each ordered network, or a single
// result without a BSSID when iwd does not expose BSS objects.
func (s *snapshot) scanResults(ordered []orderedNetwork) []wifi.ScanResult {
	var results []wifi.ScanResult
	for _, o := range ordered {
		n, ok := s.networks[o.Path]
		if !ok {
			continue
		}
		if len(n.bss) == 0 {
			results = append(results, wifi.ScanResult{SSID: n.name, Level: o.rssi()})
			continue
		}
		for _, b := range n.bss {
			results = append(results, wifi.ScanResult{
				SSID:  n.name,
				BSSID: s.bssAddress[b],
				Level: o.rssi(),
			})
		}
	}
	return results
}

// poweredChanged reports whether a PropertiesChanged signal sets the
// device power to enabled.
func poweredChanged(signal *dbus.Signal, enabled bool) bool {
	if signal.Name != propertiesIface+".PropertiesChanged" || len(signal.Body) < 2 {
		return false
	}
	iface, ok := signal.Body[0].(string)
	if !ok || iface != iwdDeviceIface {
		return false
	}
	props, ok := signal.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false
	}
	val, ok := props["Powered"]
	if !ok {
		return false
	}
	powered, ok := val.Value().(bool)
	return ok && powered == enabled
}

func str(props map[string]dbus.Variant, key string) string {
	v, _ := props[key].Value().(string)
	return v
}

func boolean(props map[string]dbus.Variant, key string) bool {
	v, _ := props[key].Value().(bool)
	return v
}

func objectPath(props map[string]dbus.Variant, key string) dbus.ObjectPath {
	v, _ := props[key].Value().(dbus.ObjectPath)
	return v
}

func objectPaths(props map[string]dbus.Variant, key string) []dbus.ObjectPath {
	v, _ := props[key].Value().([]dbus.ObjectPath)
	return v
}

func authFromKind(kind string) wifi.AuthType {
	switch kind {
	case "psk":
		return wifi.AuthWPA
	case "8021x":
		return wifi.AuthEAP
	default:
		return wifi.AuthNone
	}
}

// provisioningFileName follows iwd's naming: the SSID itself when it only
// holds alphanumerics, spaces, underscores and dashes, otherwise "=" and the
// hex encoded SSID.
func provisioningFileName(ssid, kind string) string {
	plain := ssid != ""
	for _, r := range ssid {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == ' ' || r == '_' || r == '-') {
			plain = false
			break
		}
	}
	if plain {
		return ssid + "." + kind
	}
	return "=" + hex.EncodeToString([]byte(ssid)) + "." + kind
}

// provisioningFile renders the file iwd loads as a known network.
func provisioningFile(ssid string, p wifi.Profile) (name string, contents string, err error) {
	var b strings.Builder
	var kind string
	switch p.Auth {
	case wifi.AuthWPA:
		if strings.ContainsAny(p.PreSharedKey, "\r\n") {
			return "", "", fmt.Errorf("passphrase contains a line break: %w", wifi.ErrNotSupported)
		}
		kind = "psk"
		fmt.Fprintf(&b, "[Security]\nPassphrase=%s\n", p.PreSharedKey)
	case wifi.AuthNone:
		kind = "open"
	default:
		// iwd dropped WEP, and 802.1x needs settings we do not carry.
		return "", "", fmt.Errorf("auth type %s on iwd: %w", p.Auth, wifi.ErrNotSupported)
	}
	if p.Hidden {
		b.WriteString("[Settings]\nHidden=true\n")
	}
	return provisioningFileName(ssid, kind), b.String(), nil
}
