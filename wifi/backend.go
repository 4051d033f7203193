package wifi

// NetworkID is the OS-assigned handle of a configured network profile.
type NetworkID int

// NoNetworkID means the profile has not been created by the OS yet.
const NoNetworkID NetworkID = -1

// InvalidRSSI is reported when no signal reading is available.
const InvalidRSSI = -127

// ScanResult is a single access point from the last scan.
type ScanResult struct {
	SSID      string
	BSSID     string
	Level     int  // RSSI in dBm
	Frequency uint // MHz
}

// ConnectionInfo describes the current association.
// SSID follows the quoted convention used by Profile.SSID.
type ConnectionInfo struct {
	SSID  string
	BSSID string
	RSSI  int
}

// Manager is the OS Wi-Fi capability that commands are dispatched to.
//
// Implementations own all state: the configured network list, radio power
// and the current connection. Callers hold nothing between calls.
type Manager interface {
	// ConfiguredNetworks returns every configured profile in OS enumeration order.
	ConfiguredNetworks() ([]Profile, error)
	// AddNetwork creates a new profile and returns its id.
	AddNetwork(p Profile) (NetworkID, error)
	// UpdateNetwork replaces the profile identified by p.ID and returns its id.
	UpdateNetwork(p Profile) (NetworkID, error)
	// RemoveNetwork deletes a configured profile.
	RemoveNetwork(id NetworkID) error
	// EnableNetwork allows a profile to be used. If disableOthers is set the
	// OS should connect to it and treat it as the sole active network.
	EnableNetwork(id NetworkID, disableOthers bool) error
	// DisableNetwork stops a profile from being used and drops it if active.
	DisableNetwork(id NetworkID) error
	// SaveConfiguration persists the configured profiles.
	SaveConfiguration() error

	// IsWifiEnabled checks if the wireless radio is enabled.
	IsWifiEnabled() (bool, error)
	// SetWifiEnabled enables or disables the wireless radio.
	SetWifiEnabled(enabled bool) error

	// Disconnect drops the current association without touching profiles.
	Disconnect() error
	// StartScan requests a scan. Results are read with ScanResults.
	StartScan() error
	// ScanResults returns the results of the last scan in scan order.
	ScanResults() ([]ScanResult, error)
	// ConnectionInfo returns the current association.
	ConnectionInfo() (*ConnectionInfo, error)
	// CalculateSignalLevel buckets a raw RSSI into numLevels levels.
	CalculateSignalLevel(rssi int, numLevels int) int
}
