package wizard

// Result is the single terminal outcome of a command.
type Result struct {
	// OK selects the success channel. Payload is only meaningful when OK,
	// Message only when not.
	OK      bool
	Payload any
	Message string
	// Handled is the boolean the host API expects back from execute.
	Handled bool
}

func success(payload any) Result {
	return Result{OK: true, Payload: payload, Handled: true}
}

func failure(message string) Result {
	return Result{Message: message}
}

// Callback receives the outcome of a command from Execute.
type Callback interface {
	Success(payload any)
	Error(message string)
}

// ScanRecord is one entry of the getScanResults payload.
type ScanRecord struct {
	Level int    `json:"level" jsonschema:"description=Raw RSSI in dBm or bucketed signal level when numLevels is set"`
	SSID  string `json:"SSID" jsonschema:"description=Network name"`
	BSSID string `json:"BSSID" jsonschema:"description=Access point hardware address"`
}

// ScanOptions is the optional first argument of getScanResults.
type ScanOptions struct {
	NumLevels any `json:"numLevels,omitempty" jsonschema:"oneof_type=integer;boolean,description=Bucket signal levels into n levels; true selects 5"`
}
