package wizard

import (
	"context"
	"errors"
	"strconv"

	"github.com/shazow/wifiwizard/wifi"
)

// legacyNumLevels is used for {numLevels: true}.
const legacyNumLevels = 5

func invalidData(action Action) Result {
	return failure("WifiWizard: " + string(action) + " invalid data")
}

// validateArgs checks that a first argument is present.
func validateArgs(args Args) bool {
	return args.Len() > 0 && !args.IsNull(0)
}

func authNotSupported(tag string) Result {
	return failure("Wifi Authentication Type Not Supported: " + tag)
}

// addNetwork adds a network profile, or updates it if one with the same SSID
// already exists, then enables it.
//
// Args: [0] SSID, [1] auth type tag, [2] credential, [3] optional hidden flag.
func (w *Wizard) addNetwork(ctx context.Context, args Args) Result {
	ssid, err := args.String(0)
	if err != nil {
		return failure(err.Error())
	}
	tag, err := args.String(1)
	if err != nil {
		return failure(err.Error())
	}
	credential, err := args.String(2)
	if err != nil {
		return failure(err.Error())
	}
	hidden := false
	if args.Len() > 3 {
		if hidden, err = args.Bool(3); err != nil {
			return failure(err.Error())
		}
	}

	auth, err := wifi.ParseAuthType(tag)
	if err != nil {
		return authNotSupported(tag)
	}
	profile, err := wifi.NewProfile(ssid, auth, credential, hidden)
	if errors.Is(err, wifi.ErrNotSupported) {
		return authNotSupported(tag)
	} else if err != nil {
		return failure(err.Error())
	}

	profile.ID, err = w.resolve(ssid)
	if err != nil {
		return failure(err.Error())
	}

	var id wifi.NetworkID
	if profile.ID == wifi.NoNetworkID {
		id, err = w.wifi.AddNetwork(profile)
		w.logger.DebugContext(ctx, "add network returned", "ssid", ssid, "id", id, "error", err)
	} else {
		id, err = w.wifi.UpdateNetwork(profile)
		w.logger.DebugContext(ctx, "update network returned", "ssid", ssid, "id", id, "error", err)
	}
	if err != nil || id < 0 {
		return failure(ssid + " was not added.")
	}

	if err := w.wifi.SaveConfiguration(); err != nil {
		w.logger.WarnContext(ctx, "failed to save configuration", "error", err)
	}
	if err := w.wifi.EnableNetwork(id, true); err != nil {
		w.logger.DebugContext(ctx, "enable network failed", "ssid", ssid, "id", id, "error", err)
		return failure(ssid + " failed to be added.")
	}
	return success(ssid + " successfully added.")
}

// removeNetwork removes the configured profile for an SSID.
func (w *Wizard) removeNetwork(ctx context.Context, args Args) Result {
	if !validateArgs(args) {
		return invalidData(ActionRemoveNetwork)
	}
	ssid, err := args.String(0)
	if err != nil {
		return failure(err.Error())
	}
	id, err := w.resolve(ssid)
	if err != nil {
		return failure(err.Error())
	}
	if id < 0 {
		w.logger.DebugContext(ctx, "network not found, can't remove", "ssid", ssid)
		return failure("Network not found.")
	}

	if err := w.wifi.RemoveNetwork(id); err != nil {
		w.logger.WarnContext(ctx, "remove network failed", "ssid", ssid, "id", id, "error", err)
	}
	if err := w.wifi.SaveConfiguration(); err != nil {
		w.logger.WarnContext(ctx, "failed to save configuration", "error", err)
	}
	return success("Network removed.")
}

// connectNetwork connects to a configured profile.
func (w *Wizard) connectNetwork(ctx context.Context, args Args) Result {
	if !validateArgs(args) {
		return invalidData(ActionConnectNetwork)
	}
	ssid, err := args.String(0)
	if err != nil {
		return failure(err.Error())
	}
	id, err := w.resolve(ssid)
	if err != nil {
		return failure(err.Error())
	}
	if id < 0 {
		return failure("Network " + ssid + " not found!")
	}

	// Disable first: enabling the network that was active before a
	// disconnect does not reconnect on its own.
	if err := w.wifi.DisableNetwork(id); err != nil {
		w.logger.DebugContext(ctx, "disable network failed", "ssid", ssid, "id", id, "error", err)
	}
	if err := w.wifi.EnableNetwork(id, true); err != nil {
		w.logger.WarnContext(ctx, "enable network failed", "ssid", ssid, "id", id, "error", err)
	}
	return success("Network " + ssid + " connected!")
}

// disconnectNetwork disables a configured profile.
func (w *Wizard) disconnectNetwork(ctx context.Context, args Args) Result {
	if !validateArgs(args) {
		return invalidData(ActionDisconnectNetwork)
	}
	ssid, err := args.String(0)
	if err != nil {
		return failure(err.Error())
	}
	id, err := w.resolve(ssid)
	if err != nil {
		return failure(err.Error())
	}
	// Unlike connect, id 0 counts as not found here.
	if id <= 0 {
		return failure("Network " + ssid + " not found!")
	}

	if err := w.wifi.DisableNetwork(id); err != nil {
		w.logger.WarnContext(ctx, "disable network failed", "ssid", ssid, "id", id, "error", err)
	}
	return success("Network " + ssid + " disconnected!")
}

// disconnect drops the current association.
func (w *Wizard) disconnect(ctx context.Context, _ Args) Result {
	if err := w.wifi.Disconnect(); err != nil {
		w.logger.DebugContext(ctx, "disconnect failed", "error", err)
		return failure("Unable to disconnect from the current network")
	}
	return success("Disconnected from current network")
}

// listNetworks reports the SSIDs of all configured profiles.
func (w *Wizard) listNetworks(_ context.Context, _ Args) Result {
	networks, err := w.wifi.ConfiguredNetworks()
	if err != nil {
		return failure(err.Error())
	}
	ssids := make([]string, 0, len(networks))
	for _, n := range networks {
		ssids = append(ssids, n.SSID)
	}
	return success(ssids)
}

func (w *Wizard) startScan(ctx context.Context, _ Args) Result {
	if err := w.wifi.StartScan(); err != nil {
		w.logger.DebugContext(ctx, "scan failed", "error", err)
		return failure("Scan failed")
	}
	return success(nil)
}

// getScanResults reports the last scan. An optional options object may set
// numLevels to bucket signal levels instead of reporting raw RSSI.
func (w *Wizard) getScanResults(ctx context.Context, args Args) Result {
	results, err := w.wifi.ScanResults()
	if err != nil {
		return failure(err.Error())
	}
	numLevels := w.scanLevels(ctx, args)

	records := make([]ScanRecord, 0, len(results))
	for _, r := range results {
		level := r.Level
		if numLevels > 0 {
			level = w.wifi.CalculateSignalLevel(r.Level, numLevels)
		}
		records = append(records, ScanRecord{Level: level, SSID: r.SSID, BSSID: r.BSSID})
	}
	return success(records)
}

func (w *Wizard) scanLevels(ctx context.Context, args Args) int {
	n, err := ScanLevels(args)
	if err != nil {
		w.logger.DebugContext(ctx, "ignoring scan options", "error", err)
	}
	return n
}

// ScanLevels returns the number of buckets requested by the getScanResults
// options argument, or 0 for raw RSSI.
func ScanLevels(args Args) (int, error) {
	if args.IsNull(0) {
		return 0, nil
	}
	options, err := args.Object(0)
	if err != nil {
		return 0, err
	}
	v := options.Get("numLevels")
	if !v.Exists() {
		return 0, nil
	}
	switch n := optInt(v); {
	case n > 1:
		return n, nil
	case n == 1, optBool(v):
		return legacyNumLevels, nil
	}
	return 0, nil
}

// getConnectedSSID reports the SSID of the current association, falling
// back to the BSSID.
func (w *Wizard) getConnectedSSID(ctx context.Context, _ Args) Result {
	if !w.radioEnabled(ctx) {
		return failure("Wifi is disabled")
	}
	info, err := w.wifi.ConnectionInfo()
	if err != nil || info == nil {
		w.logger.DebugContext(ctx, "no connection info", "error", err)
		return failure("Unable to read wifi info")
	}

	ssid := info.SSID
	if ssid == "" {
		ssid = info.BSSID
	}
	if ssid == "" {
		return failure("SSID is empty")
	}
	return success(ssid)
}

// isWifiEnabled always succeeds; the payload carries the state.
func (w *Wizard) isWifiEnabled(ctx context.Context, _ Args) Result {
	enabled := w.radioEnabled(ctx)
	res := success("0")
	if enabled {
		res.Payload = "1"
	}
	res.Handled = enabled
	return res
}

// signalStrength reports the RSSI of the current association.
func (w *Wizard) signalStrength(ctx context.Context, _ Args) Result {
	rssi := wifi.InvalidRSSI
	info, err := w.wifi.ConnectionInfo()
	if err != nil || info == nil {
		w.logger.WarnContext(ctx, "no connection info", "error", err)
	} else {
		rssi = info.RSSI
	}
	return success(strconv.Itoa(rssi))
}

// setWifiEnabled powers the radio on for "true" and off for anything else.
func (w *Wizard) setWifiEnabled(ctx context.Context, args Args) Result {
	if !validateArgs(args) {
		return invalidData(ActionSetWifiEnabled)
	}
	status, err := args.String(0)
	if err != nil {
		return failure(err.Error())
	}
	if err := w.wifi.SetWifiEnabled(status == "true"); err != nil {
		w.logger.DebugContext(ctx, "set wifi enabled failed", "status", status, "error", err)
		return failure("Cannot enable wifi")
	}
	return success(nil)
}
