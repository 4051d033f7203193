// Package wizard dispatches host commands to a wifi.Manager.
//
// Every command produces exactly one Result. Preconditions are checked
// before any OS call, OS failures map to fixed messages and argument errors
// are surfaced verbatim. Nothing is retried.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shazow/wifiwizard/wifi"
)

// Action is the wire name of a command.
type Action string

const (
	ActionAddNetwork        Action = "addNetwork"
	ActionRemoveNetwork     Action = "removeNetwork"
	ActionConnectNetwork    Action = "connectNetwork"
	ActionDisconnectNetwork Action = "disconnectNetwork"
	ActionDisconnect        Action = "disconnect"
	ActionListNetworks      Action = "listNetworks"
	ActionStartScan         Action = "startScan"
	ActionGetScanResults    Action = "getScanResults"
	ActionSignalStrength    Action = "wifiSignalStrength"
	ActionGetConnectedSSID  Action = "getConnectedSSID"
	ActionIsWifiEnabled     Action = "isWifiEnabled"
	ActionSetWifiEnabled    Action = "setWifiEnabled"
)

// aliases are the short command names accepted alongside the wire names.
var aliases = map[string]Action{
	"add":             ActionAddNetwork,
	"remove":          ActionRemoveNetwork,
	"connect":         ActionConnectNetwork,
	"disconnect-one":  ActionDisconnectNetwork,
	"disconnect-all":  ActionDisconnect,
	"list":            ActionListNetworks,
	"scan-start":      ActionStartScan,
	"scan-results":    ActionGetScanResults,
	"signal-strength": ActionSignalStrength,
	"connected-ssid":  ActionGetConnectedSSID,
	"is-enabled":      ActionIsWifiEnabled,
	"set-enabled":     ActionSetWifiEnabled,
}

const msgWifiNotEnabled = "Wifi is not enabled."

type handlerFunc func(ctx context.Context, args Args) Result

type handler struct {
	fn handlerFunc
	// anyRadioState handlers run even when the radio is off.
	anyRadioState bool
}

// Wizard routes commands to handlers backed by a wifi.Manager.
type Wizard struct {
	wifi     wifi.Manager
	logger   *slog.Logger
	handlers map[Action]handler
}

// New creates a Wizard over the given manager. A nil logger uses slog.Default().
func New(m wifi.Manager, logger *slog.Logger) *Wizard {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Wizard{
		wifi:   m,
		logger: logger.With("component", "wizard"),
	}
	w.handlers = map[Action]handler{
		ActionIsWifiEnabled:     {fn: w.isWifiEnabled, anyRadioState: true},
		ActionSignalStrength:    {fn: w.signalStrength, anyRadioState: true},
		ActionSetWifiEnabled:    {fn: w.setWifiEnabled, anyRadioState: true},
		ActionAddNetwork:        {fn: w.addNetwork},
		ActionRemoveNetwork:     {fn: w.removeNetwork},
		ActionConnectNetwork:    {fn: w.connectNetwork},
		ActionDisconnectNetwork: {fn: w.disconnectNetwork},
		ActionListNetworks:      {fn: w.listNetworks},
		ActionStartScan:         {fn: w.startScan},
		ActionGetScanResults:    {fn: w.getScanResults},
		ActionDisconnect:        {fn: w.disconnect},
		ActionGetConnectedSSID:  {fn: w.getConnectedSSID},
	}
	return w
}

// Lookup resolves a wire name or alias to a known action.
func (w *Wizard) Lookup(name string) (Action, bool) {
	if a, ok := aliases[name]; ok {
		return a, true
	}
	a := Action(name)
	_, ok := w.handlers[a]
	return a, ok
}

// Actions returns the sorted wire names of all known actions.
func (w *Wizard) Actions() []Action {
	actions := make([]Action, 0, len(w.handlers))
	for a := range w.handlers {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Dispatch runs one command and returns its outcome.
func (w *Wizard) Dispatch(ctx context.Context, name string, args Args) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "action panicked", "action", name, "panic", r)
			res = failure(fmt.Sprint(r))
		}
	}()

	action, ok := w.Lookup(name)
	h := w.handlers[action]
	w.logger.DebugContext(ctx, "dispatching action", "action", name, "args", args.Len())

	// The radio check comes before the unknown-name check, so an unknown
	// name with the radio off reports the radio.
	if !(ok && h.anyRadioState) && !w.radioEnabled(ctx) {
		return failure(msgWifiNotEnabled)
	}
	if !ok {
		return failure("Incorrect action parameter: " + name)
	}
	res = h.fn(ctx, args)
	if !res.OK {
		w.logger.DebugContext(ctx, "action failed", "action", action, "message", res.Message)
	}
	return res
}

// Execute runs one command and reports its outcome to cb exactly once. It
// returns the handler's Handled value.
func (w *Wizard) Execute(ctx context.Context, name string, args Args, cb Callback) bool {
	res := w.Dispatch(ctx, name, args)
	if res.OK {
		cb.Success(res.Payload)
	} else {
		cb.Error(res.Message)
	}
	return res.Handled
}

// radioEnabled treats a failure to read the radio state as disabled.
func (w *Wizard) radioEnabled(ctx context.Context) bool {
	enabled, err := w.wifi.IsWifiEnabled()
	if err != nil {
		w.logger.WarnContext(ctx, "failed to read radio state", "error", err)
		return false
	}
	return enabled
}

// resolve looks up the id of the configured profile for ssid.
func (w *Wizard) resolve(ssid string) (wifi.NetworkID, error) {
	networks, err := w.wifi.ConfiguredNetworks()
	if err != nil {
		return wifi.NoNetworkID, err
	}
	return wifi.ResolveNetworkID(networks, ssid), nil
}
