package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/shazow/wifiwizard/internal/bridge"
	"github.com/shazow/wifiwizard/internal/log"
	"github.com/shazow/wifiwizard/internal/render"
	"github.com/shazow/wifiwizard/internal/wizard"
	"github.com/shazow/wifiwizard/wifi"
)

// errCommandFailed is returned by runExec after an error result has been
// written, so the caller only needs to set the exit status.
var errCommandFailed = errors.New("command failed")

type execOptions struct {
	// JSON holds the arguments as a JSON array. It replaces positional args.
	JSON    string
	Pretty  bool
	Verbose bool
}

func runExec(ctx context.Context, w io.Writer, logw io.Writer, m wifi.Manager, logger *slog.Logger, action string, params []string, opts execOptions) error {
	var args wizard.Args
	if opts.JSON != "" {
		if len(params) > 0 {
			return errors.New("use either --json or positional arguments, not both")
		}
		var err error
		if args, err = wizard.ParseArgs([]byte(opts.JSON)); err != nil {
			return err
		}
	} else {
		args = wizard.StringArgs(params...)
	}

	res := wizard.New(m, logger).Dispatch(ctx, action, args)

	numLevels, _ := wizard.ScanLevels(args)
	if err := render.Write(w, res, render.Options{Pretty: opts.Pretty, NumLevels: numLevels}); err != nil {
		return err
	}
	if opts.Verbose {
		if err := writeLogs(ctx, logw, log.Logs()); err != nil {
			return err
		}
	}
	if !res.OK {
		return errCommandFailed
	}
	return nil
}

func writeLogs(ctx context.Context, w io.Writer, records []slog.Record) error {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	for _, r := range records {
		if err := h.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func runServe(ctx context.Context, r io.Reader, w io.Writer, m wifi.Manager, logger *slog.Logger) error {
	logger.Info("serving commands on stdio")
	return bridge.New(wizard.New(m, logger), w, logger).Serve(ctx, r)
}

var schemaTypes = map[string]any{
	"request":      &bridge.Request{},
	"response":     &bridge.Response{},
	"scan-record":  &wizard.ScanRecord{},
	"scan-options": &wizard.ScanOptions{},
}

func schemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runSchema writes the JSON Schema for one bridge type, or all of them keyed
// by name.
func runSchema(w io.Writer, names []string) error {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}

	var out any
	switch len(names) {
	case 0:
		all := make(map[string]*jsonschema.Schema, len(schemaTypes))
		for name, v := range schemaTypes {
			all[name] = reflector.Reflect(v)
		}
		out = all
	case 1:
		v, ok := schemaTypes[names[0]]
		if !ok {
			return fmt.Errorf("unknown schema %q, expected one of: %s", names[0], strings.Join(schemaNames(), ", "))
		}
		out = reflector.Reflect(v)
	default:
		return errors.New("schema takes at most one name")
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func runQR(w io.Writer, ssid, authTag, credential string, hidden bool) error {
	auth, err := wifi.ParseAuthType(authTag)
	if err != nil {
		return err
	}
	code, err := GenerateWifiQRCode(ssid, credential, auth, hidden)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, code)
	return err
}
