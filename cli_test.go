package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shazow/wifiwizard/internal/log"
	"github.com/shazow/wifiwizard/wifi"
	"github.com/shazow/wifiwizard/wifi/mock"
)

func newTestManager(t *testing.T) *mock.MockManager {
	t.Helper()
	mock.DefaultActionSleep = 0
	m, err := mock.New()
	if err != nil {
		t.Fatalf("mock.New() failed: %v", err)
	}
	return m.(*mock.MockManager)
}

func TestRunExecList(t *testing.T) {
	m := newTestManager(t)
	logger, _, err := log.Init(log.Options{Output: io.Discard})
	if err != nil {
		t.Fatalf("log.Init() failed: %v", err)
	}
	var buf bytes.Buffer

	err = runExec(context.Background(), &buf, io.Discard, m, logger, "listNetworks", nil, execOptions{})
	if err != nil {
		t.Fatalf("runExec() failed: %v", err)
	}

	var out struct {
		Status  string   `json:"status"`
		Payload []string `json:"payload"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("runExec() output is not JSON: %v\n%s", err, buf.String())
	}
	expected := []string{`"HideYoKidsHideYoWiFi"`, `"GET off my LAN"`, `"Password is password"`, `"HideYoKidsHideYoWiFi"`}
	if out.Status != "success" || strings.Join(out.Payload, ",") != strings.Join(expected, ",") {
		t.Errorf("runExec() output wrong. got=%+v, want=%q", out, expected)
	}
}

func TestRunExecAlias(t *testing.T) {
	m := newTestManager(t)
	logger, _, _ := log.Init(log.Options{Output: io.Discard})
	var buf bytes.Buffer

	err := runExec(context.Background(), &buf, io.Discard, m, logger, "add", []string{`"Cafe"`, "WPA", "hunter22"}, execOptions{Pretty: true})
	if err != nil {
		t.Fatalf("runExec() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"Cafe" successfully added.`) {
		t.Errorf("runExec() output missing success message. got=%q", buf.String())
	}
	if len(m.Networks) != 5 {
		t.Errorf("expected a new network, got %d networks", len(m.Networks))
	}
}

func TestRunExecFailure(t *testing.T) {
	m := newTestManager(t)
	logger, _, _ := log.Init(log.Options{Output: io.Discard})
	var buf bytes.Buffer

	err := runExec(context.Background(), &buf, io.Discard, m, logger, "removeNetwork", []string{`"Nope"`}, execOptions{})
	if !errors.Is(err, errCommandFailed) {
		t.Fatalf("expected errCommandFailed, got %v", err)
	}
	if !strings.Contains(buf.String(), "Network not found.") {
		t.Errorf("runExec() output missing error message. got=%q", buf.String())
	}
}

func TestRunExecJSONArgs(t *testing.T) {
	m := newTestManager(t)
	logger, _, _ := log.Init(log.Options{Level: "debug", Output: io.Discard})
	var buf, logs bytes.Buffer

	err := runExec(context.Background(), &buf, &logs, m, logger, "getScanResults", nil, execOptions{
		JSON:    `[{"numLevels": 5}]`,
		Verbose: true,
	})
	if err != nil {
		t.Fatalf("runExec() failed: %v", err)
	}

	var out struct {
		Payload []struct {
			Level int `json:"level"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("runExec() output is not JSON: %v\n%s", err, buf.String())
	}
	if len(out.Payload) == 0 {
		t.Fatalf("runExec() returned no scan results")
	}
	for _, r := range out.Payload {
		if r.Level < 0 || r.Level > 4 {
			t.Errorf("level %d is outside 5 buckets", r.Level)
		}
	}
	if !strings.Contains(logs.String(), "dispatching action") {
		t.Errorf("verbose output missing dispatch log. got=%q", logs.String())
	}

	err = runExec(context.Background(), &buf, io.Discard, m, logger, "getScanResults", []string{"x"}, execOptions{JSON: "[]"})
	if err == nil {
		t.Errorf("runExec() should reject --json with positional arguments")
	}
}

func TestRunServe(t *testing.T) {
	m := newTestManager(t)
	logger, _, _ := log.Init(log.Options{Output: io.Discard})
	in := strings.NewReader(`{"id":1,"action":"isWifiEnabled"}` + "\n" + `{"id":"b","action":"bogus"}` + "\n")
	var out bytes.Buffer

	if err := runServe(context.Background(), in, &out, m, logger); err != nil {
		t.Fatalf("runServe() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 responses, got %d: %q", len(lines), out.String())
	}
	if lines[0] != `{"id":1,"status":"success","payload":"1"}` {
		t.Errorf("unexpected first response %q", lines[0])
	}
	if lines[1] != `{"id":"b","status":"error","message":"Incorrect action parameter: bogus"}` {
		t.Errorf("unexpected second response %q", lines[1])
	}
}

func TestRunSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := runSchema(&buf, []string{"scan-record"}); err != nil {
		t.Fatalf("runSchema() failed: %v", err)
	}
	var schema struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(buf.Bytes(), &schema); err != nil {
		t.Fatalf("runSchema() output is not JSON: %v", err)
	}
	for _, key := range []string{"level", "SSID", "BSSID"} {
		if _, ok := schema.Properties[key]; !ok {
			t.Errorf("scan-record schema missing %q: %s", key, buf.String())
		}
	}

	buf.Reset()
	if err := runSchema(&buf, nil); err != nil {
		t.Fatalf("runSchema() failed: %v", err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &all); err != nil {
		t.Fatalf("runSchema() output is not JSON: %v", err)
	}
	if len(all) != len(schemaTypes) {
		t.Errorf("expected %d schemas, got %d", len(schemaTypes), len(all))
	}

	if err := runSchema(&buf, []string{"nope"}); err == nil {
		t.Errorf("runSchema() should fail for an unknown name")
	}
}

func TestWifiQRPayload(t *testing.T) {
	tests := []struct {
		ssid, credential string
		auth             wifi.AuthType
		hidden           bool
		expected         string
	}{
		{`"Home"`, "p;ss", wifi.AuthWPA, false, `WIFI:S:Home;T:WPA;P:p\;ss;;`},
		{"Old", "abcde", wifi.AuthWEP, true, `WIFI:S:Old;T:WEP;P:abcde;H:true;;`},
		{"a:b", "", wifi.AuthNone, false, `WIFI:S:a\:b;T:nopass;;`},
	}
	for _, tt := range tests {
		got, err := WifiQRPayload(tt.ssid, tt.credential, tt.auth, tt.hidden)
		if err != nil {
			t.Fatalf("WifiQRPayload(%q) failed: %v", tt.ssid, err)
		}
		if got != tt.expected {
			t.Errorf("WifiQRPayload(%q) = %q, want %q", tt.ssid, got, tt.expected)
		}
	}

	if _, err := WifiQRPayload("x", "", wifi.AuthEAP, false); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for EAP, got %v", err)
	}
}

func TestRunQR(t *testing.T) {
	var buf bytes.Buffer
	if err := runQR(&buf, "Home", "WPA", "secret", false); err != nil {
		t.Fatalf("runQR() failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Errorf("runQR() wrote nothing")
	}
	if err := runQR(&buf, "Home", "wpa", "secret", false); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for lowercase auth tag, got %v", err)
	}
}

func TestGetManager(t *testing.T) {
	m, err := GetManager("mock", nil)
	if err != nil {
		t.Fatalf("GetManager(mock) failed: %v", err)
	}
	if _, ok := m.(*mock.MockManager); !ok {
		t.Errorf("expected a mock manager, got %T", m)
	}
	if _, err := GetManager("bogus", nil); !errors.Is(err, wifi.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}
