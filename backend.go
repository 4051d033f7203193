package main

import (
	"fmt"
	"log/slog"

	"github.com/shazow/wifiwizard/wifi"
	"github.com/shazow/wifiwizard/wifi/mock"
)

// GetManager returns the wifi.Manager for a --backend value. "auto" picks
// the native backend for this platform.
func GetManager(name string, logger *slog.Logger) (wifi.Manager, error) {
	switch name {
	case "mock":
		return mock.New()
	case "", "auto":
		return defaultManager(logger)
	}
	m, err := platformManager(name, logger)
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}
	return m, nil
}
