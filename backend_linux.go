//go:build linux && !mock

package main

import (
	"log/slog"

	"github.com/shazow/wifiwizard/wifi"
	"github.com/shazow/wifiwizard/wifi/iwd"
	"github.com/shazow/wifiwizard/wifi/networkmanager"
)

func defaultManager(logger *slog.Logger) (wifi.Manager, error) {
	m, err := networkmanager.New(logger)
	if err == nil {
		return m, nil
	}
	logger.Warn("failed to initialize networkmanager backend, falling back to iwd", "error", err)
	return iwd.New(logger)
}

func platformManager(name string, logger *slog.Logger) (wifi.Manager, error) {
	switch name {
	case "networkmanager":
		return networkmanager.New(logger)
	case "iwd":
		return iwd.New(logger)
	}
	return nil, wifi.ErrNotSupported
}
