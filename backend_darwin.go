//go:build darwin && !mock

package main

import (
	"log/slog"

	"github.com/shazow/wifiwizard/wifi"
	"github.com/shazow/wifiwizard/wifi/darwin"
)

func defaultManager(logger *slog.Logger) (wifi.Manager, error) {
	return darwin.New(logger)
}

func platformManager(name string, logger *slog.Logger) (wifi.Manager, error) {
	if name != "darwin" {
		return nil, wifi.ErrNotSupported
	}
	return darwin.New(logger)
}
