//go:build mock

package main

import (
	"log/slog"

	"github.com/shazow/wifiwizard/wifi"
	"github.com/shazow/wifiwizard/wifi/mock"
)

func defaultManager(logger *slog.Logger) (wifi.Manager, error) {
	logger.Debug("built with the mock tag, using the mock backend")
	return mock.New()
}

func platformManager(name string, logger *slog.Logger) (wifi.Manager, error) {
	return nil, wifi.ErrNotSupported
}
