//go:build !linux && !darwin && !mock

package main

import (
	"fmt"
	"log/slog"

	"github.com/shazow/wifiwizard/wifi"
)

func defaultManager(logger *slog.Logger) (wifi.Manager, error) {
	return nil, fmt.Errorf("unsupported operating system: %w", wifi.ErrNotSupported)
}

func platformManager(name string, logger *slog.Logger) (wifi.Manager, error) {
	return nil, wifi.ErrNotSupported
}
