// Package config holds the command line configuration shared by all
// subcommands.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "WIFIWIZARD"

var validate = validator.New()

// Config is the root configuration.
type Config struct {
	Backend  string `validate:"oneof=auto networkmanager iwd darwin mock"`
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`
	LogFile  string
	Theme    string `validate:"omitempty,file"`
}

// RegisterFlags binds the configuration to fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Backend, "backend", "auto", "wifi backend: auto, networkmanager, iwd, darwin or mock (env: WIFIWIZARD_BACKEND)")
	fs.StringVar(&c.LogLevel, "log-level", "warn", "log level: debug, info, warn or error (env: WIFIWIZARD_LOG_LEVEL)")
	fs.StringVar(&c.LogFile, "log-file", "", "write debug logs to this file (env: WIFIWIZARD_LOG_FILE)")
	fs.StringVar(&c.Theme, "theme", "", "path to theme toml file (env: WIFIWIZARD_THEME)")
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value()))
		case "file":
			msgs = append(msgs, fmt.Sprintf("%s file %q does not exist", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// TOMLParser is an ff.ConfigFileParser for flat TOML files whose keys are
// flag names. Arrays set a flag once per element.
func TOMLParser(r io.Reader, set func(name, value string) error) error {
	var m map[string]any
	if _, err := toml.NewDecoder(r).Decode(&m); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	for name, v := range m {
		values, ok := v.([]any)
		if !ok {
			values = []any{v}
		}
		for _, v := range values {
			s, err := tomlString(v)
			if err != nil {
				return fmt.Errorf("config key %q: %w", name, err)
			}
			if err := set(name, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func tomlString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool, int64, float64:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}
