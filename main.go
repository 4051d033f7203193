package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/shazow/wifiwizard/internal/config"
	"github.com/shazow/wifiwizard/internal/log"
	"github.com/shazow/wifiwizard/internal/render"
	"github.com/shazow/wifiwizard/internal/wizard"
)

var (
	// Version is the version of the application. It is set at build time.
	Version string = "dev"
)

func main() {
	var (
		cfg         config.Config
		rootFlagSet = flag.NewFlagSet("wifiwizard", flag.ExitOnError)
		_           = rootFlagSet.String("config", "", "path to config toml file (env: WIFIWIZARD_CONFIG)")
		version     = rootFlagSet.Bool("version", false, "display version")
	)
	cfg.RegisterFlags(rootFlagSet)

	// Set up once flags are parsed; subcommands only run after that.
	var logger *slog.Logger

	execFlagSet := flag.NewFlagSet("exec", flag.ExitOnError)
	execJSON := execFlagSet.String("json", "", "arguments as a JSON array, e.g. '[\"home\",\"WPA\",\"secret\"]'")
	execPretty := execFlagSet.Bool("pretty", false, "styled output instead of JSON")
	execVerbose := execFlagSet.Bool("v", false, "print recent log records after the result")
	execCmd := &ffcli.Command{
		Name:       "exec",
		ShortUsage: "wifiwizard exec [flags] <action> [args...]",
		ShortHelp:  "Run one command and print its result",
		LongHelp:   "Actions: " + strings.Join(actionNames(), ", "),
		FlagSet:    execFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return errors.New("exec requires an action")
			}
			m, err := GetManager(cfg.Backend, logger)
			if err != nil {
				return err
			}
			return runExec(ctx, os.Stdout, os.Stderr, m, logger, args[0], args[1:], execOptions{
				JSON:    *execJSON,
				Pretty:  *execPretty,
				Verbose: *execVerbose,
			})
		},
	}

	serveCmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "wifiwizard serve",
		ShortHelp:  "Answer line-delimited JSON commands on stdin",
		Exec: func(ctx context.Context, args []string) error {
			m, err := GetManager(cfg.Backend, logger)
			if err != nil {
				return err
			}
			return runServe(ctx, os.Stdin, os.Stdout, m, logger)
		},
	}

	schemaCmd := &ffcli.Command{
		Name:       "schema",
		ShortUsage: "wifiwizard schema [" + strings.Join(schemaNames(), "|") + "]",
		ShortHelp:  "Print the JSON Schema of the serve protocol",
		Exec: func(ctx context.Context, args []string) error {
			return runSchema(os.Stdout, args)
		},
	}

	qrFlagSet := flag.NewFlagSet("qr", flag.ExitOnError)
	qrHidden := qrFlagSet.Bool("hidden", false, "network is hidden")
	qrCmd := &ffcli.Command{
		Name:       "qr",
		ShortUsage: "wifiwizard qr [flags] <ssid> <WPA|WEP|NONE> [credential]",
		ShortHelp:  "Print a QR code that joins a network",
		FlagSet:    qrFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) < 2 || len(args) > 3 {
				return errors.New("qr requires an ssid, an auth type and optionally a credential")
			}
			var credential string
			if len(args) == 3 {
				credential = args[2]
			}
			return runQR(os.Stdout, args[0], args[1], credential, *qrHidden)
		},
	}

	root := &ffcli.Command{
		ShortUsage:  "wifiwizard [flags] <subcommand> [args...]",
		FlagSet:     rootFlagSet,
		Subcommands: []*ffcli.Command{execCmd, serveCmd, schemaCmd, qrCmd},
		Options: []ff.Option{
			ff.WithEnvVarPrefix(config.EnvPrefix),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(config.TOMLParser),
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}

	if err := root.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if *version {
		fmt.Println(Version)
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := log.Init(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := loadTheme(cfg.Theme); err != nil {
		fmt.Fprintf(os.Stderr, "error loading theme: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = root.Run(ctx)
	stop()
	if cerr := closeLog(); cerr != nil {
		fmt.Fprintf(os.Stderr, "error closing log file: %v\n", cerr)
	}

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		root.FlagSet.Usage()
		os.Exit(2)
	case errors.Is(err, errCommandFailed):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadTheme replaces the render theme with the one at path, if set.
func loadTheme(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	theme, err := render.LoadTheme(f)
	if err != nil {
		return err
	}
	render.CurrentTheme = theme
	return nil
}

func actionNames() []string {
	actions := wizard.New(nil, nil).Actions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return names
}
