package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"ndi_desktop/internal/config"
	"ndi_desktop/internal/logging"
)

var version = "dev"

// globalFlags hold the overrides shared by every subcommand.
type globalFlags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	BasePath   string
	Addr       string
	DBPath     string

	// Config is loaded once in the root Before hook.
	Config config.Config
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flags := &globalFlags{}
	var logCloser func()

	app := &cli.Command{
		Name:    "ndi-desktop",
		Usage:   "Simulated Windows desktop driving the NIRD quest",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to config.toml (default: ~/.ndi/config.toml)",
				Sources:     cli.EnvVars("NDI_CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("NDI_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write logs to this file instead of stderr",
				Sources:     cli.EnvVars("NDI_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "base-path",
				Usage:       "URL prefix of every page and asset",
				Sources:     cli.EnvVars("BASE_PATH"),
				Destination: &flags.BasePath,
			},
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "http listen address",
				Sources:     cli.EnvVars("NDI_ADDR"),
				Destination: &flags.Addr,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "sqlite database path",
				Sources:     cli.EnvVars("NDI_DB"),
				Destination: &flags.DBPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, err
			}
			flags.Config = cfg
			level := firstNonEmpty(flags.LogLevel, cfg.Log.Level, "info")
			logger, closer, err := logging.New(level, firstNonEmpty(flags.LogFile, cfg.Log.File))
			if err != nil {
				return ctx, fmt.Errorf("setup logging: %w", err)
			}
			logCloser = closer
			log.Logger = logger
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
		Commands: []*cli.Command{
			newServeCmd(flags),
			newCheckCmd(flags),
			newStateCmd(flags),
			newResetCmd(flags),
		},
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}
	cancel()
	os.Exit(exitCode)
}

// loadConfig applies the flag overrides on top of the loaded config file.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg := flags.Config
	if flags.BasePath != "" {
		cfg.BasePath = flags.BasePath
	}
	cfg.Server.Addr = firstNonEmpty(flags.Addr, cfg.Server.Addr)
	cfg.Storage.DBPath = firstNonEmpty(flags.DBPath, cfg.Storage.DBPath)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
